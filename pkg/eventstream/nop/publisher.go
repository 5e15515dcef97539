package nop

import (
	"context"

	"github.com/lyrebirdhq/mnemo/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishChunksIndexed validates input and otherwise does nothing.
func (p *Publisher) PublishChunksIndexed(_ context.Context, event *eventstream.ChunksIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilIndexEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
