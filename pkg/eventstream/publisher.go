package eventstream

import "context"

// Publisher publishes index events to an event stream backend.
type Publisher interface {
	PublishChunksIndexed(ctx context.Context, event *ChunksIndexedEvent) error
	Close() error
}
