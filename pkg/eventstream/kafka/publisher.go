// Package kafka implements an eventstream publisher on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/pkg/eventstream"
)

// DefaultTopic is the default topic for index events.
const DefaultTopic = "mnemo.chunks.indexed"

// Publisher publishes index events to a Kafka topic. Messages are keyed by
// session ID so consumers see a session's events in order.
type Publisher struct {
	writer *segmentio.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &segmentio.Writer{
		Addr:     segmentio.TCP(c.Brokers...),
		Topic:    topic,
		Balancer: &segmentio.Hash{},
	}

	logger.Info("created kafka publisher",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishChunksIndexed writes the event to the configured topic.
func (p *Publisher) PublishChunksIndexed(ctx context.Context, event *eventstream.ChunksIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilIndexEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling index event: %w", err)
	}

	msg := segmentio.Message{
		Key:   []byte(event.Turn.SessionID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing index event: %w", err)
	}

	p.logger.Debug("published index event",
		zap.String("event_id", event.EventID),
		zap.String("session_id", event.Turn.SessionID),
		zap.Int("chunks", len(event.Chunks)),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
