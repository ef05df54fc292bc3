// Package kafka publishes eventstream events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/docq/pkg/eventstream"
)

// Writer is the subset of *kafkago.Writer used by the publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses (e.g., "localhost:9092").
	Brokers []string

	// Topic receives every event.
	Topic string
}

// Publisher implements eventstream.Publisher on top of a Kafka writer.
// Events are keyed by collection so that each collection's events stay
// ordered within a partition.
type Publisher struct {
	writer Writer
	logger *zap.Logger
}

// NewPublisher creates a publisher writing to c.Topic.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("publishing events to kafka",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", c.Topic),
	)

	return NewPublisherWithWriter(w, logger), nil
}

// NewPublisherWithWriter creates a publisher over an existing writer.
func NewPublisherWithWriter(w Writer, logger *zap.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger}
}

// PublishPage publishes a page served event.
func (p *Publisher) PublishPage(ctx context.Context, event *eventstream.PageServedEvent) error {
	if event == nil {
		return eventstream.ErrNilPageEvent
	}
	return p.publish(ctx, event.Collection, event.EventType, event)
}

// PublishIngest publishes a document ingested event.
func (p *Publisher) PublishIngest(ctx context.Context, event *eventstream.DocumentIngestedEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestEvent
	}
	return p.publish(ctx, event.Collection, event.EventType, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
