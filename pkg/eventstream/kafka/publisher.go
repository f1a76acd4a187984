// Package kafka publishes memory events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/paideialabs/paideia/pkg/eventstream"
)

const (
	// DefaultTopic is the topic events land on when none is configured.
	DefaultTopic = "paideia.memory.events"

	// DefaultBatchTimeout flushes small batches quickly; event volume is
	// one message per chat exchange, not a firehose.
	DefaultBatchTimeout = 100 * time.Millisecond
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic to publish on. Defaults to DefaultTopic.
	Topic string

	// BatchTimeout bounds how long the writer buffers before flushing.
	// Defaults to DefaultBatchTimeout.
	BatchTimeout time.Duration
}

// Publisher writes events to Kafka, keyed by user so one learner's events
// stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(config Config, logger *slog.Logger) (*Publisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher needs at least one broker")
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = DefaultBatchTimeout
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           config.BatchTimeout,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishInteraction publishes a persisted learner/tutor exchange.
func (p *Publisher) PublishInteraction(ctx context.Context, event *eventstream.InteractionRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.Key.UserID, event.EventType, event)
}

// PublishRefresh publishes a semantic index rebuild.
func (p *Publisher) PublishRefresh(ctx context.Context, event *eventstream.MemoryRefreshedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.UserID, event.EventType, event)
}

func (p *Publisher) publish(ctx context.Context, userID, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(userID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing %s event to kafka: %w", eventType, err)
	}

	p.logger.Debug("published event",
		"event_type", eventType,
		"user_id", userID,
		"topic", p.writer.Topic,
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
