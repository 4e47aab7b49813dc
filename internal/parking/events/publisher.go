// Package events announces ledger changes on the slot event topic.
package events

import (
	"context"
	"fmt"
	"strconv"

	"parkly/pkg/kafka"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "parking"
)

type Publisher interface {
	Publish(ctx context.Context, event model.SlotEvent) error
	Close() error
}

// messagePublisher is satisfied by *kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer messagePublisher
	log      *logger.Logger
}

func NewKafkaPublisher(producer messagePublisher, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log}
}

// Key partitions events by slot so changes to one slot stay ordered.
func Key(location string, index int) string {
	return location + ":" + strconv.Itoa(index)
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.SlotEvent) error {
	builder := kafka.NewMessage().
		WithKey(Key(event.Booking.LocationName, event.Booking.SlotIndex)).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.OccurredAt)
	if event.SessionID != "" {
		builder = builder.WithCorrelationID(event.SessionID)
	}

	msg, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}
	p.log.Debug("Slot event published", "type", event.Type, "key", msg.Key, "event_id", msg.GetEventID())
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event. Used when the event stream is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.SlotEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
