package notifications

import (
	"context"

	"rently/pkg/logger"
)

// Emitter publishes booking lifecycle events. Emission is best-effort:
// callers treat a failed emit as a logged warning, never as a reason to
// fail or roll back the booking transition that triggered it.
type Emitter interface {
	Emit(ctx context.Context, event *BookingEvent) error
	Close() error
}

// KafkaEmitter publishes events through a Kafka sync producer
type KafkaEmitter struct {
	producer *KafkaEventProducer
	logger   *logger.Logger
}

// NewKafkaEmitter creates an emitter backed by Kafka
func NewKafkaEmitter(producer *KafkaEventProducer, log *logger.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		producer: producer,
		logger:   log,
	}
}

// Emit publishes the event. Errors are returned so the caller can log them,
// but the engine never propagates them further.
func (e *KafkaEmitter) Emit(ctx context.Context, event *BookingEvent) error {
	if err := e.producer.Publish(event); err != nil {
		e.logger.Error("failed to publish booking event",
			"event_id", event.ID.String(),
			"event_type", string(event.Type),
			"booking_id", event.BookingID.String(),
			"error", err)
		return err
	}

	e.logger.Debug("booking event published",
		"event_id", event.ID.String(),
		"event_type", string(event.Type),
		"booking_id", event.BookingID.String())
	return nil
}

// Close shuts down the underlying producer
func (e *KafkaEmitter) Close() error {
	return e.producer.Close()
}

// NoopEmitter drops events. Used when Kafka is disabled (local development,
// tests) so the engine does not need nil checks at every emit site.
type NoopEmitter struct{}

// NewNoopEmitter creates an emitter that discards all events
func NewNoopEmitter() *NoopEmitter {
	return &NoopEmitter{}
}

// Emit discards the event
func (e *NoopEmitter) Emit(_ context.Context, _ *BookingEvent) error {
	return nil
}

// Close is a no-op
func (e *NoopEmitter) Close() error {
	return nil
}
