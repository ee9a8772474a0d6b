package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type (
	// messageWriter is the slice of kafka.Writer the transport needs.
	// Narrowed to an interface so unit tests can substitute a fake writer
	// without a broker.
	messageWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	// KafkaTransport delivers events to a Kafka topic instead of the HTTP
	// endpoint, for deployments where the backend consumes lineage from a
	// broker. Messages are keyed by run ID so all events of one run land in
	// the same partition and preserve their relative order.
	//
	// Kafka has no equivalent of an HTTP 4xx: every write failure is
	// transient from the emitter's point of view, so the Client retries all
	// of them.
	KafkaTransport struct {
		writer messageWriter
	}
)

// NewKafkaTransport creates a Kafka transport writing to the given topic.
// RequireAll acks keep the at-least-once delivery contract: a write is only
// reported accepted once the brokers have it.
func NewKafkaTransport(brokers []string, topic string) *KafkaTransport {
	return &KafkaTransport{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Deliver writes one serialized event as a single Kafka message.
func (t *KafkaTransport) Deliver(ctx context.Context, payload []byte) error {
	msg := kafka.Message{
		Key:   runKey(payload),
		Value: payload,
	}

	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write lineage event to kafka: %w", err)
	}

	return nil
}

// Close releases the underlying writer's connections.
func (t *KafkaTransport) Close() error {
	if err := t.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}

	return nil
}

// runKey extracts the run ID from a serialized event for partition keying.
// Falls back to nil (round-robin-by-hash of empty key) if the payload is not
// the expected shape; delivery still succeeds.
func runKey(payload []byte) []byte {
	var probe struct {
		Run struct {
			RunID string `json:"runId"`
		} `json:"run"`
	}

	if err := json.Unmarshal(payload, &probe); err != nil || probe.Run.RunID == "" {
		return nil
	}

	return []byte(probe.Run.RunID)
}
