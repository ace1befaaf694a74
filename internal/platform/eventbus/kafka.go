package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder publishes events to a Kafka topic, keyed by user id so that
// events of one user stay ordered within a partition.
type KafkaForwarder struct {
	writer MessageWriter
	topic  string
}

// NewKafkaWriter builds the producer used in production.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
}

func NewKafkaForwarder(w MessageWriter, topic string) *KafkaForwarder {
	return &KafkaForwarder{writer: w, topic: topic}
}

type envelope struct {
	Event      string    `json:"event"`
	Payload    Event     `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Listen is a Listener forwarding e to Kafka.
func (f *KafkaForwarder) Listen(ctx context.Context, e Event) error {
	data, err := json.Marshal(envelope{Event: e.Name(), Payload: e, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Name(), err)
	}
	var key []byte
	if pc, ok := e.(PortfolioChangedEvent); ok {
		key = []byte(pc.UserID)
	}
	if err := f.writer.WriteMessages(ctx, kafka.Message{Topic: f.topic, Key: key, Value: data}); err != nil {
		return fmt.Errorf("publish %s to %s: %w", e.Name(), f.topic, err)
	}
	slog.Debug("event forwarded to kafka", "event", e.Name(), "topic", f.topic)
	return nil
}

func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
