package producer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"crm-backend/internal/telemetry/domain"
)

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

var _ Producer = (*KafkaProducer)(nil)

// NewKafkaProducer creates a Kafka producer that writes client events to the given topic.
// Returns nil, nil when brokers or topic are empty, meaning publishing is disabled. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:  kafka.TCP(brokers...),
		Topic: topic,
		// Hash on the client id key keeps every change to one client on the same partition, in order.
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}, nil
}

// Topic returns the topic events are written to.
func (p *KafkaProducer) Topic() string {
	if p == nil {
		return ""
	}
	return p.topic
}

// Emit serializes the event as JSON and writes it to the Kafka topic keyed by client id.
// A 5s timeout bounds the write so a slow broker does not block callers indefinitely.
func (p *KafkaProducer) Emit(ctx context.Context, event *domain.ClientEvent) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		log.Printf("telemetry: kafka emit failed: %v", err)
		return err
	}
	return nil
}

func newMessage(event *domain.ClientEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.ClientID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
