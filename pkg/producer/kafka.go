package producer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProduceResult holds the result of an asynchronous production
type ProduceResult struct {
	Error error
}

// Producer defines the interface for publishing leaderboard events
type Producer interface {
	// PublishAsync sends a message to Kafka asynchronously.
	// Returns a channel that receives the result when the write completes.
	PublishAsync(ctx context.Context, key, value []byte) <-chan ProduceResult

	// Close gracefully shuts down the producer
	Close() error
}

// KafkaProducer implements the Producer interface using kafka-go
type KafkaProducer struct {
	writer    *kafka.Writer
	eventType string
}

// Config holds Kafka producer configuration
type Config struct {
	Brokers []string
	Topic   string
	// EventType is attached to every message as the "event-type" header
	EventType string
}

// NewKafkaProducer creates a new KafkaProducer instance. Messages are keyed by
// entry ID, so the hash balancer keeps every entry on a stable partition.
func NewKafkaProducer(cfg Config) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaProducer{
		writer:    writer,
		eventType: cfg.EventType,
	}
}

// PublishAsync writes the message in the background and reports the broker acknowledgement
func (p *KafkaProducer) PublishAsync(ctx context.Context, key, value []byte) <-chan ProduceResult {
	resultChan := make(chan ProduceResult, 1)
	msg := p.message(key, value)

	go func() {
		err := p.writer.WriteMessages(ctx, msg)
		resultChan <- ProduceResult{Error: err}
		close(resultChan)
	}()

	return resultChan
}

// message wraps an encoded entry event with its headers
func (p *KafkaProducer) message(key, value []byte) kafka.Message {
	msg := kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if p.eventType != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "event-type", Value: []byte(p.eventType)})
	}
	return msg
}

// Close gracefully shuts down the producer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
