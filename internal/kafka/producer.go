package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &Producer{writer: writer, topic: topic, logger: log}
}

// PublishSubmission streams an accepted submission keyed by event, so every
// update of one event lands on the same partition in order.
func (p *Producer) PublishSubmission(ctx context.Context, event models.SubmissionEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode submission event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventID),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(event.Channel)},
		},
	})
	if err != nil {
		p.logger.Error("KAFKA", fmt.Sprintf("Failed to publish submission for event %s: %v", event.EventID, err))
		return fmt.Errorf("failed to publish submission: %w", err)
	}
	p.logger.LogKafka("PUBLISH", p.topic, fmt.Sprintf("event=%s offer=%s tickets=%d", event.EventID, event.OfferID, len(event.TicketIDs)))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher stands in when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishSubmission(context.Context, models.SubmissionEvent) error { return nil }
