package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer follows the submissions topic so every gateway replica learns about
// submissions accepted by the others.
type Consumer struct {
	reader     messageReader
	topic      string
	retryDelay time.Duration
	maxDelay   time.Duration
	logger     *logger.Logger
}

const (
	defaultRetryDelay = time.Second
	defaultMaxDelay   = 30 * time.Second
)

// NewConsumer joins groupID starting at the newest offset. Use a group per
// replica when every replica must see every message.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, topic: topic, retryDelay: defaultRetryDelay, maxDelay: defaultMaxDelay, logger: log}
}

// Run hands each submission to handler until ctx is done. Read errors are
// retried with a doubling delay; malformed messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context, handler func(context.Context, models.SubmissionEvent)) error {
	c.logger.LogKafka("CONSUME", c.topic, "consumer started")
	delay := c.retryDelay
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message, retrying in %s: %v", delay, err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			if delay *= 2; c.maxDelay > 0 && delay > c.maxDelay {
				delay = c.maxDelay
			}
			continue
		}
		delay = c.retryDelay

		var event models.SubmissionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}
		handler(ctx, event)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
