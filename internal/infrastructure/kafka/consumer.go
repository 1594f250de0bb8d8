package kafka_infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	fetchTimeout   = 5 * time.Second
	handlerTimeout = 25 * time.Second
	commitTimeout  = 5 * time.Second

	initialRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

type MessageHandler func(ctx context.Context, message kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader          messageReader
	topic           string
	groupID         string
	logger          *zap.Logger
	handler         MessageHandler
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, handler MessageHandler, l *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		Logger:         kafka.LoggerFunc(l.Sugar().Debugf),
		ErrorLogger:    kafka.LoggerFunc(l.Sugar().Errorf),
	})
	return newConsumer(reader, topic, groupID, handler, l)
}

func newConsumer(reader messageReader, topic, groupID string, handler MessageHandler, l *zap.Logger) *Consumer {
	return &Consumer{
		reader:          reader,
		topic:           topic,
		groupID:         groupID,
		logger:          l,
		handler:         handler,
		retryBackoff:    initialRetryBackoff,
		maxRetryBackoff: maxRetryBackoff,
	}
}

// Consume fetches messages until ctx is cancelled or the reader is closed.
// A message whose handler fails is retried with backoff and never skipped:
// committing a later offset would drop it for good.
func (c *Consumer) Consume(ctx context.Context) error {
	c.logger.Info("Kafka consumer starting message consumption",
		zap.String("topic", c.topic),
		zap.String("group_id", c.groupID),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer.", zap.String("topic", c.topic))
			return ctx.Err()
		default:
		}

		fetchCtx, cancelFetch := context.WithTimeout(ctx, fetchTimeout)
		m, err := c.reader.FetchMessage(fetchCtx)
		cancelFetch()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) || errors.Is(err, io.EOF) {
				c.logger.Info("Consumer stopping due to context cancellation or reader closure.", zap.Error(err), zap.String("topic", c.topic))
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.logger.Error("Error fetching message from Kafka", zap.Error(err), zap.String("topic", c.topic))
			time.Sleep(time.Second)
			continue
		}

		if err := c.handleWithRetry(ctx, m); err != nil {
			c.logger.Info("Stopping consumer with message left uncommitted",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset))
			return err
		}

		commitCtx, cancelCommit := context.WithTimeout(context.Background(), commitTimeout)
		if err := c.reader.CommitMessages(commitCtx, m); err != nil {
			c.logger.Error("Failed to commit offset for message",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
		cancelCommit()
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, m kafka.Message) error {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		handleCtx, cancelHandler := context.WithTimeout(context.Background(), handlerTimeout)
		err := c.handler(handleCtx, m)
		cancelHandler()
		if err == nil {
			return nil
		}

		c.logger.Error("Error handling Kafka message, will retry",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, c.maxRetryBackoff)
	}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka consumer reader", zap.Error(err), zap.String("topic", c.topic))
		return fmt.Errorf("failed to close Kafka consumer reader: %w", err)
	}
	c.logger.Info("Kafka consumer reader closed.", zap.String("topic", c.topic))
	return nil
}
