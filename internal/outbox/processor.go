package outbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"banking/internal/domain"
	kafkaInfra "banking/internal/infrastructure/kafka"
)

const publishTimeout = 10 * time.Second

type OutboxRepository interface {
	GetPendingMessagesTx(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error)
	UpdateMessageStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxMessageStatus) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, q domain.Querier) error) error
}

// Processor relays pending outbox rows to Kafka. Delivery is at least once:
// a crash between publish and commit republishes the row on the next poll.
type Processor struct {
	txManager      Transactor
	outboxRepo     OutboxRepository
	kafkaProducer  kafkaInfra.Producer
	pollInterval   time.Duration
	pollTimeout    time.Duration
	batchSize      int
	logger         *zap.Logger
	shutdownSignal chan struct{}
	shutdownOnce   sync.Once
}

func NewProcessor(
	txManager Transactor,
	outboxRepo OutboxRepository,
	kafkaProducer kafkaInfra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		txManager:      txManager,
		outboxRepo:     outboxRepo,
		kafkaProducer:  kafkaProducer,
		pollInterval:   pollInterval,
		pollTimeout:    pollTimeout,
		batchSize:      batchSize,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor context cancelled.")
			return
		case <-p.shutdownSignal:
			p.logger.Info("Outbox processor received stop signal.")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Failed to process outbox batch", zap.Error(err))
			}
		}
	}
}

func (p *Processor) Stop() {
	p.shutdownOnce.Do(func() {
		p.logger.Info("Signaling outbox processor to stop...")
		close(p.shutdownSignal)
	})
}

// ProcessBatch claims up to batchSize pending rows, publishes them in creation
// order and marks the published ones SENT. The batch stops at the first
// publish failure so later events never overtake an earlier one.
//
// The claiming transaction does not inherit ctx's cancellation: a publish
// that times out or a shutdown ends the batch early, and the rows already
// published are still committed as SENT.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	sent := 0
	err := p.txManager.WithinTx(context.WithoutCancel(ctx), func(txCtx context.Context, q domain.Querier) error {
		queryCtx, cancelQuery := context.WithTimeout(txCtx, p.pollTimeout)
		messages, err := p.outboxRepo.GetPendingMessagesTx(queryCtx, q, p.batchSize)
		cancelQuery()
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			p.logger.Debug("No pending outbox messages found.")
			return nil
		}

		p.logger.Info("Found pending outbox messages", zap.Int("count", len(messages)))
		for _, msg := range messages {
			if err := p.publish(ctx, msg); err != nil {
				p.logger.Error("Failed to send message to Kafka",
					zap.String("message_id", msg.ID),
					zap.String("topic", msg.Topic),
					zap.Error(err))
				return nil
			}
			if err := p.outboxRepo.UpdateMessageStatusTx(txCtx, q, msg.ID, domain.OutboxStatusSent); err != nil {
				return err
			}
			sent++
			p.logger.Info("Outbox message published",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.String("aggregate_id", msg.AggregateID))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}

func (p *Processor) publish(ctx context.Context, msg domain.OutboxMessage) error {
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.kafkaProducer.Produce(publishCtx, msg.Topic, []byte(msg.Key), msg.Payload)
}
