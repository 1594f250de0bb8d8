package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"banking/internal/app/banking"
	"banking/internal/domain/event"
	kafka_infra "banking/internal/infrastructure/kafka"
)

// DepositRequestedMessageHandler applies deposit requests. Undecodable
// messages are logged and acknowledged.
func DepositRequestedMessageHandler(bankingService banking.BankingService, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		logger.Info("Received Kafka message for deposit processing",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("key", string(msg.Key)),
		)

		var depositEvent event.DepositRequestedEvent
		if err := json.Unmarshal(msg.Value, &depositEvent); err != nil {
			logger.Error("Failed to unmarshal Kafka message value to DepositRequestedEvent",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}
		if depositEvent.EventID == "" || depositEvent.AccountID <= 0 {
			logger.Error("Deposit request is missing event_id or account_id, skipping",
				zap.ByteString("value", msg.Value),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		logger.Info("Processing DepositRequestedEvent",
			zap.String("event_id", depositEvent.EventID),
			zap.Int64("account_id", depositEvent.AccountID),
			zap.String("amount", depositEvent.Amount.String()),
		)

		if err := bankingService.ProcessDepositRequest(ctx, msg.Topic, depositEvent, msg.Value); err != nil {
			logger.Error("Failed to process deposit request",
				zap.String("event_id", depositEvent.EventID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to process deposit request %s: %w", depositEvent.EventID, err)
		}

		logger.Info("Successfully processed deposit request", zap.String("event_id", depositEvent.EventID))
		return nil
	}
}
