package banking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"banking/internal/domain"
	"banking/internal/domain/event"
	"banking/internal/util"
)

func (s *bankingService) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		s.logger.Warn("Deposit rejected", zap.Int64("account_id", accountID), zap.Error(err))
		return nil, err
	}

	var txn *domain.Transaction
	err := s.retryOnConflict(ctx, "deposit", func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
			var err error
			txn, err = s.depositTx(ctx, q, accountID, amount, description)
			return err
		})
	})
	if err != nil {
		s.logFailure("Deposit failed", err, zap.Int64("account_id", accountID))
		return nil, err
	}

	s.logger.Info("Deposit completed",
		zap.Int64("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("reference", txn.ReferenceNumber))
	return txn, nil
}

func (s *bankingService) depositTx(ctx context.Context, q domain.Querier, accountID int64, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	account, err := s.accountRepo.LockByIDTx(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, domain.NewError(domain.ErrInvalidState, "account %s is %s", account.AccountNumber, strings.ToLower(string(account.Status)))
	}

	reference, err := util.UniqueIdentifier(ctx, util.DefaultMaxAttempts, util.GenerateReferenceNumber,
		func(ctx context.Context, candidate string) (bool, error) {
			return s.ledgerRepo.ReferenceExistsTx(ctx, q, candidate)
		})
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ReferenceNumber: reference,
		ToAccountID:     &account.ID,
		ToAccountNumber: account.AccountNumber,
		Amount:          amount,
		Type:            domain.TransactionTypeDeposit,
		Status:          domain.TransactionStatusPending,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.ledgerRepo.CreateTx(ctx, q, txn); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.AddToBalanceTx(ctx, q, account.ID, amount); err != nil {
		return nil, err
	}
	if err := s.completeTx(ctx, q, txn, account.Currency); err != nil {
		return nil, err
	}
	return txn, nil
}

// ProcessDepositRequest applies a deposit consumed from Kafka exactly once per
// event id. The inbox row and the deposit commit together. A redelivered event
// is acknowledged without effect. A business rejection is recorded as a FAILED
// inbox row and acknowledged too, so the event is not redelivered forever.
func (s *bankingService) ProcessDepositRequest(ctx context.Context, topic string, evt event.DepositRequestedEvent, rawPayload []byte) error {
	logger := s.logger.With(zap.String("event_id", evt.EventID), zap.Int64("account_id", evt.AccountID))

	err := domain.ValidateAmount(evt.Amount)
	if err == nil {
		err = s.retryOnConflict(ctx, "deposit_request", func() error {
			return s.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
				msg := &domain.InboxMessage{
					ID:         evt.EventID,
					Topic:      topic,
					Payload:    rawPayload,
					Status:     domain.InboxStatusNew,
					ReceivedAt: time.Now().UTC(),
				}
				if err := s.inboxRepo.CreateMessageTx(ctx, q, msg); err != nil {
					return err
				}
				txn, err := s.depositTx(ctx, q, evt.AccountID, evt.Amount, evt.Description)
				if err != nil {
					return err
				}
				logger.Info("Deposit request applied", zap.String("reference", txn.ReferenceNumber))
				return s.inboxRepo.UpdateStatusTx(ctx, q, evt.EventID, domain.InboxStatusProcessed, "")
			})
		})
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrMessageAlreadyProcessed):
		logger.Info("Deposit request already processed, skipping")
		return nil
	case isBusinessError(err):
		logger.Warn("Deposit request rejected", zap.String("kind", domain.KindOf(err)), zap.Error(err))
		return s.recordFailedRequest(ctx, topic, evt.EventID, rawPayload, domain.Message(err))
	default:
		logger.Error("Failed to process deposit request", zap.Error(err))
		return err
	}
}

func (s *bankingService) recordFailedRequest(ctx context.Context, topic, eventID string, rawPayload []byte, reason string) error {
	now := time.Now().UTC()
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
		return s.inboxRepo.CreateMessageTx(ctx, q, &domain.InboxMessage{
			ID:          eventID,
			Topic:       topic,
			Payload:     rawPayload,
			Status:      domain.InboxStatusFailed,
			Error:       reason,
			ReceivedAt:  now,
			ProcessedAt: &now,
		})
	})
	if err != nil && !errors.Is(err, domain.ErrMessageAlreadyProcessed) {
		s.logger.Error("Failed to record rejected deposit request", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}

// isBusinessError reports whether err is a rule violation that a retry cannot fix.
func isBusinessError(err error) bool {
	switch domain.KindOf(err) {
	case "NOT_FOUND", "FORBIDDEN", "INVALID_STATE", "INSUFFICIENT_FUNDS", "INVALID_OPERATION":
		return true
	}
	return false
}
