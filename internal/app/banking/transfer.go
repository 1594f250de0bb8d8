package banking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"banking/internal/domain"
	"banking/internal/outbox"
	"banking/internal/util"
)

// TransferRequest moves Amount from the account FromAccountID to the account
// numbered ToAccountNumber. A zero UserID means no principal is attached and
// the ownership check is skipped.
type TransferRequest struct {
	FromAccountID   int64
	ToAccountNumber string
	Amount          decimal.Decimal
	Description     string
	UserID          int64
}

// Transfer validates req against an unlocked snapshot, then repeats the
// state checks under row locks taken in ascending id order and applies the
// movement in the same transaction. Rejections in the first phase never take
// a lock.
func (s *bankingService) Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error) {
	logger := s.logger.With(
		zap.Int64("from_account_id", req.FromAccountID),
		zap.String("to_account_number", req.ToAccountNumber),
		zap.String("amount", req.Amount.String()),
	)

	if err := domain.ValidateAmount(req.Amount); err != nil {
		logger.Warn("Transfer rejected", zap.Error(err))
		return nil, err
	}

	from, to, err := s.checkTransfer(ctx, s.db, req)
	if err != nil {
		s.logFailure("Transfer rejected", err, zap.Int64("from_account_id", req.FromAccountID))
		return nil, err
	}

	var txn *domain.Transaction
	err = s.retryOnConflict(ctx, "transfer", func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
			var err error
			txn, err = s.transferTx(ctx, q, req, from.ID, to.ID)
			return err
		})
	})
	if err != nil {
		s.logFailure("Transfer failed", err, zap.Int64("from_account_id", req.FromAccountID))
		return nil, err
	}

	logger.Info("Transfer completed",
		zap.String("reference", txn.ReferenceNumber),
		zap.Int64("transaction_id", txn.ID))
	return txn, nil
}

// checkTransfer runs every precondition in order against current rows.
func (s *bankingService) checkTransfer(ctx context.Context, q domain.Querier, req TransferRequest) (*domain.Account, *domain.Account, error) {
	from, err := s.accountRepo.GetByIDTx(ctx, q, req.FromAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.NewError(domain.ErrNotFound, "source account %d not found", req.FromAccountID)
		}
		return nil, nil, err
	}
	if req.UserID != 0 && from.UserID != req.UserID {
		return nil, nil, domain.NewError(domain.ErrForbidden, "account %d does not belong to the requesting user", from.ID)
	}
	if err := checkSource(from, req.Amount); err != nil {
		return nil, nil, err
	}

	to, err := s.accountRepo.GetByNumberTx(ctx, q, req.ToAccountNumber)
	if err != nil {
		return nil, nil, err
	}
	if err := checkDestination(from, to); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func checkSource(from *domain.Account, amount decimal.Decimal) error {
	if !from.IsActive() {
		return domain.NewError(domain.ErrInvalidState, "source account %s is %s", from.AccountNumber, strings.ToLower(string(from.Status)))
	}
	if from.Balance.LessThan(amount) {
		return domain.NewError(domain.ErrInsufficientFunds, "insufficient funds in account %s", from.AccountNumber)
	}
	return nil
}

func checkDestination(from, to *domain.Account) error {
	if !to.IsActive() {
		return domain.NewError(domain.ErrInvalidState, "destination account %s is %s", to.AccountNumber, strings.ToLower(string(to.Status)))
	}
	if from.ID == to.ID {
		return domain.NewError(domain.ErrInvalidOperation, "cannot transfer to the same account")
	}
	if from.Currency != to.Currency {
		return domain.NewError(domain.ErrInvalidOperation, "cannot transfer %s to a %s account", from.Currency, to.Currency)
	}
	return nil
}

// lockPair locks both rows in ascending id order and returns them in
// (source, destination) order.
func (s *bankingService) lockPair(ctx context.Context, q domain.Querier, fromID, toID int64) (*domain.Account, *domain.Account, error) {
	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := s.accountRepo.LockByIDTx(ctx, q, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.accountRepo.LockByIDTx(ctx, q, secondID)
	if err != nil {
		return nil, nil, err
	}
	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

func (s *bankingService) transferTx(ctx context.Context, q domain.Querier, req TransferRequest, fromID, toID int64) (*domain.Transaction, error) {
	from, to, err := s.lockPair(ctx, q, fromID, toID)
	if err != nil {
		return nil, err
	}
	if err := checkSource(from, req.Amount); err != nil {
		return nil, err
	}
	if err := checkDestination(from, to); err != nil {
		return nil, err
	}

	reference, err := util.UniqueIdentifier(ctx, util.DefaultMaxAttempts, util.GenerateReferenceNumber,
		func(ctx context.Context, candidate string) (bool, error) {
			return s.ledgerRepo.ReferenceExistsTx(ctx, q, candidate)
		})
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ReferenceNumber:   reference,
		FromAccountID:     &from.ID,
		ToAccountID:       &to.ID,
		FromAccountNumber: from.AccountNumber,
		ToAccountNumber:   to.AccountNumber,
		Amount:            req.Amount,
		Type:              domain.TransactionTypeTransfer,
		Status:            domain.TransactionStatusPending,
		Description:       req.Description,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.ledgerRepo.CreateTx(ctx, q, txn); err != nil {
		return nil, err
	}

	if _, err := s.accountRepo.AddToBalanceTx(ctx, q, from.ID, req.Amount.Neg()); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.AddToBalanceTx(ctx, q, to.ID, req.Amount); err != nil {
		return nil, err
	}

	if err := s.completeTx(ctx, q, txn, from.Currency); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *bankingService) completeTx(ctx context.Context, q domain.Querier, txn *domain.Transaction, currency string) error {
	completedAt := time.Now().UTC()
	if err := s.ledgerRepo.MarkCompletedTx(ctx, q, txn.ID, completedAt); err != nil {
		return err
	}
	txn.Status = domain.TransactionStatusCompleted
	txn.CompletedAt = &completedAt

	msg, err := outbox.NewLedgerEntryCompletedMessage(txn, currency, s.ledgerTopic)
	if err != nil {
		return err
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, q, msg); err != nil {
		return fmt.Errorf("failed to queue ledger event for %s: %w", txn.ReferenceNumber, err)
	}
	return nil
}
