package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"banking/internal/domain"
)

// Postgres SQLSTATE codes the banking service reacts to.
const (
	codeUniqueViolation   = "23505"
	codeCheckViolation    = "23514"
	codeLockNotAvailable  = "55P03"
	codeQueryCanceled     = "57014"
	codeDeadlockDetected  = "40P01"
	codeSerializationFail = "40001"
	codeNumericOutOfRange = "22003"

	balanceCheckConstraint = "accounts_balance_non_negative"
)

// TxManager runs units of work inside a single database transaction with a
// bounded lock wait.
type TxManager struct {
	db          *sql.DB
	lockTimeout time.Duration
	logger      *zap.Logger
}

func NewTxManager(db *sql.DB, lockTimeout time.Duration, logger *zap.Logger) *TxManager {
	return &TxManager{db: db, lockTimeout: lockTimeout, logger: logger}
}

// WithinTx commits when fn returns nil and rolls back otherwise, including on
// panic. Returned errors are translated onto domain error kinds.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, q domain.Querier) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
		return TranslateError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Recovered panic inside transaction, rolling back", zap.Any("panic", r))
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if m.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			m.rollback(tx)
			return TranslateError(fmt.Errorf("failed to set lock timeout: %w", err))
		}
	}

	if err := fn(ctx, tx); err != nil {
		m.rollback(tx)
		return TranslateError(err)
	}

	if err := tx.Commit(); err != nil {
		m.logger.Error("Failed to commit transaction", zap.Error(err))
		return TranslateError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (m *TxManager) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		m.logger.Error("Failed to roll back transaction", zap.Error(err))
	}
}

// TranslateError maps Postgres failures onto domain error kinds. A *domain.Error
// is returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return domain.WrapError(domain.ErrConflict, err, "duplicate value violates %s", pqErr.Constraint)
		case codeCheckViolation:
			if pqErr.Constraint == balanceCheckConstraint {
				return domain.WrapError(domain.ErrInsufficientFunds, err, "insufficient funds")
			}
			return domain.WrapError(domain.ErrInvalidOperation, err, "value violates %s", pqErr.Constraint)
		case codeNumericOutOfRange:
			return domain.WrapError(domain.ErrInvalidOperation, err, "balance limit exceeded")
		case codeLockNotAvailable, codeQueryCanceled, codeDeadlockDetected, codeSerializationFail:
			return domain.WrapError(domain.ErrTimeout, err, "timed out waiting for account lock, retry the request")
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTimeout, err, "operation timed out")
	}
	return err
}
