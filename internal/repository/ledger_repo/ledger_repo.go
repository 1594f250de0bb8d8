package ledger_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"banking/internal/domain"
)

const selectTransactions = `
	SELECT t.id, t.reference_number, t.from_account_id, t.to_account_id,
		COALESCE(fa.account_number, ''), COALESCE(ta.account_number, ''),
		t.amount, t.transaction_type, t.status, t.description, t.created_at, t.completed_at
	FROM transactions t
	LEFT JOIN accounts fa ON fa.id = t.from_account_id
	LEFT JOIN accounts ta ON ta.id = t.to_account_id
`

type ledgerRepository struct{}

func NewLedgerRepository() LedgerRepository {
	return &ledgerRepository{}
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func (r *ledgerRepository) ReferenceExistsTx(ctx context.Context, querier domain.Querier, reference string) (bool, error) {
	var exists bool
	err := querier.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE reference_number = $1)`, reference,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reference %s: %w", reference, err)
	}
	return exists, nil
}

func (r *ledgerRepository) CreateTx(ctx context.Context, querier domain.Querier, txn *domain.Transaction) error {
	if txn.FromAccountID == nil && txn.ToAccountID == nil {
		return domain.NewError(domain.ErrInvalidOperation, "ledger entry needs at least one account")
	}
	query := `
		INSERT INTO transactions
			(reference_number, from_account_id, to_account_id, amount, transaction_type, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		txn.ReferenceNumber,
		nullableID(txn.FromAccountID),
		nullableID(txn.ToAccountID),
		txn.Amount,
		txn.Type,
		txn.Status,
		txn.Description,
		txn.CreatedAt,
	).Scan(&txn.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.WrapError(domain.ErrConflict, err, "reference %s is already taken", txn.ReferenceNumber)
		}
		return fmt.Errorf("failed to create ledger entry %s: %w", txn.ReferenceNumber, err)
	}
	return nil
}

// MarkCompletedTx flips a PENDING entry to COMPLETED. Entries that already left
// PENDING are never touched again.
func (r *ledgerRepository) MarkCompletedTx(ctx context.Context, querier domain.Querier, id int64, completedAt time.Time) error {
	query := `
		UPDATE transactions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := querier.ExecContext(ctx, query,
		domain.TransactionStatusCompleted, completedAt, id, domain.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete ledger entry %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewError(domain.ErrInvalidState, "ledger entry %d is not pending", id)
	}
	return nil
}

func (r *ledgerRepository) ListTx(ctx context.Context, querier domain.Querier, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(selectTransactions)

	args = append(args, filter.UserID)
	sb.WriteString(` WHERE (fa.user_id = $1 OR ta.user_id = $1)`)

	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		fmt.Fprintf(&sb, ` AND (t.from_account_id = $%d OR t.to_account_id = $%d)`, len(args), len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		fmt.Fprintf(&sb, ` AND t.transaction_type = $%d`, len(args))
	}
	sb.WriteString(` ORDER BY t.created_at DESC, t.id DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	return r.query(ctx, querier, sb.String(), args...)
}

func (r *ledgerRepository) ListForAccountTx(ctx context.Context, querier domain.Querier, accountID int64, limit int) ([]*domain.Transaction, error) {
	query := selectTransactions + `
		WHERE t.from_account_id = $1 OR t.to_account_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2
	`
	return r.query(ctx, querier, query, accountID, limit)
}

func (r *ledgerRepository) query(ctx context.Context, querier domain.Querier, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []*domain.Transaction{}
	for rows.Next() {
		txn := &domain.Transaction{}
		var (
			fromID, toID sql.NullInt64
			completedAt  sql.NullTime
		)
		err := rows.Scan(
			&txn.ID,
			&txn.ReferenceNumber,
			&fromID,
			&toID,
			&txn.FromAccountNumber,
			&txn.ToAccountNumber,
			&txn.Amount,
			&txn.Type,
			&txn.Status,
			&txn.Description,
			&txn.CreatedAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if fromID.Valid {
			id := fromID.Int64
			txn.FromAccountID = &id
		}
		if toID.Valid {
			id := toID.Int64
			txn.ToAccountID = &id
		}
		if completedAt.Valid {
			txn.CompletedAt = &completedAt.Time
		}
		entries = append(entries, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
