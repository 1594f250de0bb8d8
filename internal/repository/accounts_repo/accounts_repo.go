package accounts_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"banking/internal/domain"
)

const accountColumns = `id, user_id, account_number, account_type, balance, currency, status, created_at, updated_at`

type accountRepository struct{}

func NewAccountRepository() AccountRepository {
	return &accountRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.AccountNumber,
		&account.AccountType,
		&account.Balance,
		&account.Currency,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) CreateTx(ctx context.Context, querier domain.Querier, account *domain.Account) error {
	query := `
		INSERT INTO accounts (user_id, account_number, account_type, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		account.UserID, account.AccountNumber, account.AccountType, account.Balance,
		account.Currency, account.Status, account.CreatedAt, account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.WrapError(domain.ErrConflict, err, "account number %s is already taken", account.AccountNumber)
		}
		return fmt.Errorf("failed to create account for user %d: %w", account.UserID, err)
	}
	return nil
}

func (r *accountRepository) NumberExistsTx(ctx context.Context, querier domain.Querier, accountNumber string) (bool, error) {
	var exists bool
	err := querier.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account number %s: %w", accountNumber, err)
	}
	return exists, nil
}

func (r *accountRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "account %d not found", id)
		}
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

func (r *accountRepository) GetByNumberTx(ctx context.Context, querier domain.Querier, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	account, err := scanAccount(querier.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "destination account %s not found", accountNumber)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", accountNumber, err)
	}
	return account, nil
}

func (r *accountRepository) GetForUserTx(ctx context.Context, querier domain.Querier, userID, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	account, err := scanAccount(querier.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "account %d not found", id)
		}
		return nil, fmt.Errorf("failed to get account %d for user %d: %w", id, userID, err)
	}
	return account, nil
}

func (r *accountRepository) ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for user %d: %w", userID, err)
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) LockByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	account, err := scanAccount(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "account %d not found", id)
		}
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}
	return account, nil
}

// AddToBalanceTx applies delta and returns the resulting balance. The
// accounts_balance_non_negative constraint rejects any overdraft that slipped
// past the caller.
func (r *accountRepository) AddToBalanceTx(ctx context.Context, querier domain.Querier, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING balance
	`
	var balance decimal.Decimal
	err := querier.QueryRowContext(ctx, query, delta, time.Now().UTC(), id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.NewError(domain.ErrNotFound, "account %d not found", id)
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return decimal.Zero, domain.WrapError(domain.ErrInsufficientFunds, err, "insufficient funds in account %d", id)
		}
		return decimal.Zero, fmt.Errorf("failed to update balance for account %d: %w", id, err)
	}
	return balance, nil
}

func (r *accountRepository) UpdateDetailsTx(ctx context.Context, querier domain.Querier, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET account_type = $1, status = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := querier.ExecContext(ctx, query, account.AccountType, account.Status, account.UpdatedAt, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", account.ID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewError(domain.ErrNotFound, "account %d not found", account.ID)
	}
	return nil
}
