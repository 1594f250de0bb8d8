package beneficiaries_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"banking/internal/domain"
)

type beneficiaryRepository struct{}

func NewBeneficiaryRepository() BeneficiaryRepository {
	return &beneficiaryRepository{}
}

func (r *beneficiaryRepository) CreateTx(ctx context.Context, querier domain.Querier, beneficiary *domain.Beneficiary) error {
	query := `
		INSERT INTO beneficiaries (user_id, name, account_number, bank_name, nickname, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		beneficiary.UserID,
		beneficiary.Name,
		beneficiary.AccountNumber,
		beneficiary.BankName,
		beneficiary.Nickname,
		beneficiary.CreatedAt,
	).Scan(&beneficiary.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.WrapError(domain.ErrConflict, err, "beneficiary with account number %s already exists", beneficiary.AccountNumber)
		}
		return fmt.Errorf("failed to create beneficiary for user %d: %w", beneficiary.UserID, err)
	}
	return nil
}

func (r *beneficiaryRepository) ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]*domain.Beneficiary, error) {
	query := `
		SELECT id, user_id, name, account_number, bank_name, nickname, created_at
		FROM beneficiaries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries for user %d: %w", userID, err)
	}
	defer rows.Close()

	beneficiaries := []*domain.Beneficiary{}
	for rows.Next() {
		b := &domain.Beneficiary{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.AccountNumber, &b.BankName, &b.Nickname, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		beneficiaries = append(beneficiaries, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating beneficiaries: %w", err)
	}
	return beneficiaries, nil
}

func (r *beneficiaryRepository) DeleteTx(ctx context.Context, querier domain.Querier, userID, id int64) error {
	res, err := querier.ExecContext(ctx, `DELETE FROM beneficiaries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete beneficiary %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewError(domain.ErrNotFound, "beneficiary %d not found", id)
	}
	return nil
}
