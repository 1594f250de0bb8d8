package beneficiaries_repo

import (
	"context"

	"banking/internal/domain"
)

type BeneficiaryRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, beneficiary *domain.Beneficiary) error
	ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]*domain.Beneficiary, error)
	DeleteTx(ctx context.Context, querier domain.Querier, userID, id int64) error
}
