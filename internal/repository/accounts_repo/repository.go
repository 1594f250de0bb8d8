package accounts_repo

import (
	"context"

	"github.com/shopspring/decimal"

	"banking/internal/domain"
)

type AccountRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, account *domain.Account) error
	NumberExistsTx(ctx context.Context, querier domain.Querier, accountNumber string) (bool, error)
	GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error)
	GetByNumberTx(ctx context.Context, querier domain.Querier, accountNumber string) (*domain.Account, error)
	GetForUserTx(ctx context.Context, querier domain.Querier, userID, id int64) (*domain.Account, error)
	ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]*domain.Account, error)
	// LockByIDTx reads the row with SELECT ... FOR UPDATE. It must run inside a transaction.
	LockByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error)
	AddToBalanceTx(ctx context.Context, querier domain.Querier, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	UpdateDetailsTx(ctx context.Context, querier domain.Querier, account *domain.Account) error
}
