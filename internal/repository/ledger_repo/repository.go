package ledger_repo

import (
	"context"
	"time"

	"banking/internal/domain"
)

type LedgerRepository interface {
	ReferenceExistsTx(ctx context.Context, querier domain.Querier, reference string) (bool, error)
	CreateTx(ctx context.Context, querier domain.Querier, txn *domain.Transaction) error
	MarkCompletedTx(ctx context.Context, querier domain.Querier, id int64, completedAt time.Time) error
	ListTx(ctx context.Context, querier domain.Querier, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	ListForAccountTx(ctx context.Context, querier domain.Querier, accountID int64, limit int) ([]*domain.Transaction, error)
}
