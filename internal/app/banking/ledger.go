package banking

import (
	"context"

	"banking/internal/domain"
)

// ListTransactions returns entries touching the caller's accounts, newest
// first. An account filter narrows within that set, so a counterparty's
// account only shows the entries it shares with the caller.
func (s *bankingService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.NewError(domain.ErrInvalidOperation, "unknown transaction type %q", filter.Type)
	}
	return s.ledgerRepo.ListTx(ctx, s.db, filter)
}

func (s *bankingService) RecentTransactions(ctx context.Context, userID int64) ([]*domain.Transaction, error) {
	return s.ledgerRepo.ListTx(ctx, s.db, domain.TransactionFilter{
		UserID: userID,
		Limit:  RecentTransactionsLimit,
	})
}

func (s *bankingService) Statement(ctx context.Context, userID, accountID int64) (*domain.Account, []*domain.Transaction, error) {
	account, err := s.accountRepo.GetForUserTx(ctx, s.db, userID, accountID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.ledgerRepo.ListForAccountTx(ctx, s.db, account.ID, StatementEntriesLimit)
	if err != nil {
		return nil, nil, err
	}
	return account, entries, nil
}
