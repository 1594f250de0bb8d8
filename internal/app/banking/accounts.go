package banking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"banking/internal/domain"
	"banking/internal/util"
)

type Balance struct {
	AccountNumber string
	Balance       decimal.Decimal
	Currency      string
}

// AccountUpdate carries optional changes. Nil fields are left as they are.
type AccountUpdate struct {
	Status      *domain.AccountStatus
	AccountType *domain.AccountType
}

func (s *bankingService) OpenAccount(ctx context.Context, userID int64, accountType domain.AccountType, currency string) (*domain.Account, error) {
	if accountType == "" {
		accountType = domain.AccountTypeChecking
	}
	if !accountType.Valid() {
		return nil, domain.NewError(domain.ErrInvalidOperation, "unknown account type %q", accountType)
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	if !domain.IsValidCurrency(currency) {
		return nil, domain.NewError(domain.ErrInvalidOperation, "invalid currency code %q", currency)
	}

	var account *domain.Account
	err := s.retryOnConflict(ctx, "open_account", func() error {
		return s.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
			number, err := util.UniqueIdentifier(ctx, util.DefaultMaxAttempts, util.GenerateAccountNumber,
				func(ctx context.Context, candidate string) (bool, error) {
					return s.accountRepo.NumberExistsTx(ctx, q, candidate)
				})
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			account = &domain.Account{
				UserID:        userID,
				AccountNumber: number,
				AccountType:   accountType,
				Balance:       decimal.Zero,
				Currency:      currency,
				Status:        domain.AccountStatusActive,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			return s.accountRepo.CreateTx(ctx, q, account)
		})
	})
	if err != nil {
		s.logFailure("Failed to open account", err, zap.Int64("user_id", userID))
		return nil, err
	}

	s.logger.Info("Account opened",
		zap.Int64("user_id", userID),
		zap.Int64("account_id", account.ID),
		zap.String("account_number", account.AccountNumber))
	return account, nil
}

func (s *bankingService) ListAccounts(ctx context.Context, userID int64) ([]*domain.Account, error) {
	return s.accountRepo.ListByUserTx(ctx, s.db, userID)
}

func (s *bankingService) GetAccount(ctx context.Context, userID, accountID int64) (*domain.Account, error) {
	return s.accountRepo.GetForUserTx(ctx, s.db, userID, accountID)
}

func (s *bankingService) GetBalance(ctx context.Context, userID, accountID int64) (*Balance, error) {
	account, err := s.accountRepo.GetForUserTx(ctx, s.db, userID, accountID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Currency:      account.Currency,
	}, nil
}

// UpdateAccount applies a status or type change under the row lock so a
// concurrent transfer cannot slip between the zero-balance check and closing.
func (s *bankingService) UpdateAccount(ctx context.Context, userID, accountID int64, update AccountUpdate) (*domain.Account, error) {
	var account *domain.Account
	err := s.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
		if _, err := s.accountRepo.GetForUserTx(ctx, q, userID, accountID); err != nil {
			return err
		}
		locked, err := s.accountRepo.LockByIDTx(ctx, q, accountID)
		if err != nil {
			return err
		}

		if update.AccountType != nil {
			if !update.AccountType.Valid() {
				return domain.NewError(domain.ErrInvalidOperation, "unknown account type %q", *update.AccountType)
			}
			if locked.Status == domain.AccountStatusClosed {
				return domain.NewError(domain.ErrInvalidState, "account %s is closed", locked.AccountNumber)
			}
			locked.AccountType = *update.AccountType
		}
		if update.Status != nil {
			if err := locked.TransitionTo(*update.Status); err != nil {
				return err
			}
			locked.Status = *update.Status
		}

		locked.UpdatedAt = time.Now().UTC()
		if err := s.accountRepo.UpdateDetailsTx(ctx, q, locked); err != nil {
			return err
		}
		account = locked
		return nil
	})
	if err != nil {
		s.logFailure("Failed to update account", err, zap.Int64("account_id", accountID))
		return nil, err
	}

	s.logger.Info("Account updated",
		zap.Int64("account_id", account.ID),
		zap.String("status", string(account.Status)),
		zap.String("account_type", string(account.AccountType)))
	return account, nil
}
