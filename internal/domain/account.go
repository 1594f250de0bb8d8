package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeBusiness AccountType = "BUSINESS"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusFrozen AccountStatus = "FROZEN"
	AccountStatusClosed AccountStatus = "CLOSED"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}
	return false
}

const (
	AccountNumberLength = 12
	DefaultCurrency     = "USD"
)

// Account is a row of the accounts table. Balance is only ever changed by the
// banking service while the row is locked.
type Account struct {
	ID            int64
	UserID        int64
	AccountNumber string
	AccountType   AccountType
	Balance       decimal.Decimal
	Currency      string
	Status        AccountStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// TransitionTo validates a status change. Closing requires a zero balance and
// a closed account never reopens.
func (a *Account) TransitionTo(next AccountStatus) error {
	if !next.Valid() {
		return NewError(ErrInvalidOperation, "unknown account status %q", next)
	}
	if a.Status == next {
		return nil
	}
	if a.Status == AccountStatusClosed {
		return NewError(ErrInvalidState, "account %s is closed", a.AccountNumber)
	}
	if next == AccountStatusClosed && !a.Balance.IsZero() {
		return NewError(ErrInvalidState, "account %s must have a zero balance to be closed", a.AccountNumber)
	}
	return nil
}

func IsValidAccountNumber(s string) bool {
	if len(s) != AccountNumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func IsValidCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
