package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypePayment    TransactionType = "PAYMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypePayment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

const ReferencePrefix = "TXN"

// Transaction is a ledger entry. Transfers carry both account ids, deposits
// only ToAccountID, withdrawals and payments only FromAccountID.
type Transaction struct {
	ID              int64
	ReferenceNumber string
	FromAccountID   *int64
	ToAccountID     *int64
	// Account numbers are resolved on read and are empty when the side is absent.
	FromAccountNumber string
	ToAccountNumber   string
	Amount            decimal.Decimal
	Type              TransactionType
	Status            TransactionStatus
	Description       string
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

func (t *Transaction) IsIncomingFor(accountID int64) bool {
	return t.ToAccountID != nil && *t.ToAccountID == accountID
}

// TransactionFilter narrows a ledger query to the entries touching accounts
// owned by UserID.
type TransactionFilter struct {
	UserID    int64
	AccountID *int64
	Type      TransactionType
	Limit     int
}
