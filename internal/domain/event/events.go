package event

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeLedgerEntryCompleted = "ledger_entry.completed"
	TypeDepositRequested     = "deposit.requested"
)

type LedgerEntryCompletedEvent struct {
	EventID           string          `json:"event_id"`
	ReferenceNumber   string          `json:"reference_number"`
	Type              string          `json:"type"`
	FromAccountNumber string          `json:"from_account_number,omitempty"`
	ToAccountNumber   string          `json:"to_account_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	CompletedAt       time.Time       `json:"completed_at"`
}

type DepositRequestedEvent struct {
	EventID     string          `json:"event_id"`
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}
