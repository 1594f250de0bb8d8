package banking_http

import (
	"time"

	"github.com/shopspring/decimal"

	"banking/internal/domain"
)

// Amount reads a JSON number or string. Parse failures surface as a field
// error on "amount".
type Amount struct {
	decimal.Decimal
}

type amountDecodeError struct {
	err error
}

func (e *amountDecodeError) Error() string { return "invalid amount: " + e.err.Error() }

func (e *amountDecodeError) Unwrap() error { return e.err }

func (a *Amount) UnmarshalJSON(b []byte) error {
	if err := a.Decimal.UnmarshalJSON(b); err != nil {
		return &amountDecodeError{err: err}
	}
	return nil
}

type OpenAccountRequest struct {
	AccountType string `json:"account_type"`
	Currency    string `json:"currency"`
}

type UpdateAccountRequest struct {
	Status      *string `json:"status"`
	AccountType *string `json:"account_type"`
}

type DepositRequest struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
}

type TransferRequest struct {
	FromAccountID   int64  `json:"from_account_id"`
	ToAccountNumber string `json:"to_account_number"`
	Amount          Amount `json:"amount"`
	Description     string `json:"description"`
}

type CreateBeneficiaryRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	Nickname      string `json:"nickname"`
}

type AccountResponse struct {
	ID            int64     `json:"id"`
	AccountNumber string    `json:"account_number"`
	AccountType   string    `json:"account_type"`
	Balance       string    `json:"balance"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BalanceResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
}

type TransactionResponse struct {
	ID                int64      `json:"id"`
	ReferenceNumber   string     `json:"reference_number"`
	FromAccountNumber *string    `json:"from_account_number"`
	ToAccountNumber   *string    `json:"to_account_number"`
	Amount            string     `json:"amount"`
	TransactionType   string     `json:"transaction_type"`
	Status            string     `json:"status"`
	Description       string     `json:"description"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at"`
}

type BeneficiaryResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	Nickname      string    `json:"nickname"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		AccountType:   string(a.AccountType),
		Balance:       a.Balance.StringFixed(domain.AmountScale),
		Currency:      a.Currency,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID,
		ReferenceNumber:   t.ReferenceNumber,
		FromAccountNumber: optional(t.FromAccountNumber),
		ToAccountNumber:   optional(t.ToAccountNumber),
		Amount:            t.Amount.StringFixed(domain.AmountScale),
		TransactionType:   string(t.Type),
		Status:            string(t.Status),
		Description:       t.Description,
		CreatedAt:         t.CreatedAt,
		CompletedAt:       t.CompletedAt,
	}
}

func toTransactionResponses(entries []*domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toTransactionResponse(e))
	}
	return out
}

func toBeneficiaryResponse(b *domain.Beneficiary) BeneficiaryResponse {
	return BeneficiaryResponse{
		ID:            b.ID,
		Name:          b.Name,
		AccountNumber: b.AccountNumber,
		BankName:      b.BankName,
		Nickname:      b.Nickname,
		CreatedAt:     b.CreatedAt,
	}
}
