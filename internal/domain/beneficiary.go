package domain

import "time"

const DefaultBankName = "Demo Bank"

// Beneficiary is a saved payee. AccountNumber is stored by value and need not
// exist in the accounts table.
type Beneficiary struct {
	ID            int64
	UserID        int64
	Name          string
	AccountNumber string
	BankName      string
	Nickname      string
	CreatedAt     time.Time
}
