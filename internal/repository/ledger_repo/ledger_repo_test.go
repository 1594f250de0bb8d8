package ledger_repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"banking/internal/domain"
)

var columns = []string{
	"id", "reference_number", "from_account_id", "to_account_id", "from_number", "to_number",
	"amount", "transaction_type", "status", "description", "created_at", "completed_at",
}

func ptr(v int64) *int64 { return &v }

func TestCreateTxDeposit(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	now := time.Now()
	txn := &domain.Transaction{
		ReferenceNumber: "TXNABCDEF123456",
		ToAccountID:     ptr(5),
		Amount:          decimal.RequireFromString("25.50"),
		Type:            domain.TransactionTypeDeposit,
		Status:          domain.TransactionStatusPending,
		CreatedAt:       now,
	}

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("TXNABCDEF123456", nil, int64(5), txn.Amount, "DEPOSIT", "PENDING", "", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	if err := NewLedgerRepository().CreateTx(context.Background(), db, txn); err != nil {
		t.Fatalf("CreateTx() error = %v", err)
	}
	if txn.ID != 11 {
		t.Fatalf("ID = %d", txn.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateTxRequiresAnAccount(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	err := NewLedgerRepository().CreateTx(context.Background(), db, &domain.Transaction{Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, domain.ErrInvalidOperation) {
		t.Fatalf("want ErrInvalidOperation, got %v", err)
	}
}

func TestCreateTxDuplicateReference(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_reference_number_key"})

	err := NewLedgerRepository().CreateTx(context.Background(), db, &domain.Transaction{ToAccountID: ptr(1)})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestMarkCompletedTxOnlyFromPending(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectExec("UPDATE transactions").
		WithArgs("COMPLETED", sqlmock.AnyArg(), int64(11), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewLedgerRepository().MarkCompletedTx(context.Background(), db, 11, time.Now())
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestListTxBuildsFilters(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("AND (t.from_account_id = $2 OR t.to_account_id = $2) AND t.transaction_type = $3 ORDER BY t.created_at DESC, t.id DESC LIMIT $4")).
		WithArgs(int64(7), int64(3), "TRANSFER", 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "TXN000000000002", 3, 4, "333333333333", "444444444444", "500.00", "TRANSFER", "COMPLETED", "rent", now, now).
			AddRow(1, "TXN000000000001", nil, 3, "", "333333333333", "100.00", "TRANSFER", "COMPLETED", "", now, nil))

	entries, err := NewLedgerRepository().ListTx(context.Background(), db, domain.TransactionFilter{
		UserID:    7,
		AccountID: ptr(3),
		Type:      domain.TransactionTypeTransfer,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("ListTx() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].FromAccountNumber != "333333333333" || entries[0].CompletedAt == nil {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].FromAccountID != nil || entries[1].CompletedAt != nil {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestListTxWithoutFilters(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (fa.user_id = $1 OR ta.user_id = $1) ORDER BY")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns))

	entries, err := NewLedgerRepository().ListTx(context.Background(), db, domain.TransactionFilter{UserID: 7})
	if err != nil {
		t.Fatalf("ListTx() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries", len(entries))
	}
}
