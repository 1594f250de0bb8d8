package inbox_repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"banking/internal/domain"
)

func TestCreateMessageTxDuplicate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectExec("INSERT INTO inbox_messages").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "inbox_messages_pkey"})

	err := NewInboxRepository().CreateMessageTx(context.Background(), db, &domain.InboxMessage{
		ID:         "evt-1",
		Topic:      "deposit_requests",
		Payload:    []byte(`{}`),
		Status:     domain.InboxStatusNew,
		ReceivedAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrMessageAlreadyProcessed) {
		t.Fatalf("want ErrMessageAlreadyProcessed, got %v", err)
	}
}

func TestUpdateStatusTx(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectExec("UPDATE inbox_messages").
		WithArgs("FAILED", "account 9 not found", sqlmock.AnyArg(), "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewInboxRepository().UpdateStatusTx(context.Background(), db, "evt-1", domain.InboxStatusFailed, "account 9 not found")
	if err != nil {
		t.Fatalf("UpdateStatusTx() error = %v", err)
	}
}
