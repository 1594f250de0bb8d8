package beneficiaries_repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"banking/internal/domain"
)

func TestCreateTxDuplicate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectQuery("INSERT INTO beneficiaries").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "beneficiaries_user_account_key"})

	err := NewBeneficiaryRepository().CreateTx(context.Background(), db, &domain.Beneficiary{UserID: 1, AccountNumber: "123456789012"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewBeneficiaryRepository()

	mock.ExpectQuery("FROM beneficiaries").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "account_number", "bank_name", "nickname", "created_at"}).
			AddRow(4, 1, "Ada", "123456789012", "Demo Bank", "landlord", time.Now()))
	mock.ExpectExec("DELETE FROM beneficiaries").
		WithArgs(int64(4), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM beneficiaries").
		WithArgs(int64(4), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	list, err := repo.ListByUserTx(context.Background(), db, 1)
	if err != nil || len(list) != 1 || list[0].Nickname != "landlord" {
		t.Fatalf("ListByUserTx() = %+v, %v", list, err)
	}
	if err := repo.DeleteTx(context.Background(), db, 1, 4); err != nil {
		t.Fatalf("DeleteTx() error = %v", err)
	}
	if err := repo.DeleteTx(context.Background(), db, 1, 4); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second DeleteTx() = %v, want ErrNotFound", err)
	}
}
