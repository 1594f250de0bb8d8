package banking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"banking/internal/domain"
)

var errNotSupported = errors.New("fake querier does not run SQL")

// fakeDB stands in for the connection pool on plain reads.
type fakeDB struct{}

func (fakeDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNotSupported
}
func (fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNotSupported
}
func (fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

// fakeTx records undo steps and the row locks it holds.
type fakeTx struct {
	fakeDB
	held []int64
	undo []func()
}

func (tx *fakeTx) holds(id int64) bool {
	for _, h := range tx.held {
		if h == id {
			return true
		}
	}
	return false
}

// store is an in-memory database with per-row exclusive locks.
type store struct {
	mu            sync.Mutex
	rowLocks      map[int64]*sync.Mutex
	accounts      map[int64]*domain.Account
	ledger        []*domain.Transaction
	outbox        []*domain.OutboxMessage
	inbox         map[string]*domain.InboxMessage
	beneficiaries []*domain.Beneficiary
	nextID        int64
	lockLog       [][]int64

	// ledgerConflicts makes the next N ledger inserts fail as if the
	// reference had been taken concurrently.
	ledgerConflicts int
}

func newStore() *store {
	return &store{
		rowLocks: map[int64]*sync.Mutex{},
		accounts: map[int64]*domain.Account{},
		inbox:    map[string]*domain.InboxMessage{},
	}
}

func (st *store) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *store) rowLock(id int64) *sync.Mutex {
	st.mu.Lock()
	defer st.mu.Unlock()
	l, ok := st.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		st.rowLocks[id] = l
	}
	return l
}

// write applies fn under the store mutex and registers undo with q when q is
// a transaction.
func (st *store) write(q domain.Querier, fn func(), undo func()) {
	st.mu.Lock()
	fn()
	st.mu.Unlock()
	if tx, ok := q.(*fakeTx); ok {
		tx.undo = append(tx.undo, func() {
			st.mu.Lock()
			undo()
			st.mu.Unlock()
		})
	}
}

func (st *store) addAccount(t *testing.T, userID int64, number, balance string, status domain.AccountStatus) *domain.Account {
	t.Helper()
	st.mu.Lock()
	defer st.mu.Unlock()
	a := &domain.Account{
		ID:            st.id(),
		UserID:        userID,
		AccountNumber: number,
		AccountType:   domain.AccountTypeChecking,
		Balance:       decimal.RequireFromString(balance),
		Currency:      "USD",
		Status:        status,
	}
	st.accounts[a.ID] = a
	clone := *a
	return &clone
}

func (st *store) balance(id int64) decimal.Decimal {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.accounts[id].Balance
}

func (st *store) total() decimal.Decimal {
	st.mu.Lock()
	defer st.mu.Unlock()
	sum := decimal.Zero
	for _, a := range st.accounts {
		sum = sum.Add(a.Balance)
	}
	return sum
}

func (st *store) ledgerLen() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.ledger)
}

type fakeTxManager struct{ st *store }

func (m fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, q domain.Querier) error) error {
	tx := &fakeTx{}
	err := fn(ctx, tx)
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	for _, id := range tx.held {
		m.st.rowLock(id).Unlock()
	}
	if len(tx.held) > 0 {
		m.st.mu.Lock()
		m.st.lockLog = append(m.st.lockLog, tx.held)
		m.st.mu.Unlock()
	}
	return err
}

type fakeAccounts struct{ st *store }

func (r fakeAccounts) find(pred func(*domain.Account) bool) *domain.Account {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, a := range r.st.accounts {
		if pred(a) {
			clone := *a
			return &clone
		}
	}
	return nil
}

func (r fakeAccounts) CreateTx(_ context.Context, q domain.Querier, account *domain.Account) error {
	if r.find(func(a *domain.Account) bool { return a.AccountNumber == account.AccountNumber }) != nil {
		return domain.NewError(domain.ErrConflict, "account number %s is already taken", account.AccountNumber)
	}
	r.st.write(q, func() {
		account.ID = r.st.id()
		clone := *account
		r.st.accounts[account.ID] = &clone
	}, func() {
		delete(r.st.accounts, account.ID)
	})
	return nil
}

func (r fakeAccounts) NumberExistsTx(_ context.Context, _ domain.Querier, number string) (bool, error) {
	return r.find(func(a *domain.Account) bool { return a.AccountNumber == number }) != nil, nil
}

func (r fakeAccounts) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.Account, error) {
	if a := r.find(func(a *domain.Account) bool { return a.ID == id }); a != nil {
		return a, nil
	}
	return nil, domain.NewError(domain.ErrNotFound, "account %d not found", id)
}

func (r fakeAccounts) GetByNumberTx(_ context.Context, _ domain.Querier, number string) (*domain.Account, error) {
	if a := r.find(func(a *domain.Account) bool { return a.AccountNumber == number }); a != nil {
		return a, nil
	}
	return nil, domain.NewError(domain.ErrNotFound, "destination account %s not found", number)
}

func (r fakeAccounts) GetForUserTx(_ context.Context, _ domain.Querier, userID, id int64) (*domain.Account, error) {
	if a := r.find(func(a *domain.Account) bool { return a.ID == id && a.UserID == userID }); a != nil {
		return a, nil
	}
	return nil, domain.NewError(domain.ErrNotFound, "account %d not found", id)
}

func (r fakeAccounts) ListByUserTx(_ context.Context, _ domain.Querier, userID int64) ([]*domain.Account, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	accounts := []*domain.Account{}
	for _, a := range r.st.accounts {
		if a.UserID == userID {
			clone := *a
			accounts = append(accounts, &clone)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID > accounts[j].ID })
	return accounts, nil
}

func (r fakeAccounts) LockByIDTx(_ context.Context, q domain.Querier, id int64) (*domain.Account, error) {
	tx, ok := q.(*fakeTx)
	if !ok {
		return nil, fmt.Errorf("lock on account %d outside a transaction", id)
	}
	if _, err := r.GetByIDTx(context.Background(), q, id); err != nil {
		return nil, err
	}
	if !tx.holds(id) {
		r.st.rowLock(id).Lock()
		tx.held = append(tx.held, id)
	}
	return r.GetByIDTx(context.Background(), q, id)
}

func (r fakeAccounts) AddToBalanceTx(_ context.Context, q domain.Querier, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if tx, ok := q.(*fakeTx); !ok || !tx.holds(id) {
		return decimal.Zero, fmt.Errorf("balance of account %d changed without its row lock", id)
	}
	r.st.mu.Lock()
	next := r.st.accounts[id].Balance.Add(delta)
	r.st.mu.Unlock()
	if next.IsNegative() {
		return decimal.Zero, domain.NewError(domain.ErrInsufficientFunds, "insufficient funds in account %d", id)
	}
	r.st.write(q, func() {
		r.st.accounts[id].Balance = next
	}, func() {
		r.st.accounts[id].Balance = r.st.accounts[id].Balance.Sub(delta)
	})
	return next, nil
}

func (r fakeAccounts) UpdateDetailsTx(_ context.Context, q domain.Querier, account *domain.Account) error {
	old, err := r.GetByIDTx(context.Background(), q, account.ID)
	if err != nil {
		return err
	}
	r.st.write(q, func() {
		a := r.st.accounts[account.ID]
		a.AccountType, a.Status, a.UpdatedAt = account.AccountType, account.Status, account.UpdatedAt
	}, func() {
		a := r.st.accounts[account.ID]
		a.AccountType, a.Status, a.UpdatedAt = old.AccountType, old.Status, old.UpdatedAt
	})
	return nil
}

type fakeLedger struct{ st *store }

func (r fakeLedger) ReferenceExistsTx(_ context.Context, _ domain.Querier, reference string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, t := range r.st.ledger {
		if t.ReferenceNumber == reference {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeLedger) CreateTx(_ context.Context, q domain.Querier, txn *domain.Transaction) error {
	if txn.FromAccountID == nil && txn.ToAccountID == nil {
		return domain.NewError(domain.ErrInvalidOperation, "ledger entry needs at least one account")
	}
	r.st.mu.Lock()
	if r.st.ledgerConflicts > 0 {
		r.st.ledgerConflicts--
		r.st.mu.Unlock()
		return domain.NewError(domain.ErrConflict, "reference %s is already taken", txn.ReferenceNumber)
	}
	r.st.mu.Unlock()
	if taken, _ := r.ReferenceExistsTx(context.Background(), q, txn.ReferenceNumber); taken {
		return domain.NewError(domain.ErrConflict, "reference %s is already taken", txn.ReferenceNumber)
	}

	var stored *domain.Transaction
	r.st.write(q, func() {
		txn.ID = r.st.id()
		clone := *txn
		stored = &clone
		r.st.ledger = append(r.st.ledger, stored)
	}, func() {
		for i, t := range r.st.ledger {
			if t == stored {
				r.st.ledger = append(r.st.ledger[:i], r.st.ledger[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r fakeLedger) MarkCompletedTx(_ context.Context, q domain.Querier, id int64, completedAt time.Time) error {
	r.st.mu.Lock()
	var entry *domain.Transaction
	for _, t := range r.st.ledger {
		if t.ID == id {
			entry = t
		}
	}
	r.st.mu.Unlock()
	if entry == nil || entry.Status != domain.TransactionStatusPending {
		return domain.NewError(domain.ErrInvalidState, "ledger entry %d is not pending", id)
	}
	r.st.write(q, func() {
		entry.Status = domain.TransactionStatusCompleted
		entry.CompletedAt = &completedAt
	}, func() {
		entry.Status = domain.TransactionStatusPending
		entry.CompletedAt = nil
	})
	return nil
}

func touches(t *domain.Transaction, id int64) bool {
	return (t.FromAccountID != nil && *t.FromAccountID == id) || (t.ToAccountID != nil && *t.ToAccountID == id)
}

func (r fakeLedger) ListTx(_ context.Context, _ domain.Querier, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	entries := []*domain.Transaction{}
	for i := len(r.st.ledger) - 1; i >= 0; i-- {
		t := r.st.ledger[i]
		owned := false
		for _, a := range r.st.accounts {
			if a.UserID == filter.UserID && touches(t, a.ID) {
				owned = true
			}
		}
		if !owned {
			continue
		}
		if filter.AccountID != nil && !touches(t, *filter.AccountID) {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		clone := *t
		entries = append(entries, &clone)
		if filter.Limit > 0 && len(entries) == filter.Limit {
			break
		}
	}
	return entries, nil
}

func (r fakeLedger) ListForAccountTx(_ context.Context, _ domain.Querier, accountID int64, limit int) ([]*domain.Transaction, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	entries := []*domain.Transaction{}
	for i := len(r.st.ledger) - 1; i >= 0 && len(entries) < limit; i-- {
		if touches(r.st.ledger[i], accountID) {
			clone := *r.st.ledger[i]
			entries = append(entries, &clone)
		}
	}
	return entries, nil
}

type fakeBeneficiaries struct{ st *store }

func (r fakeBeneficiaries) CreateTx(_ context.Context, q domain.Querier, b *domain.Beneficiary) error {
	r.st.mu.Lock()
	for _, existing := range r.st.beneficiaries {
		if existing.UserID == b.UserID && existing.AccountNumber == b.AccountNumber {
			r.st.mu.Unlock()
			return domain.NewError(domain.ErrConflict, "beneficiary with account number %s already exists", b.AccountNumber)
		}
	}
	r.st.mu.Unlock()
	r.st.write(q, func() {
		b.ID = r.st.id()
		clone := *b
		r.st.beneficiaries = append(r.st.beneficiaries, &clone)
	}, func() {})
	return nil
}

func (r fakeBeneficiaries) ListByUserTx(_ context.Context, _ domain.Querier, userID int64) ([]*domain.Beneficiary, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	list := []*domain.Beneficiary{}
	for _, b := range r.st.beneficiaries {
		if b.UserID == userID {
			clone := *b
			list = append(list, &clone)
		}
	}
	return list, nil
}

func (r fakeBeneficiaries) DeleteTx(_ context.Context, _ domain.Querier, userID, id int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for i, b := range r.st.beneficiaries {
		if b.ID == id && b.UserID == userID {
			r.st.beneficiaries = append(r.st.beneficiaries[:i], r.st.beneficiaries[i+1:]...)
			return nil
		}
	}
	return domain.NewError(domain.ErrNotFound, "beneficiary %d not found", id)
}

type fakeInbox struct{ st *store }

func (r fakeInbox) CreateMessageTx(_ context.Context, q domain.Querier, msg *domain.InboxMessage) error {
	r.st.mu.Lock()
	_, dup := r.st.inbox[msg.ID]
	r.st.mu.Unlock()
	if dup {
		return fmt.Errorf("inbox message %s: %w", msg.ID, domain.ErrMessageAlreadyProcessed)
	}
	r.st.write(q, func() {
		clone := *msg
		r.st.inbox[msg.ID] = &clone
	}, func() {
		delete(r.st.inbox, msg.ID)
	})
	return nil
}

func (r fakeInbox) UpdateStatusTx(_ context.Context, q domain.Querier, id string, status domain.InboxMessageStatus, reason string) error {
	r.st.mu.Lock()
	msg, ok := r.st.inbox[id]
	r.st.mu.Unlock()
	if !ok {
		return fmt.Errorf("inbox message with id %s not found for status update", id)
	}
	old := *msg
	r.st.write(q, func() {
		msg.Status, msg.Error = status, reason
	}, func() {
		msg.Status, msg.Error = old.Status, old.Error
	})
	return nil
}

type fakeOutbox struct{ st *store }

func (r fakeOutbox) CreateMessageTx(_ context.Context, q domain.Querier, msg *domain.OutboxMessage) error {
	r.st.write(q, func() {
		r.st.outbox = append(r.st.outbox, msg)
	}, func() {
		for i, m := range r.st.outbox {
			if m == msg {
				r.st.outbox = append(r.st.outbox[:i], r.st.outbox[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r fakeOutbox) GetPendingMessagesTx(context.Context, domain.Querier, int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (r fakeOutbox) UpdateMessageStatusTx(context.Context, domain.Querier, string, domain.OutboxMessageStatus) error {
	return nil
}

func newTestService(t *testing.T) (BankingService, *store) {
	t.Helper()
	st := newStore()
	svc := NewBankingService(
		fakeDB{},
		fakeTxManager{st: st},
		fakeAccounts{st: st},
		fakeLedger{st: st},
		fakeBeneficiaries{st: st},
		fakeInbox{st: st},
		fakeOutbox{st: st},
		"ledger_events",
		zap.NewNop(),
	)
	return svc, st
}
