package banking

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"banking/internal/domain"
	"banking/internal/domain/event"
	"banking/internal/repository/accounts_repo"
	"banking/internal/repository/beneficiaries_repo"
	"banking/internal/repository/inbox_repo"
	"banking/internal/repository/ledger_repo"
	"banking/internal/repository/outbox_repo"
)

const (
	// RecentTransactionsLimit is the size of the dashboard feed.
	RecentTransactionsLimit = 10
	// StatementEntriesLimit bounds the entries rendered on a statement.
	StatementEntriesLimit = 50

	conflictRetries = 3
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, q domain.Querier) error) error
}

type BankingService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (*domain.Transaction, error)
	ProcessDepositRequest(ctx context.Context, topic string, evt event.DepositRequestedEvent, rawPayload []byte) error

	OpenAccount(ctx context.Context, userID int64, accountType domain.AccountType, currency string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]*domain.Account, error)
	GetAccount(ctx context.Context, userID, accountID int64) (*domain.Account, error)
	GetBalance(ctx context.Context, userID, accountID int64) (*Balance, error)
	UpdateAccount(ctx context.Context, userID, accountID int64, update AccountUpdate) (*domain.Account, error)

	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	RecentTransactions(ctx context.Context, userID int64) ([]*domain.Transaction, error)
	Statement(ctx context.Context, userID, accountID int64) (*domain.Account, []*domain.Transaction, error)

	ListBeneficiaries(ctx context.Context, userID int64) ([]*domain.Beneficiary, error)
	CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) (*domain.Beneficiary, error)
	DeleteBeneficiary(ctx context.Context, userID, beneficiaryID int64) error
}

type bankingService struct {
	db              domain.Querier
	txManager       Transactor
	accountRepo     accounts_repo.AccountRepository
	ledgerRepo      ledger_repo.LedgerRepository
	beneficiaryRepo beneficiaries_repo.BeneficiaryRepository
	inboxRepo       inbox_repo.InboxRepository
	outboxRepo      outbox_repo.OutboxRepository
	ledgerTopic     string
	logger          *zap.Logger
}

func NewBankingService(
	db domain.Querier,
	txManager Transactor,
	accountRepo accounts_repo.AccountRepository,
	ledgerRepo ledger_repo.LedgerRepository,
	beneficiaryRepo beneficiaries_repo.BeneficiaryRepository,
	inboxRepo inbox_repo.InboxRepository,
	outboxRepo outbox_repo.OutboxRepository,
	ledgerTopic string,
	logger *zap.Logger,
) BankingService {
	return &bankingService{
		db:              db,
		txManager:       txManager,
		accountRepo:     accountRepo,
		ledgerRepo:      ledgerRepo,
		beneficiaryRepo: beneficiaryRepo,
		inboxRepo:       inboxRepo,
		outboxRepo:      outboxRepo,
		ledgerTopic:     ledgerTopic,
		logger:          logger,
	}
}

// retryOnConflict reruns a whole unit of work when a freshly generated
// identifier lost a race against the unique constraint.
func (s *bankingService) retryOnConflict(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
		s.logger.Warn("Identifier collision, retrying unit of work",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func (s *bankingService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("kind", domain.KindOf(err)), zap.Error(err))
	switch domain.KindOf(err) {
	case "INTERNAL", "TIMEOUT":
		s.logger.Error(msg, fields...)
	default:
		s.logger.Warn(msg, fields...)
	}
}
