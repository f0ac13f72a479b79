package finance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
	"github.com/hray3182/ledgerline/internal/repository/memory"
)

var lima = time.FixedZone("PET", -5*60*60)

// 2024-03-04 is a Monday.
var (
	monday  = time.Date(2024, 3, 4, 9, 30, 0, 0, lima)
	tuesday = time.Date(2024, 3, 5, 9, 30, 0, 0, lima)
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *Service

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, now time.Time, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), store: memory.NewStore(), now: now}
	o := Options{Location: lima, Now: f.clock}
	for _, apply := range opts {
		apply(&o)
	}
	f.svc = NewService(f.store, o)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *fixture) account(name string, accountType models.AccountType, balance int64) *models.Account {
	f.t.Helper()
	a, err := f.svc.CreateAccount(f.ctx, AccountInput{
		Name:           name,
		Type:           accountType,
		InitialBalance: decimal.NewFromInt(balance),
	})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) balance(accountID string) decimal.Decimal {
	f.t.Helper()
	a, err := f.svc.GetAccount(f.ctx, accountID)
	require.NoError(f.t, err)
	return a.Balance
}

func (f *fixture) transactions() []*models.Transaction {
	f.t.Helper()
	txs, err := f.svc.ListTransactions(f.ctx, repository.TransactionFilter{})
	require.NoError(f.t, err)
	return txs
}

func (f *fixture) pending(status models.PendingStatus) []*models.PendingPayment {
	f.t.Helper()
	payments, err := f.svc.ListPendingPayments(f.ctx, status)
	require.NoError(f.t, err)
	return payments
}

func (f *fixture) recurring(in RecurringPaymentInput) *models.RecurringPayment {
	f.t.Helper()
	p, err := f.svc.CreateRecurringPayment(f.ctx, in)
	require.NoError(f.t, err)
	return p
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

// failingStore makes every transaction insert fail.
type failingStore struct {
	repository.Store
}

func (s *failingStore) Transactions() repository.TransactionRepository {
	return &failingTransactions{TransactionRepository: s.Store.Transactions()}
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&failingStore{Store: tx})
	})
}

type failingTransactions struct {
	repository.TransactionRepository
}

var errDiskFull = errors.New("disk full")

func (failingTransactions) Create(context.Context, *models.Transaction) (bool, error) {
	return false, errDiskFull
}

// housekeepingFailingStore fails legacy migration and stale cleanup only.
type housekeepingFailingStore struct {
	repository.Store
}

func (s *housekeepingFailingStore) RecurringPayments() repository.RecurringPaymentRepository {
	return failingMigration{RecurringPaymentRepository: s.Store.RecurringPayments()}
}

func (s *housekeepingFailingStore) PendingPayments() repository.PendingPaymentRepository {
	return failingCleanup{PendingPaymentRepository: s.Store.PendingPayments()}
}

func (s *housekeepingFailingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&housekeepingFailingStore{Store: tx})
	})
}

type failingMigration struct {
	repository.RecurringPaymentRepository
}

func (failingMigration) MigrateLegacy(context.Context) (int, error) {
	return 0, errDiskFull
}

type failingCleanup struct {
	repository.PendingPaymentRepository
}

func (failingCleanup) RejectStale(context.Context, time.Time, time.Time) (int, error) {
	return 0, errDiskFull
}
