// Package repository defines the storage contract used by the finance services.
// Implementations live in the postgres and memory subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// Settings keys.
const (
	SettingInitialBalance   = "initial_balance"
	SettingDefaultAccountID = "default_account_id"
)

// Store groups the per-collection repositories. A Store obtained inside
// WithinTx is bound to that transaction.
type Store interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	RecurringPayments() RecurringPaymentRepository
	DailyBudgets() DailyBudgetRepository
	Budgets() BudgetRepository
	PendingPayments() PendingPaymentRepository
	Settings() SettingsRepository

	// WithinTx runs fn atomically. Returning an error from fn discards every
	// write fn made. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// LockScheduler serialises detection runs across processes. It must be
	// called inside WithinTx; the lock is released when the transaction ends.
	LockScheduler(ctx context.Context) error
}

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, accountID string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	// FirstByType returns the oldest account of the given type.
	FirstByType(ctx context.Context, accountType models.AccountType) (*models.Account, error)
	Delete(ctx context.Context, accountID string) error
	SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
	// ApplyDelta atomically adds delta to the balance. It reports false when
	// the account does not exist.
	ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (bool, error)
}

type TransactionFilter struct {
	From      *time.Time
	To        *time.Time
	AccountID string
}

type TransactionRepository interface {
	// Create inserts the transaction. It reports false, without error, when
	// the idempotency key is already taken.
	Create(ctx context.Context, tx *models.Transaction) (bool, error)
	GetByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	// GetForUpdate is GetByID with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, transactionID string) error
	ExistsByKeyPrefix(ctx context.Context, prefix string) (bool, error)
}

type RecurringPaymentRepository interface {
	Create(ctx context.Context, payment *models.RecurringPayment) error
	GetByID(ctx context.Context, paymentID string) (*models.RecurringPayment, error)
	List(ctx context.Context) ([]*models.RecurringPayment, error)
	Update(ctx context.Context, payment *models.RecurringPayment) error
	Delete(ctx context.Context, paymentID string) error
	// MigrateLegacy sets RequiresApproval=true where it was never stored and
	// returns how many records changed.
	MigrateLegacy(ctx context.Context) (int, error)
}

type DailyBudgetRepository interface {
	Create(ctx context.Context, budget *models.DailyBudget) error
	GetByID(ctx context.Context, budgetID string) (*models.DailyBudget, error)
	List(ctx context.Context) ([]*models.DailyBudget, error)
	Update(ctx context.Context, budget *models.DailyBudget) error
	Delete(ctx context.Context, budgetID string) error
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *models.Budget) error
	List(ctx context.Context) ([]*models.Budget, error)
	Delete(ctx context.Context, budgetID string) error
}

type PendingPaymentRepository interface {
	// Create inserts the payment. It reports false, without error, when the
	// idempotency key is already taken.
	Create(ctx context.Context, payment *models.PendingPayment) (bool, error)
	GetByID(ctx context.Context, pendingID string) (*models.PendingPayment, error)
	GetForUpdate(ctx context.Context, pendingID string) (*models.PendingPayment, error)
	// List returns payments in creation order; an empty status returns all.
	List(ctx context.Context, status models.PendingStatus) ([]*models.PendingPayment, error)
	// Transition moves a payment from one status to another. It reports false
	// when the payment is not currently in the from status.
	Transition(ctx context.Context, pendingID string, from, to models.PendingStatus, at time.Time) (bool, error)
	// RejectStale rejects pending payments created before cutoff.
	RejectStale(ctx context.Context, cutoff time.Time, at time.Time) (int, error)
	ExistsByKeyPrefix(ctx context.Context, prefix string) (bool, error)
}

type SettingsRepository interface {
	// Get reports false when the key was never set.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
