// Package memory implements repository.Store in process memory. It backs the
// development mode without a database and the service tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

type data struct {
	accounts          []*models.Account
	transactions      []*models.Transaction
	recurringPayments []*models.RecurringPayment
	dailyBudgets      []*models.DailyBudget
	budgets           []*models.Budget
	pendingPayments   []*models.PendingPayment
	settings          map[string]string
}

func (d *data) clone() *data {
	c := &data{settings: make(map[string]string, len(d.settings))}
	for _, a := range d.accounts {
		c.accounts = append(c.accounts, copyAccount(a))
	}
	for _, tx := range d.transactions {
		c.transactions = append(c.transactions, copyTransaction(tx))
	}
	for _, p := range d.recurringPayments {
		c.recurringPayments = append(c.recurringPayments, copyRecurringPayment(p))
	}
	for _, b := range d.dailyBudgets {
		c.dailyBudgets = append(c.dailyBudgets, copyDailyBudget(b))
	}
	for _, b := range d.budgets {
		cp := *b
		c.budgets = append(c.budgets, &cp)
	}
	for _, p := range d.pendingPayments {
		c.pendingPayments = append(c.pendingPayments, copyPendingPayment(p))
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	return c
}

// Store keeps every collection in insertion order behind a single mutex.
// WithinTx holds the mutex for the whole callback and works on a copy that
// replaces the live data only when the callback succeeds.
type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
}

func NewStore() *Store {
	return &Store{
		mu:   &sync.Mutex{},
		data: &data{settings: make(map[string]string)},
	}
}

// lock returns the unlock func; inside a transaction the mutex is already held.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Accounts() repository.AccountRepository {
	return &accountRepository{s: s}
}

func (s *Store) Transactions() repository.TransactionRepository {
	return &transactionRepository{s: s}
}

func (s *Store) RecurringPayments() repository.RecurringPaymentRepository {
	return &recurringPaymentRepository{s: s}
}

func (s *Store) DailyBudgets() repository.DailyBudgetRepository {
	return &dailyBudgetRepository{s: s}
}

func (s *Store) Budgets() repository.BudgetRepository {
	return &budgetRepository{s: s}
}

func (s *Store) PendingPayments() repository.PendingPaymentRepository {
	return &pendingPaymentRepository{s: s}
}

func (s *Store) Settings() repository.SettingsRepository {
	return &settingsRepository{s: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&Store{mu: s.mu, data: work, inTx: true}); err != nil {
		return err
	}
	*s.data = *work
	return nil
}

// LockScheduler is satisfied by the transaction mutex itself.
func (s *Store) LockScheduler(ctx context.Context) error {
	return ctx.Err()
}

func indexOf[T any](items []*T, match func(*T) bool) int {
	return slices.IndexFunc(items, match)
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	return &cp
}

func copyTransaction(tx *models.Transaction) *models.Transaction {
	cp := *tx
	cp.AccountID = copyString(tx.AccountID)
	cp.DailyBudgetID = copyString(tx.DailyBudgetID)
	cp.IdempotencyKey = copyString(tx.IdempotencyKey)
	return &cp
}

func copyRecurringPayment(p *models.RecurringPayment) *models.RecurringPayment {
	cp := *p
	cp.DaysOfWeek = slices.Clone(p.DaysOfWeek)
	if p.RequiresApproval != nil {
		v := *p.RequiresApproval
		cp.RequiresApproval = &v
	}
	return &cp
}

func copyDailyBudget(b *models.DailyBudget) *models.DailyBudget {
	cp := *b
	cp.DaysOfWeek = slices.Clone(b.DaysOfWeek)
	cp.Items = slices.Clone(b.Items)
	cp.AccountID = copyString(b.AccountID)
	return &cp
}

func copyPendingPayment(p *models.PendingPayment) *models.PendingPayment {
	cp := *p
	cp.SourceItemID = copyString(p.SourceItemID)
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
