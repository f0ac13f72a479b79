package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

type accountRepository struct{ s *Store }

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	defer r.s.lock()()
	if indexOf(r.s.data.accounts, func(x *models.Account) bool { return x.AccountID == a.AccountID }) >= 0 {
		return fmt.Errorf("account %s already exists", a.AccountID)
	}
	r.s.data.accounts = append(r.s.data.accounts, copyAccount(a))
	return nil
}

func (r *accountRepository) find(accountID string) int {
	return indexOf(r.s.data.accounts, func(x *models.Account) bool { return x.AccountID == accountID })
}

func (r *accountRepository) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	defer r.s.lock()()
	i := r.find(accountID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return copyAccount(r.s.data.accounts[i]), nil
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	defer r.s.lock()()
	var out []*models.Account
	for _, a := range r.s.data.accounts {
		out = append(out, copyAccount(a))
	}
	return out, nil
}

func (r *accountRepository) FirstByType(ctx context.Context, accountType models.AccountType) (*models.Account, error) {
	defer r.s.lock()()
	for _, a := range r.s.data.accounts {
		if a.Type == accountType {
			return copyAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepository) Delete(ctx context.Context, accountID string) error {
	defer r.s.lock()()
	i := r.find(accountID)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.accounts = slices.Delete(r.s.data.accounts, i, i+1)
	return nil
}

func (r *accountRepository) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	defer r.s.lock()()
	i := r.find(accountID)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.accounts[i].Balance = balance
	return nil
}

func (r *accountRepository) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal) (bool, error) {
	defer r.s.lock()()
	i := r.find(accountID)
	if i < 0 {
		return false, nil
	}
	r.s.data.accounts[i].Balance = r.s.data.accounts[i].Balance.Add(delta)
	return true, nil
}

type transactionRepository struct{ s *Store }

func (r *transactionRepository) find(transactionID string) int {
	return indexOf(r.s.data.transactions, func(x *models.Transaction) bool { return x.TransactionID == transactionID })
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) (bool, error) {
	defer r.s.lock()()
	if tx.IdempotencyKey != nil {
		for _, existing := range r.s.data.transactions {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *tx.IdempotencyKey {
				return false, nil
			}
		}
	}
	if r.find(tx.TransactionID) >= 0 {
		return false, fmt.Errorf("transaction %s already exists", tx.TransactionID)
	}
	r.s.data.transactions = append(r.s.data.transactions, copyTransaction(tx))
	return true, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	defer r.s.lock()()
	i := r.find(transactionID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return copyTransaction(r.s.data.transactions[i]), nil
}

func (r *transactionRepository) GetForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.GetByID(ctx, transactionID)
}

func (r *transactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*models.Transaction, error) {
	defer r.s.lock()()
	var out []*models.Transaction
	for _, tx := range r.s.data.transactions {
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		if filter.AccountID != "" && (tx.AccountID == nil || *tx.AccountID != filter.AccountID) {
			continue
		}
		out = append(out, copyTransaction(tx))
	}
	slices.SortStableFunc(out, func(a, b *models.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r *transactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	defer r.s.lock()()
	i := r.find(tx.TransactionID)
	if i < 0 {
		return repository.ErrNotFound
	}
	updated := copyTransaction(tx)
	updated.IdempotencyKey = r.s.data.transactions[i].IdempotencyKey
	updated.CreatedAt = r.s.data.transactions[i].CreatedAt
	r.s.data.transactions[i] = updated
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, transactionID string) error {
	defer r.s.lock()()
	i := r.find(transactionID)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.transactions = slices.Delete(r.s.data.transactions, i, i+1)
	return nil
}

func (r *transactionRepository) ExistsByKeyPrefix(ctx context.Context, prefix string) (bool, error) {
	defer r.s.lock()()
	for _, tx := range r.s.data.transactions {
		if tx.IdempotencyKey != nil && strings.HasPrefix(*tx.IdempotencyKey, prefix) {
			return true, nil
		}
	}
	return false, nil
}

type recurringPaymentRepository struct{ s *Store }

func (r *recurringPaymentRepository) find(paymentID string) int {
	return indexOf(r.s.data.recurringPayments, func(x *models.RecurringPayment) bool { return x.PaymentID == paymentID })
}

func (r *recurringPaymentRepository) Create(ctx context.Context, p *models.RecurringPayment) error {
	defer r.s.lock()()
	if r.find(p.PaymentID) >= 0 {
		return fmt.Errorf("recurring payment %s already exists", p.PaymentID)
	}
	r.s.data.recurringPayments = append(r.s.data.recurringPayments, copyRecurringPayment(p))
	return nil
}

func (r *recurringPaymentRepository) GetByID(ctx context.Context, paymentID string) (*models.RecurringPayment, error) {
	defer r.s.lock()()
	i := r.find(paymentID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return copyRecurringPayment(r.s.data.recurringPayments[i]), nil
}

func (r *recurringPaymentRepository) List(ctx context.Context) ([]*models.RecurringPayment, error) {
	defer r.s.lock()()
	var out []*models.RecurringPayment
	for _, p := range r.s.data.recurringPayments {
		out = append(out, copyRecurringPayment(p))
	}
	return out, nil
}

func (r *recurringPaymentRepository) Update(ctx context.Context, p *models.RecurringPayment) error {
	defer r.s.lock()()
	i := r.find(p.PaymentID)
	if i < 0 {
		return repository.ErrNotFound
	}
	updated := copyRecurringPayment(p)
	updated.CreatedAt = r.s.data.recurringPayments[i].CreatedAt
	r.s.data.recurringPayments[i] = updated
	return nil
}

func (r *recurringPaymentRepository) Delete(ctx context.Context, paymentID string) error {
	defer r.s.lock()()
	i := r.find(paymentID)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.recurringPayments = slices.Delete(r.s.data.recurringPayments, i, i+1)
	return nil
}

func (r *recurringPaymentRepository) MigrateLegacy(ctx context.Context) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, p := range r.s.data.recurringPayments {
		if p.RequiresApproval == nil {
			v := true
			p.RequiresApproval = &v
			count++
		}
	}
	return count, nil
}

type dailyBudgetRepository struct{ s *Store }

func (r *dailyBudgetRepository) find(budgetID string) int {
	return indexOf(r.s.data.dailyBudgets, func(x *models.DailyBudget) bool { return x.BudgetID == budgetID })
}

func (r *dailyBudgetRepository) Create(ctx context.Context, b *models.DailyBudget) error {
	defer r.s.lock()()
	if r.find(b.BudgetID) >= 0 {
		return fmt.Errorf("daily budget %s already exists", b.BudgetID)
	}
	r.s.data.dailyBudgets = append(r.s.data.dailyBudgets, copyDailyBudget(b))
	return nil
}

func (r *dailyBudgetRepository) GetByID(ctx context.Context, budgetID string) (*models.DailyBudget, error) {
	defer r.s.lock()()
	i := r.find(budgetID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return copyDailyBudget(r.s.data.dailyBudgets[i]), nil
}

func (r *dailyBudgetRepository) List(ctx context.Context) ([]*models.DailyBudget, error) {
	defer r.s.lock()()
	var out []*models.DailyBudget
	for _, b := range r.s.data.dailyBudgets {
		out = append(out, copyDailyBudget(b))
	}
	return out, nil
}

func (r *dailyBudgetRepository) Update(ctx context.Context, b *models.DailyBudget) error {
	defer r.s.lock()()
	i := r.find(b.BudgetID)
	if i < 0 {
		return repository.ErrNotFound
	}
	updated := copyDailyBudget(b)
	updated.CreatedAt = r.s.data.dailyBudgets[i].CreatedAt
	r.s.data.dailyBudgets[i] = updated
	return nil
}

func (r *dailyBudgetRepository) Delete(ctx context.Context, budgetID string) error {
	defer r.s.lock()()
	i := r.find(budgetID)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.dailyBudgets = slices.Delete(r.s.data.dailyBudgets, i, i+1)
	return nil
}

type budgetRepository struct{ s *Store }

func (r *budgetRepository) Create(ctx context.Context, b *models.Budget) error {
	defer r.s.lock()()
	cp := *b
	r.s.data.budgets = append(r.s.data.budgets, &cp)
	return nil
}

func (r *budgetRepository) List(ctx context.Context) ([]*models.Budget, error) {
	defer r.s.lock()()
	var out []*models.Budget
	for _, b := range r.s.data.budgets {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (r *budgetRepository) Delete(ctx context.Context, budgetID string) error {
	defer r.s.lock()()
	i := indexOf(r.s.data.budgets, func(x *models.Budget) bool { return x.BudgetID == budgetID })
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.budgets = slices.Delete(r.s.data.budgets, i, i+1)
	return nil
}

type pendingPaymentRepository struct{ s *Store }

func (r *pendingPaymentRepository) find(pendingID string) int {
	return indexOf(r.s.data.pendingPayments, func(x *models.PendingPayment) bool { return x.PendingID == pendingID })
}

func (r *pendingPaymentRepository) Create(ctx context.Context, p *models.PendingPayment) (bool, error) {
	defer r.s.lock()()
	for _, existing := range r.s.data.pendingPayments {
		if existing.IdempotencyKey == p.IdempotencyKey {
			return false, nil
		}
	}
	if r.find(p.PendingID) >= 0 {
		return false, fmt.Errorf("pending payment %s already exists", p.PendingID)
	}
	r.s.data.pendingPayments = append(r.s.data.pendingPayments, copyPendingPayment(p))
	return true, nil
}

func (r *pendingPaymentRepository) GetByID(ctx context.Context, pendingID string) (*models.PendingPayment, error) {
	defer r.s.lock()()
	i := r.find(pendingID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return copyPendingPayment(r.s.data.pendingPayments[i]), nil
}

func (r *pendingPaymentRepository) GetForUpdate(ctx context.Context, pendingID string) (*models.PendingPayment, error) {
	return r.GetByID(ctx, pendingID)
}

func (r *pendingPaymentRepository) List(ctx context.Context, status models.PendingStatus) ([]*models.PendingPayment, error) {
	defer r.s.lock()()
	var out []*models.PendingPayment
	for _, p := range r.s.data.pendingPayments {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, copyPendingPayment(p))
	}
	return out, nil
}

func (r *pendingPaymentRepository) Transition(ctx context.Context, pendingID string, from, to models.PendingStatus, at time.Time) (bool, error) {
	defer r.s.lock()()
	i := r.find(pendingID)
	if i < 0 || r.s.data.pendingPayments[i].Status != from {
		return false, nil
	}
	p := r.s.data.pendingPayments[i]
	p.Status = to
	p.ResolvedAt = nil
	if to.IsTerminal() {
		p.ResolvedAt = &at
	}
	return true, nil
}

func (r *pendingPaymentRepository) RejectStale(ctx context.Context, cutoff time.Time, at time.Time) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, p := range r.s.data.pendingPayments {
		if p.Status == models.PendingStatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = models.PendingStatusRejected
			resolved := at
			p.ResolvedAt = &resolved
			count++
		}
	}
	return count, nil
}

func (r *pendingPaymentRepository) ExistsByKeyPrefix(ctx context.Context, prefix string) (bool, error) {
	defer r.s.lock()()
	for _, p := range r.s.data.pendingPayments {
		if strings.HasPrefix(p.IdempotencyKey, prefix) {
			return true, nil
		}
	}
	return false, nil
}

type settingsRepository struct{ s *Store }

func (r *settingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	defer r.s.lock()()
	v, ok := r.s.data.settings[key]
	return v, ok, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	defer r.s.lock()()
	r.s.data.settings[key] = value
	return nil
}
