package finance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

type RecurringPaymentInput struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	DayOfMonth  int             `json:"day_of_month"`
	DaysOfWeek  []int           `json:"days_of_week"`
	Description string          `json:"description"`
	// RequiresApproval defaults to true when omitted.
	RequiresApproval *bool `json:"requires_approval"`
}

func (in RecurringPaymentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("name is required")
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(in.Category) == "" {
		return invalidInput("category is required")
	}
	if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
		return invalidInput("day of month %d is outside 1..31", in.DayOfMonth)
	}
	if !models.ValidWeekdays(in.DaysOfWeek) {
		return invalidInput("weekdays must be between 0 (Sunday) and 6")
	}
	return nil
}

func (in RecurringPaymentInput) apply(p *models.RecurringPayment) {
	p.Name = strings.TrimSpace(in.Name)
	p.Amount = in.Amount
	p.Category = strings.TrimSpace(in.Category)
	p.DayOfMonth = in.DayOfMonth
	p.DaysOfWeek = nil
	if len(in.DaysOfWeek) > 0 {
		p.DaysOfWeek = in.DaysOfWeek
	}
	p.Description = in.Description
	requires := true
	if in.RequiresApproval != nil {
		requires = *in.RequiresApproval
	}
	p.RequiresApproval = &requires
}

func (s *Service) CreateRecurringPayment(ctx context.Context, in RecurringPaymentInput) (*models.RecurringPayment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p := &models.RecurringPayment{PaymentID: newID(), CreatedAt: s.now()}
	in.apply(p)
	if err := s.store.RecurringPayments().Create(ctx, p); err != nil {
		return nil, storeErr("create recurring payment", err)
	}
	s.changed()
	return p, nil
}

func (s *Service) UpdateRecurringPayment(ctx context.Context, paymentID string, in RecurringPaymentInput) (*models.RecurringPayment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.store.RecurringPayments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, storeErr("get recurring payment", err)
	}
	in.apply(p)
	if err := s.store.RecurringPayments().Update(ctx, p); err != nil {
		return nil, storeErr("update recurring payment", err)
	}
	s.changed()
	return p, nil
}

func (s *Service) DeleteRecurringPayment(ctx context.Context, paymentID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.RecurringPayments().Delete(ctx, paymentID); err != nil {
		return storeErr("delete recurring payment", err)
	}
	s.changed()
	return nil
}

func (s *Service) ListRecurringPayments(ctx context.Context) ([]*models.RecurringPayment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payments, err := s.store.RecurringPayments().List(ctx)
	if err != nil {
		return nil, storeErr("list recurring payments", err)
	}
	return payments, nil
}

// MigrateRecurringPayments marks records stored before approvals existed as
// requiring approval. Weekdays stay unset. Returns how many changed.
func (s *Service) MigrateRecurringPayments(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.store.RecurringPayments().MigrateLegacy(ctx)
	if err != nil {
		return 0, storeErr("migrate recurring payments", err)
	}
	if n > 0 {
		log.Printf("Migrated %d legacy recurring payments", n)
		s.changed()
	}
	return n, nil
}

type DailyBudgetItemInput struct {
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type DailyBudgetInput struct {
	Name        string                 `json:"name"`
	Category    string                 `json:"category"`
	DaysOfWeek  []int                  `json:"days_of_week"`
	Description string                 `json:"description"`
	Items       []DailyBudgetItemInput `json:"items"`
	AutoCreate  bool                   `json:"auto_create"`
	AccountID   *string                `json:"account_id"`
}

func (in DailyBudgetInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return invalidInput("category is required")
	}
	if len(in.DaysOfWeek) == 0 {
		return invalidInput("at least one weekday is required")
	}
	if !models.ValidWeekdays(in.DaysOfWeek) {
		return invalidInput("weekdays must be between 0 (Sunday) and 6")
	}
	seen := make(map[string]bool, len(in.Items))
	for i, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return invalidInput("item %d has no name", i+1)
		}
		if !item.Amount.IsPositive() {
			return fmt.Errorf("item %q: %w", item.Name, ErrInvalidAmount)
		}
		// each item gets its own idempotency key
		if item.ItemID != "" {
			if seen[item.ItemID] {
				return invalidInput("duplicate item id %q", item.ItemID)
			}
			seen[item.ItemID] = true
		}
	}
	return nil
}

func (in DailyBudgetInput) apply(b *models.DailyBudget) {
	b.Name = strings.TrimSpace(in.Name)
	b.Category = strings.TrimSpace(in.Category)
	b.DaysOfWeek = in.DaysOfWeek
	b.Description = in.Description
	b.AutoCreate = in.AutoCreate
	b.AccountID = in.AccountID
	if b.AccountID != nil && *b.AccountID == "" {
		b.AccountID = nil
	}

	b.Items = make([]models.DailyBudgetItem, 0, len(in.Items))
	for _, item := range in.Items {
		id := item.ItemID
		if id == "" {
			id = newID()
		}
		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = b.Category
		}
		b.Items = append(b.Items, models.DailyBudgetItem{
			ItemID:      id,
			Name:        strings.TrimSpace(item.Name),
			Amount:      item.Amount,
			Category:    category,
			Description: item.Description,
		})
	}
	b.Limit = b.ItemsTotal()
}

func (s *Service) CreateDailyBudget(ctx context.Context, in DailyBudgetInput) (*models.DailyBudget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b := &models.DailyBudget{BudgetID: newID(), CreatedAt: s.now()}
	in.apply(b)
	if err := s.store.DailyBudgets().Create(ctx, b); err != nil {
		return nil, storeErr("create daily budget", err)
	}
	s.changed()
	return b, nil
}

func (s *Service) UpdateDailyBudget(ctx context.Context, budgetID string, in DailyBudgetInput) (*models.DailyBudget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.store.DailyBudgets().GetByID(ctx, budgetID)
	if err != nil {
		return nil, storeErr("get daily budget", err)
	}
	in.apply(b)
	if err := s.store.DailyBudgets().Update(ctx, b); err != nil {
		return nil, storeErr("update daily budget", err)
	}
	s.changed()
	return b, nil
}

func (s *Service) DeleteDailyBudget(ctx context.Context, budgetID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.DailyBudgets().Delete(ctx, budgetID); err != nil {
		return storeErr("delete daily budget", err)
	}
	s.changed()
	return nil
}

func (s *Service) ListDailyBudgets(ctx context.Context) ([]*models.DailyBudget, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	budgets, err := s.store.DailyBudgets().List(ctx)
	if err != nil {
		return nil, storeErr("list daily budgets", err)
	}
	return budgets, nil
}

type BudgetInput struct {
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Recurring bool            `json:"recurring"`
}

func (s *Service) CreateBudget(ctx context.Context, in BudgetInput) (*models.Budget, error) {
	if strings.TrimSpace(in.Category) == "" {
		return nil, invalidInput("category is required")
	}
	if !in.Limit.IsPositive() {
		return nil, ErrInvalidAmount
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b := &models.Budget{
		BudgetID:  newID(),
		Category:  strings.TrimSpace(in.Category),
		Limit:     in.Limit,
		Recurring: in.Recurring,
		CreatedAt: s.now(),
	}
	if err := s.store.Budgets().Create(ctx, b); err != nil {
		return nil, storeErr("create budget", err)
	}
	s.changed()
	return b, nil
}

func (s *Service) DeleteBudget(ctx context.Context, budgetID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.Budgets().Delete(ctx, budgetID); err != nil {
		return storeErr("delete budget", err)
	}
	s.changed()
	return nil
}

func (s *Service) ListBudgets(ctx context.Context) ([]*models.Budget, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	budgets, err := s.store.Budgets().List(ctx)
	if err != nil {
		return nil, storeErr("list budgets", err)
	}
	return budgets, nil
}

func (s *Service) SetInitialBalance(ctx context.Context, amount decimal.Decimal) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.Settings().Set(ctx, repository.SettingInitialBalance, amount.String()); err != nil {
		return storeErr("set initial balance", err)
	}
	s.changed()
	return nil
}

func initialBalance(ctx context.Context, st repository.Store) (decimal.Decimal, error) {
	raw, ok, err := st.Settings().Get(ctx, repository.SettingInitialBalance)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("Ignoring malformed initial balance %q: %v", raw, err)
		return decimal.Zero, nil
	}
	return amount, nil
}

// SetDefaultAccount pins the account unattended obligations post to. An
// empty id clears the setting.
func (s *Service) SetDefaultAccount(ctx context.Context, accountID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if accountID != "" {
		if _, err := s.store.Accounts().GetByID(ctx, accountID); err != nil {
			return storeErr("get account", err)
		}
	}
	if err := s.store.Settings().Set(ctx, repository.SettingDefaultAccountID, accountID); err != nil {
		return storeErr("set default account", err)
	}
	s.changed()
	return nil
}

func (s *Service) DefaultAccount(ctx context.Context) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.defaultAccount(ctx, s.store)
	if err != nil {
		return nil, storeErr("resolve default account", err)
	}
	return account, nil
}

// defaultAccount resolves the posting account: the stored setting, then the
// configured id, then the oldest account of the configured type.
func (s *Service) defaultAccount(ctx context.Context, st repository.Store) (*models.Account, error) {
	candidates := []string{}
	if id, ok, err := st.Settings().Get(ctx, repository.SettingDefaultAccountID); err != nil {
		return nil, err
	} else if ok && id != "" {
		candidates = append(candidates, id)
	}
	if s.opts.DefaultAccountID != "" {
		candidates = append(candidates, s.opts.DefaultAccountID)
	}

	for _, id := range candidates {
		account, err := st.Accounts().GetByID(ctx, id)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		log.Printf("Default account %s no longer exists", id)
	}

	account, err := st.Accounts().FirstByType(ctx, s.opts.DefaultAccountType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no %s account", ErrNoDefaultAccount, s.opts.DefaultAccountType)
	}
	return account, err
}
