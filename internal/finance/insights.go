package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

// Advisor is the text-generation collaborator behind the insight endpoints.
type Advisor interface {
	SuggestCorrections(ctx context.Context, entries []models.FinancialEntry, limits map[string]decimal.Decimal) (*models.FinancialHealth, error)
	SavingsTips(ctx context.Context, in models.SavingsTipsInput) ([]string, error)
}

// FinancialHealth asks the advisor to flag suspicious transactions against
// the category limits.
func (s *Service) FinancialHealth(ctx context.Context) (*models.FinancialHealth, error) {
	if s.opts.Advisor == nil {
		return nil, ErrAdvisorUnavailable
	}

	txs, err := s.ListTransactions(ctx, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	budgets, err := s.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.FinancialEntry, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, models.FinancialEntry{
			ID:       tx.TransactionID,
			Amount:   tx.Amount,
			Category: tx.Category,
			Type:     tx.Type,
			Date:     tx.Date.In(s.opts.Location).Format(dateLayout),
		})
	}
	limits := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		limits[b.Category] = limits[b.Category].Add(b.Limit)
	}

	health, err := s.opts.Advisor.SuggestCorrections(ctx, entries, limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdvisorUnavailable, err)
	}
	return health, nil
}

// SavingsTips summarises the current month and the next 30 days of
// obligations and asks the advisor for tips toward the given goals.
func (s *Service) SavingsTips(ctx context.Context, goals string) ([]string, error) {
	if s.opts.Advisor == nil {
		return nil, ErrAdvisorUnavailable
	}

	in, err := s.savingsTipsInput(ctx, goals)
	if err != nil {
		return nil, err
	}

	tips, err := s.opts.Advisor.SavingsTips(ctx, *in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdvisorUnavailable, err)
	}
	return tips, nil
}

func (s *Service) savingsTipsInput(ctx context.Context, goals string) (*models.SavingsTipsInput, error) {
	today := s.today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.opts.Location)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	txs, err := s.ListTransactions(ctx, repository.TransactionFilter{From: &monthStart, To: &monthEnd})
	if err != nil {
		return nil, err
	}
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.Upcoming(ctx, 30)
	if err != nil {
		return nil, err
	}

	in := &models.SavingsTipsInput{
		Income:           decimal.Zero,
		Expenses:         make(map[string]decimal.Decimal),
		FinancialGoals:   goals,
		CurrentBalance:   decimal.Zero,
		UpcomingPayments: make(map[string]decimal.Decimal),
	}
	for _, tx := range txs {
		if tx.Type == models.TransactionTypeIncome {
			in.Income = in.Income.Add(tx.Amount)
			continue
		}
		in.Expenses[tx.Category] = in.Expenses[tx.Category].Add(tx.Amount)
	}
	for _, a := range accounts {
		in.CurrentBalance = in.CurrentBalance.Add(a.Balance)
	}
	for _, u := range upcoming {
		in.UpcomingPayments[u.Category] = in.UpcomingPayments[u.Category].Add(u.Amount)
	}
	return in, nil
}
