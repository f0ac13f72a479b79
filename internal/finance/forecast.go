package finance

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/rrule"
)

const maxUpcomingDays = 366

// UpcomingPayment is a future occurrence of an obligation.
type UpcomingPayment struct {
	SourceID         string             `json:"source_id"`
	Kind             models.PendingKind `json:"kind"`
	Name             string             `json:"name"`
	Category         string             `json:"category"`
	Amount           decimal.Decimal    `json:"amount"`
	Date             time.Time          `json:"date"`
	Schedule         string             `json:"schedule"`
	RequiresApproval bool               `json:"requires_approval"`
}

// Upcoming lists obligation occurrences from today through the next days
// days, ordered by date.
func (s *Service) Upcoming(ctx context.Context, days int) ([]UpcomingPayment, error) {
	if days < 0 || days > maxUpcomingDays {
		return nil, invalidInput("days must be between 0 and %d", maxUpcomingDays)
	}
	from := s.today()
	return s.occurrences(ctx, from, from.AddDate(0, 0, days))
}

func (s *Service) occurrences(ctx context.Context, from, to time.Time) ([]UpcomingPayment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payments, err := s.store.RecurringPayments().List(ctx)
	if err != nil {
		return nil, storeErr("list recurring payments", err)
	}
	budgets, err := s.store.DailyBudgets().List(ctx)
	if err != nil {
		return nil, storeErr("list daily budgets", err)
	}

	var out []UpcomingPayment
	for _, p := range payments {
		rule := rrule.ForRecurringPayment(p)
		dates, err := rrule.Between(rule, from, to, s.opts.Location)
		if err != nil {
			log.Printf("Failed to expand recurring payment %s: %v", p.PaymentID, err)
			continue
		}
		for _, d := range dates {
			out = append(out, UpcomingPayment{
				SourceID:         p.PaymentID,
				Kind:             models.PendingKindRecurring,
				Name:             p.Name,
				Category:         p.Category,
				Amount:           p.Amount,
				Date:             d,
				Schedule:         rrule.HumanReadableSpanish(rule),
				RequiresApproval: p.NeedsApproval(),
			})
		}
	}
	for _, b := range budgets {
		if !b.AutoCreate {
			continue
		}
		rule := rrule.ForDailyBudget(b)
		dates, err := rrule.Between(rule, from, to, s.opts.Location)
		if err != nil {
			log.Printf("Failed to expand daily budget %s: %v", b.BudgetID, err)
			continue
		}
		for _, d := range dates {
			out = append(out, UpcomingPayment{
				SourceID:         b.BudgetID,
				Kind:             models.PendingKindDailyBudget,
				Name:             b.Name,
				Category:         b.Category,
				Amount:           b.ItemsTotal(),
				Date:             d,
				Schedule:         rrule.HumanReadableSpanish(rule),
				RequiresApproval: true,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Forecast projects the balance at the end of a future date.
type Forecast struct {
	Date                time.Time       `json:"date"`
	CurrentBalance      decimal.Decimal `json:"current_balance"`
	FixedExpenses       decimal.Decimal `json:"fixed_expenses"`
	DailyBudgetExpenses decimal.Decimal `json:"daily_budget_expenses"`
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
}

// ForecastBalance subtracts every obligation due after today up to and
// including date from the current balance. Today's obligations are already
// posted or queued by the daily pass, so they are not counted again.
func (s *Service) ForecastBalance(ctx context.Context, date time.Time) (*Forecast, error) {
	target := s.calendarDate(date.In(s.opts.Location))
	if target.After(s.today().AddDate(0, 0, maxUpcomingDays)) {
		return nil, invalidInput("forecast date is more than %d days ahead", maxUpcomingDays)
	}

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	f := &Forecast{
		Date:                target,
		CurrentBalance:      decimal.Zero,
		FixedExpenses:       decimal.Zero,
		DailyBudgetExpenses: decimal.Zero,
	}
	for _, a := range accounts {
		f.CurrentBalance = f.CurrentBalance.Add(a.Balance)
	}

	tomorrow := s.today().AddDate(0, 0, 1)
	if !target.Before(tomorrow) {
		upcoming, err := s.occurrences(ctx, tomorrow, target)
		if err != nil {
			return nil, err
		}
		for _, u := range upcoming {
			if u.Kind == models.PendingKindRecurring {
				f.FixedExpenses = f.FixedExpenses.Add(u.Amount)
			} else {
				f.DailyBudgetExpenses = f.DailyBudgetExpenses.Add(u.Amount)
			}
		}
	}

	f.TotalExpenses = f.FixedExpenses.Add(f.DailyBudgetExpenses)
	f.AvailableBalance = f.CurrentBalance.Sub(f.TotalExpenses)
	return f, nil
}
