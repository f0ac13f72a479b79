package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DailyBudgetItem struct {
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type DailyBudget struct {
	BudgetID    string            `json:"budget_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Limit       decimal.Decimal   `json:"limit"`
	DaysOfWeek  []int             `json:"days_of_week"`
	Description string            `json:"description"`
	Items       []DailyBudgetItem `json:"items"`
	AutoCreate  bool              `json:"auto_create"`
	AccountID   *string           `json:"account_id"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ItemsTotal sums the amounts of every line item.
func (b *DailyBudget) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// Budget is a category spending limit.
type Budget struct {
	BudgetID  string          `json:"budget_id"`
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Recurring bool            `json:"recurring"`
	CreatedAt time.Time       `json:"created_at"`
}
