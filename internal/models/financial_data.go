package models

import "github.com/shopspring/decimal"

// AccountTotal is the per-account flow derived from live transactions.
type AccountTotal struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	NetFlow   decimal.Decimal `json:"net_flow"`
	Balance   decimal.Decimal `json:"balance"`
}

// FinancialData is the full snapshot pushed to subscribers after every change.
type FinancialData struct {
	Transactions      []*Transaction      `json:"transactions"`
	RecurringPayments []*RecurringPayment `json:"recurring_payments"`
	Budgets           []*Budget           `json:"budgets"`
	DailyBudgets      []*DailyBudget      `json:"daily_budgets"`
	Accounts          []*Account          `json:"accounts"`
	PendingPayments   []*PendingPayment   `json:"pending_payments"`
	CurrentBalance    decimal.Decimal     `json:"current_balance"`
	InitialBalance    decimal.Decimal     `json:"initial_balance"`
	AccountTotals     []AccountTotal      `json:"account_totals"`
}

// Correction flags a suspicious financial entry.
type Correction struct {
	EntryID    string `json:"entryId"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion"`
}

type SavingsSuggestion struct {
	Suggestion string `json:"suggestion"`
	Area       string `json:"area"`
}

type FinancialHealth struct {
	Corrections        []Correction        `json:"corrections"`
	SavingsSuggestions []SavingsSuggestion `json:"savingsSuggestions"`
}

type SavingsTipsInput struct {
	Income           decimal.Decimal            `json:"income"`
	Expenses         map[string]decimal.Decimal `json:"expenses"`
	FinancialGoals   string                     `json:"financialGoals"`
	CurrentBalance   decimal.Decimal            `json:"currentBalance"`
	UpcomingPayments map[string]decimal.Decimal `json:"upcomingPayments"`
}

// FinancialEntry is the reduced transaction view sent to the advisor.
type FinancialEntry struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Date     string          `json:"date"`
}
