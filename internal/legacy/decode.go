// Package legacy reads JSON exports of the old realtime-database backend and
// turns them into ledger records.
package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
)

// Export is a decoded dump, ready to be written to an empty store.
type Export struct {
	Accounts          []*models.Account
	Transactions      []*models.Transaction
	RecurringPayments []*models.RecurringPayment
	DailyBudgets      []*models.DailyBudget
	Budgets           []*models.Budget
	PendingPayments   []*models.PendingPayment

	InitialBalance   *decimal.Decimal
	DefaultAccountID string

	// Skipped lists records that could not be converted, one reason each.
	Skipped []string
}

type Options struct {
	// Location anchors plain yyyy-mm-dd dates and scheduled days.
	Location *time.Location
	// Now stamps records that carry no usable date.
	Now func() time.Time
}

type dump struct {
	Accounts          json.RawMessage `json:"accounts"`
	Transactions      json.RawMessage `json:"transactions"`
	RecurringPayments json.RawMessage `json:"recurringPayments"`
	DailyBudgets      json.RawMessage `json:"dailyBudgets"`
	Budgets           json.RawMessage `json:"budgets"`
	PendingPayments   json.RawMessage `json:"pendingAutomaticPayments"`
	InitialBalance    *decimal.Decimal `json:"initialBalance"`
	Settings          struct {
		InitialBalance   *decimal.Decimal `json:"initialBalance"`
		DefaultAccountID string           `json:"defaultAccountId"`
	} `json:"settings"`
}

func Decode(r io.Reader, opts Options) (*Export, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	dec := &decoder{opts: opts, exp: &Export{}, keys: make(map[string]bool)}
	steps := []struct {
		name string
		raw  json.RawMessage
		fn   func(id string, raw json.RawMessage) error
	}{
		{"accounts", d.Accounts, dec.account},
		{"transactions", d.Transactions, dec.transaction},
		{"recurringPayments", d.RecurringPayments, dec.recurringPayment},
		{"dailyBudgets", d.DailyBudgets, dec.dailyBudget},
		{"budgets", d.Budgets, dec.budget},
		{"pendingAutomaticPayments", d.PendingPayments, dec.pendingPayment},
	}
	for _, step := range steps {
		records, err := collection(step.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", step.name, err)
		}
		for _, rec := range records {
			if err := step.fn(rec.id, rec.raw); err != nil {
				dec.skip("%s/%s: %v", step.name, rec.id, err)
			}
		}
	}

	dec.exp.InitialBalance = d.InitialBalance
	if d.Settings.InitialBalance != nil {
		dec.exp.InitialBalance = d.Settings.InitialBalance
	}
	dec.exp.DefaultAccountID = d.Settings.DefaultAccountID
	return dec.exp, nil
}

type record struct {
	id  string
	raw json.RawMessage
}

// collection reads a realtime-database list. Lists are stored either as an
// object keyed by push id or, for sequential keys, as an array with null
// holes. Push ids sort chronologically.
func collection(raw json.RawMessage) ([]record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]record, 0, len(items))
		for i, item := range items {
			if isNull(item) {
				continue
			}
			out = append(out, record{id: strconv.Itoa(i), raw: item})
		}
		return out, nil
	}

	var items map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k, item := range items {
		if !isNull(item) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]record, 0, len(keys))
	for _, k := range keys {
		out = append(out, record{id: k, raw: items[k]})
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// legacyTime accepts ISO strings, plain dates and epoch milliseconds.
type legacyTime struct {
	value string
	ms    *int64
}

func (t *legacyTime) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &t.value)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("unsupported date %s", b)
	}
	ms := int64(f)
	t.ms = &ms
	return nil
}

func (t legacyTime) resolve(loc *time.Location) (time.Time, bool) {
	if t.ms != nil {
		return time.UnixMilli(*t.ms).In(loc), true
	}
	value := strings.TrimSpace(t.value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, true
		}
	}
	if parsed, err := time.ParseInLocation(models.DateLayout, value, loc); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}

type decoder struct {
	opts Options
	exp  *Export
	keys map[string]bool
}

func (d *decoder) skip(format string, args ...any) {
	d.exp.Skipped = append(d.exp.Skipped, fmt.Sprintf(format, args...))
}

func (d *decoder) timeOr(t legacyTime, fallback time.Time) time.Time {
	if parsed, ok := t.resolve(d.opts.Location); ok {
		return parsed
	}
	return fallback
}

func (d *decoder) day(t time.Time) time.Time {
	t = t.In(d.opts.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, d.opts.Location)
}

func pick(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func optional(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}

type rawAccount struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	Color       string          `json:"color"`
	Description string          `json:"description"`
	CreatedAt   legacyTime      `json:"createdAt"`
}

func (d *decoder) account(id string, raw json.RawMessage) error {
	var in rawAccount
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	accountType := models.AccountType(strings.ToLower(strings.ReplaceAll(in.Type, " ", "")))
	if !accountType.IsValid() {
		accountType = models.AccountTypeOther
	}
	name := pick(in.Name, string(accountType))
	d.exp.Accounts = append(d.exp.Accounts, &models.Account{
		AccountID:   pick(in.ID, id),
		Name:        name,
		Type:        accountType,
		Balance:     in.Balance,
		Color:       in.Color,
		Description: in.Description,
		CreatedAt:   d.timeOr(in.CreatedAt, d.opts.Now()),
	})
	return nil
}

type rawTransaction struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          legacyTime      `json:"date"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	AccountID     string          `json:"accountId"`
	DailyBudgetID string          `json:"dailyBudgetId"`
	CreatedAt     legacyTime      `json:"createdAt"`
}

func (d *decoder) transaction(id string, raw json.RawMessage) error {
	var in rawTransaction
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	txType := models.TransactionType(in.Type)
	if !txType.IsValid() {
		return fmt.Errorf("unknown type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("non-positive amount %s", in.Amount)
	}

	now := d.opts.Now()
	d.exp.Transactions = append(d.exp.Transactions, &models.Transaction{
		TransactionID: pick(in.ID, id),
		Type:          txType,
		Amount:        in.Amount,
		Date:          d.timeOr(in.Date, d.timeOr(in.CreatedAt, now)),
		Category:      strings.TrimSpace(in.Category),
		Description:   in.Description,
		AccountID:     optional(in.AccountID),
		DailyBudgetID: optional(in.DailyBudgetID),
		CreatedAt:     d.timeOr(in.CreatedAt, now),
	})
	return nil
}

type rawRecurringPayment struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	DayOfMonth       int             `json:"dayOfMonth"`
	DaysOfWeek       []int           `json:"daysOfWeek"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	RequiresApproval *bool           `json:"requiresApproval"`
	CreatedAt        legacyTime      `json:"createdAt"`
}

// recurringPayment keeps a missing requiresApproval as nil so the regular
// legacy migration can pick the record up.
func (d *decoder) recurringPayment(id string, raw json.RawMessage) error {
	var in rawRecurringPayment
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
		return fmt.Errorf("day of month %d out of range", in.DayOfMonth)
	}
	if len(in.DaysOfWeek) == 0 {
		in.DaysOfWeek = nil
	}
	d.exp.RecurringPayments = append(d.exp.RecurringPayments, &models.RecurringPayment{
		PaymentID:        pick(in.ID, id),
		Name:             in.Name,
		Amount:           in.Amount,
		Category:         in.Category,
		DayOfMonth:       in.DayOfMonth,
		DaysOfWeek:       in.DaysOfWeek,
		Description:      in.Description,
		RequiresApproval: in.RequiresApproval,
		CreatedAt:        d.timeOr(in.CreatedAt, d.opts.Now()),
	})
	return nil
}

type rawDailyBudgetItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type rawDailyBudget struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	DaysOfWeek  []int           `json:"daysOfWeek"`
	Description string          `json:"description"`
	Items       json.RawMessage `json:"items"`
	AutoCreate  bool            `json:"autoCreate"`
	AccountID   string          `json:"accountId"`
	CreatedAt   legacyTime      `json:"createdAt"`
}

func (d *decoder) dailyBudget(id string, raw json.RawMessage) error {
	var in rawDailyBudget
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	if len(in.DaysOfWeek) == 0 {
		return fmt.Errorf("no days of week")
	}

	budget := &models.DailyBudget{
		BudgetID:    pick(in.ID, id),
		Name:        in.Name,
		Category:    in.Category,
		DaysOfWeek:  in.DaysOfWeek,
		Description: in.Description,
		AutoCreate:  in.AutoCreate,
		AccountID:   optional(in.AccountID),
		CreatedAt:   d.timeOr(in.CreatedAt, d.opts.Now()),
	}

	items, err := collection(in.Items)
	if err != nil {
		return fmt.Errorf("items: %w", err)
	}
	for _, rec := range items {
		var item rawDailyBudgetItem
		if err := json.Unmarshal(rec.raw, &item); err != nil {
			return fmt.Errorf("item %s: %w", rec.id, err)
		}
		budget.Items = append(budget.Items, models.DailyBudgetItem{
			ItemID:      pick(item.ID, budget.BudgetID+"-"+rec.id),
			Name:        item.Name,
			Amount:      item.Amount,
			Category:    pick(item.Category, in.Category),
			Description: item.Description,
		})
	}
	// the stored limit is derived, never trusted
	budget.Limit = budget.ItemsTotal()

	d.exp.DailyBudgets = append(d.exp.DailyBudgets, budget)
	return nil
}

type rawBudget struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Recurring *bool           `json:"recurring"`
}

func (d *decoder) budget(id string, raw json.RawMessage) error {
	var in rawBudget
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("no category")
	}
	recurring := in.Recurring == nil || *in.Recurring
	d.exp.Budgets = append(d.exp.Budgets, &models.Budget{
		BudgetID:  pick(in.ID, id),
		Category:  in.Category,
		Limit:     in.Limit,
		Recurring: recurring,
		CreatedAt: d.opts.Now(),
	})
	return nil
}
