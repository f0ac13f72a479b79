package legacy

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
)

// nestedKeys are the wrappers older clients stored a pending payment under.
var nestedKeys = []string{"paymentData", "payment", "data"}

type rawPendingPayment struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Name               string          `json:"name"`
	Amount             decimal.Decimal `json:"amount"`
	Category           string          `json:"category"`
	Description        string          `json:"description"`
	ScheduledDate      legacyTime      `json:"scheduledDate"`
	Date               legacyTime      `json:"date"`
	AccountID          string          `json:"accountId"`
	RecurringPaymentID string          `json:"recurringPaymentId"`
	DailyBudgetID      string          `json:"dailyBudgetId"`
	ItemID             string          `json:"itemId"`
	Status             string          `json:"status"`
	CreatedAt          legacyTime      `json:"createdAt"`
	ResolvedAt         legacyTime      `json:"resolvedAt"`
}

// flattenPending lifts a payment stored inside a wrapper object up to the
// record itself. Fields on the outer record win over the wrapped ones.
func flattenPending(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["amount"]; ok {
		return raw, nil
	}

	inner := nestedPayload(fields)
	if inner == nil {
		return raw, nil
	}
	for k, v := range fields {
		if _, wrapped := inner[k]; wrapped && isNull(v) {
			continue
		}
		inner[k] = v
	}
	return json.Marshal(inner)
}

func nestedPayload(fields map[string]json.RawMessage) map[string]json.RawMessage {
	candidates := append([]string{}, nestedKeys...)
	// some records were written under their own push id
	var rest []string
	for k := range fields {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	candidates = append(candidates, rest...)

	for _, key := range candidates {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var inner map[string]json.RawMessage
		if json.Unmarshal(raw, &inner) != nil {
			continue
		}
		if _, ok := inner["amount"]; ok {
			delete(fields, key)
			return inner
		}
	}
	return nil
}

func (d *decoder) pendingPayment(id string, raw json.RawMessage) error {
	flat, err := flattenPending(raw)
	if err != nil {
		return err
	}
	var in rawPendingPayment
	if err := json.Unmarshal(flat, &in); err != nil {
		return err
	}

	kind := models.PendingKindRecurring
	sourceID := in.RecurringPaymentID
	switch strings.ToLower(in.Type) {
	case "daily-budget", "dailybudget", "daily_budget":
		kind = models.PendingKindDailyBudget
	case "", "recurring":
		if sourceID == "" && in.DailyBudgetID != "" {
			kind = models.PendingKindDailyBudget
		}
	default:
		return fmt.Errorf("unknown type %q", in.Type)
	}
	if kind == models.PendingKindDailyBudget {
		sourceID = in.DailyBudgetID
	}

	status := models.PendingStatus(strings.ToLower(in.Status))
	if status == "" {
		status = models.PendingStatusPending
	}
	if !status.IsValid() {
		return fmt.Errorf("unknown status %q", in.Status)
	}

	now := d.opts.Now()
	createdAt := d.timeOr(in.CreatedAt, now)
	scheduled := d.day(d.timeOr(in.ScheduledDate, d.timeOr(in.Date, createdAt)))
	pendingID := pick(in.ID, id)

	p := &models.PendingPayment{
		PendingID:      pendingID,
		Kind:           kind,
		Name:           in.Name,
		Amount:         in.Amount,
		Category:       in.Category,
		Description:    in.Description,
		ScheduledDate:  scheduled,
		AccountID:      in.AccountID,
		SourceID:       sourceID,
		SourceItemID:   optional(in.ItemID),
		IdempotencyKey: d.pendingKey(kind, sourceID, in.ItemID, pendingID, scheduled),
		Status:         status,
		CreatedAt:      createdAt,
	}
	if status.IsTerminal() {
		resolved := d.timeOr(in.ResolvedAt, createdAt)
		p.ResolvedAt = &resolved
	}
	d.exp.PendingPayments = append(d.exp.PendingPayments, p)
	return nil
}

// pendingKey gives imported payments the key the scheduler would have used,
// so an obligation already queued in the old system is not queued again.
// Records without a source, or whose key is taken, get a key of their own.
func (d *decoder) pendingKey(kind models.PendingKind, sourceID, itemID, pendingID string, day time.Time) string {
	key := "legacy:" + pendingID
	switch {
	case sourceID == "":
	case kind == models.PendingKindRecurring:
		key = models.RecurringKey(sourceID, day)
	default:
		key = models.DailyBudgetKey(sourceID, pick(itemID, pendingID), day)
	}
	if d.keys[key] {
		key = "legacy:" + pendingID
	}
	d.keys[key] = true
	return key
}
