package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PendingKind string

const (
	PendingKindRecurring   PendingKind = "recurring"
	PendingKindDailyBudget PendingKind = "daily-budget"
)

type PendingStatus string

const (
	PendingStatusPending  PendingStatus = "pending"
	PendingStatusApproved PendingStatus = "approved"
	PendingStatusRejected PendingStatus = "rejected"
)

func (s PendingStatus) IsValid() bool {
	return s == PendingStatusPending || s == PendingStatusApproved || s == PendingStatusRejected
}

func (s PendingStatus) IsTerminal() bool {
	return s == PendingStatusApproved || s == PendingStatusRejected
}

// PendingPayment is an obligation instance waiting for the user to approve or
// reject it. SourceID points at the RecurringPayment or DailyBudget that
// produced it; the source may since have been deleted.
type PendingPayment struct {
	PendingID      string          `json:"pending_id"`
	Kind           PendingKind     `json:"kind"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	ScheduledDate  time.Time       `json:"scheduled_date"`
	AccountID      string          `json:"account_id"`
	SourceID       string          `json:"source_id"`
	SourceItemID   *string         `json:"source_item_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Status         PendingStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at"`
}
