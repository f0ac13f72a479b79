package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecurringPayment struct {
	PaymentID   string          `json:"payment_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	DayOfMonth  int             `json:"day_of_month"`
	DaysOfWeek  []int           `json:"days_of_week"` // nil: no weekday restriction
	Description string          `json:"description"`
	// RequiresApproval is nil for records created before approvals existed.
	RequiresApproval *bool     `json:"requires_approval"`
	CreatedAt        time.Time `json:"created_at"`
}

// NeedsApproval treats legacy records (no flag stored) as requiring approval.
func (p *RecurringPayment) NeedsApproval() bool {
	return p.RequiresApproval == nil || *p.RequiresApproval
}

func (p *RecurringPayment) IsLegacy() bool {
	return p.RequiresApproval == nil
}
