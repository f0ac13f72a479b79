package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used in idempotency keys.
const DateLayout = "2006-01-02"

// Idempotency keys. A key is unique across transactions and pending payments,
// so an obligation materialises at most once per day.

func RecurringKey(paymentID string, day time.Time) string {
	return fmt.Sprintf("recurring:%s:%s", paymentID, day.Format(DateLayout))
}

// DailyBudgetPrefix is shared by every item key of one budget occurrence.
func DailyBudgetPrefix(budgetID string, day time.Time) string {
	return fmt.Sprintf("daily-budget:%s:%s", budgetID, day.Format(DateLayout))
}

func DailyBudgetKey(budgetID, itemID string, day time.Time) string {
	return DailyBudgetPrefix(budgetID, day) + ":" + itemID
}

// PendingKey marks the transaction posted when a pending payment is approved.
func PendingKey(pendingID string) string {
	return "pending:" + pendingID
}
