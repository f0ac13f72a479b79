package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
)

// queued sets up one account and one pending rent payment for today.
func queued(t *testing.T) (*fixture, *models.Account, *models.PendingPayment) {
	f := newFixture(t, tuesday)
	a := f.account("BCP", models.AccountTypeBCP, 100)
	f.recurring(rent(true))

	_, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	pending := f.pending(models.PendingStatusPending)
	require.Len(t, pending, 1)
	return f, a, pending[0]
}

func TestApprovePostsExactlyOneTransaction(t *testing.T) {
	f, a, p := queued(t)

	tx, err := f.svc.ApprovePendingPayment(f.ctx, p.PendingID)
	require.NoError(t, err)
	require.True(t, p.Amount.Equal(tx.Amount))
	require.Equal(t, p.Category, tx.Category)
	require.Equal(t, a.AccountID, *tx.AccountID)
	require.Equal(t, 5, tx.Date.Day())

	txs := f.transactions()
	require.Len(t, txs, 1)
	require.Equal(t, tx.TransactionID, txs[0].TransactionID)
	requireDecimal(t, 70, f.balance(a.AccountID))

	got, err := f.svc.GetPendingPayment(f.ctx, p.PendingID)
	require.NoError(t, err)
	require.Equal(t, models.PendingStatusApproved, got.Status)
	require.NotNil(t, got.ResolvedAt)

	_, err = f.svc.ApprovePendingPayment(f.ctx, p.PendingID)
	require.ErrorIs(t, err, ErrAlreadyResolved)
	require.Len(t, f.transactions(), 1)

	// the obligation is settled for today
	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{}, result)
}

func TestApproveDailyBudgetItemLinksBudget(t *testing.T) {
	f := newFixture(t, monday)
	f.account("BCP", models.AccountTypeBCP, 100)
	b, err := f.svc.CreateDailyBudget(f.ctx, groceries())
	require.NoError(t, err)
	_, err = f.svc.DetectDailyBudgets(f.ctx)
	require.NoError(t, err)

	pending := f.pending(models.PendingStatusPending)
	tx, err := f.svc.ApprovePendingPayment(f.ctx, pending[0].PendingID)
	require.NoError(t, err)
	require.NotNil(t, tx.DailyBudgetID)
	require.Equal(t, b.BudgetID, *tx.DailyBudgetID)
	require.Len(t, f.pending(models.PendingStatusPending), 1)
}

func TestRejectCreatesNoTransaction(t *testing.T) {
	f, a, p := queued(t)

	require.NoError(t, f.svc.RejectPendingPayment(f.ctx, p.PendingID))
	require.Empty(t, f.transactions())
	requireDecimal(t, 100, f.balance(a.AccountID))

	got, err := f.svc.GetPendingPayment(f.ctx, p.PendingID)
	require.NoError(t, err)
	require.Equal(t, models.PendingStatusRejected, got.Status)

	require.ErrorIs(t, f.svc.RejectPendingPayment(f.ctx, p.PendingID), ErrAlreadyResolved)
	_, err = f.svc.ApprovePendingPayment(f.ctx, p.PendingID)
	require.ErrorIs(t, err, ErrAlreadyResolved)

	// a rejected obligation is not queued again the same day
	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Zero(t, result.Pending)
}

func TestApproveAndRejectUnknownID(t *testing.T) {
	f := newFixture(t, tuesday)

	_, err := f.svc.ApprovePendingPayment(f.ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.svc.RejectPendingPayment(f.ctx, "missing"), ErrNotFound)
}

func TestApproveIncompleteDataKeepsPending(t *testing.T) {
	f := newFixture(t, tuesday)
	a := f.account("BCP", models.AccountTypeBCP, 100)

	tests := []struct {
		name    string
		payment models.PendingPayment
	}{
		{"zero amount", models.PendingPayment{Amount: decimal.Zero, Category: "Rent", Description: "rent"}},
		{"no category", models.PendingPayment{Amount: decimal.NewFromInt(5), Description: "rent"}},
		{"no description", models.PendingPayment{Amount: decimal.NewFromInt(5), Category: "Rent"}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.payment
			p.PendingID = tt.name
			p.Kind = models.PendingKindRecurring
			p.AccountID = a.AccountID
			p.IdempotencyKey = "manual:" + string(rune('a'+i))
			p.Status = models.PendingStatusPending
			p.ScheduledDate = tuesday
			p.CreatedAt = tuesday
			_, err := f.store.PendingPayments().Create(f.ctx, &p)
			require.NoError(t, err)

			_, err = f.svc.ApprovePendingPayment(f.ctx, p.PendingID)
			require.ErrorIs(t, err, ErrIncompleteData)

			got, err := f.svc.GetPendingPayment(f.ctx, p.PendingID)
			require.NoError(t, err)
			require.Equal(t, models.PendingStatusPending, got.Status)
		})
	}
	require.Empty(t, f.transactions())
}

func TestApproveRollsBackWhenPostFails(t *testing.T) {
	f, a, p := queued(t)
	broken := NewService(&failingStore{Store: f.store}, Options{Location: lima, Now: f.clock})

	_, err := broken.ApprovePendingPayment(f.ctx, p.PendingID)
	require.ErrorIs(t, err, errDiskFull)
	require.True(t, IsRetryable(err))

	got, err := f.svc.GetPendingPayment(f.ctx, p.PendingID)
	require.NoError(t, err)
	require.Equal(t, models.PendingStatusPending, got.Status)
	require.Nil(t, got.ResolvedAt)
	require.Empty(t, f.transactions())
	requireDecimal(t, 100, f.balance(a.AccountID))

	// the retry against a healthy store succeeds
	_, err = f.svc.ApprovePendingPayment(f.ctx, p.PendingID)
	require.NoError(t, err)
}

func TestCleanupOldPendingPayments(t *testing.T) {
	f := newFixture(t, tuesday)
	now := tuesday

	for _, p := range []*models.PendingPayment{
		{PendingID: "old", CreatedAt: now.AddDate(0, 0, -8), IdempotencyKey: "k-old"},
		{PendingID: "recent", CreatedAt: now.AddDate(0, 0, -1), IdempotencyKey: "k-recent"},
		{PendingID: "approved", CreatedAt: now.AddDate(0, 0, -30), IdempotencyKey: "k-approved", Status: models.PendingStatusApproved},
	} {
		if p.Status == "" {
			p.Status = models.PendingStatusPending
		}
		p.Kind = models.PendingKindRecurring
		p.ScheduledDate = p.CreatedAt
		_, err := f.store.PendingPayments().Create(f.ctx, p)
		require.NoError(t, err)
	}

	n, err := f.svc.CleanupOldPendingPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	status := func(id string) models.PendingStatus {
		p, err := f.svc.GetPendingPayment(f.ctx, id)
		require.NoError(t, err)
		return p.Status
	}
	require.Equal(t, models.PendingStatusRejected, status("old"))
	require.Equal(t, models.PendingStatusPending, status("recent"))
	require.Equal(t, models.PendingStatusApproved, status("approved"))

	f.setNow(tuesday.Add(7 * 24 * time.Hour))
	n, err = f.svc.CleanupOldPendingPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, models.PendingStatusRejected, status("recent"))
}

func TestListPendingPaymentsRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, tuesday)
	_, err := f.svc.ListPendingPayments(f.ctx, "maybe")
	require.ErrorIs(t, err, ErrInvalidInput)
}
