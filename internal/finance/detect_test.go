package finance

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
)

func rent(requiresApproval bool) RecurringPaymentInput {
	return RecurringPaymentInput{
		Name:             "Rent",
		Amount:           decimal.NewFromInt(30),
		Category:         "Rent",
		DayOfMonth:       5,
		RequiresApproval: boolPtr(requiresApproval),
	}
}

func TestRecurringPaymentPostsDirectly(t *testing.T) {
	f := newFixture(t, tuesday)
	a := f.account("BCP", models.AccountTypeBCP, 100)
	f.recurring(rent(false))

	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{Executed: 1}, result)

	txs := f.transactions()
	require.Len(t, txs, 1)
	requireDecimal(t, 30, txs[0].Amount)
	require.Equal(t, "Rent", txs[0].Category)
	require.Equal(t, models.TransactionTypeExpense, txs[0].Type)
	require.Equal(t, a.AccountID, *txs[0].AccountID)
	require.Empty(t, f.pending(""))
	requireDecimal(t, 70, f.balance(a.AccountID))

	result, err = f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{}, result)
	require.Len(t, f.transactions(), 1)
	requireDecimal(t, 70, f.balance(a.AccountID))
}

func TestRecurringPaymentQueuesForApproval(t *testing.T) {
	f := newFixture(t, tuesday)
	a := f.account("BCP", models.AccountTypeBCP, 100)
	p := f.recurring(rent(true))

	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{Pending: 1}, result)

	pending := f.pending(models.PendingStatusPending)
	require.Len(t, pending, 1)
	require.Equal(t, models.PendingKindRecurring, pending[0].Kind)
	require.Equal(t, p.PaymentID, pending[0].SourceID)
	require.Equal(t, a.AccountID, pending[0].AccountID)
	require.Equal(t, "recurring:"+p.PaymentID+":2024-03-05", pending[0].IdempotencyKey)
	require.Empty(t, f.transactions())

	result, err = f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{}, result)
	require.Len(t, f.pending(""), 1)
}

func TestRecurringPaymentNotDueOnOtherDays(t *testing.T) {
	f := newFixture(t, monday)
	f.account("BCP", models.AccountTypeBCP, 100)
	f.recurring(rent(false))

	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{}, result)
	require.Empty(t, f.transactions())
}

func TestRecurringPaymentWeekdayRestriction(t *testing.T) {
	f := newFixture(t, tuesday)
	f.account("BCP", models.AccountTypeBCP, 100)
	in := rent(true)
	in.DaysOfWeek = []int{1}
	f.recurring(in)

	// the 5th of March 2024 is a Tuesday
	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{}, result)

	// the 5th of August 2024 is a Monday
	f.setNow(time.Date(2024, 8, 5, 8, 0, 0, 0, lima))
	result, err = f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{Pending: 1}, result)
}

func TestLegacyRecurringPaymentRequiresApproval(t *testing.T) {
	f := newFixture(t, tuesday)
	f.account("BCP", models.AccountTypeBCP, 100)
	require.NoError(t, f.store.RecurringPayments().Create(f.ctx, &models.RecurringPayment{
		PaymentID: "legacy", Name: "Internet", Amount: decimal.NewFromInt(80), Category: "Utilities",
		DayOfMonth: 5, CreatedAt: tuesday,
	}))

	result, err := f.svc.DetectRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, RecurringResult{Pending: 1}, result)
}

func groceries() DailyBudgetInput {
	return DailyBudgetInput{
		Name:       "Market",
		Category:   "Groceries",
		DaysOfWeek: []int{1, 3},
		AutoCreate: true,
		Items: []DailyBudgetItemInput{
			{Name: "Bread", Amount: decimal.NewFromInt(10)},
			{Name: "Fruit", Amount: decimal.NewFromInt(15)},
		},
	}
}

func TestDailyBudgetCreatesOnePendingPerItem(t *testing.T) {
	f := newFixture(t, monday)
	a := f.account("BCP", models.AccountTypeBCP, 100)
	b, err := f.svc.CreateDailyBudget(f.ctx, groceries())
	require.NoError(t, err)

	result, err := f.svc.DetectDailyBudgets(f.ctx)
	require.NoError(t, err)
	require.Equal(t, DailyBudgetResult{Pending: 2}, result)

	pending := f.pending(models.PendingStatusPending)
	require.Len(t, pending, 2)
	for i, p := range pending {
		require.Equal(t, models.PendingKindDailyBudget, p.Kind)
		require.Equal(t, b.BudgetID, p.SourceID)
		require.Equal(t, b.Items[i].ItemID, *p.SourceItemID)
		require.Equal(t, a.AccountID, p.AccountID)
		require.Equal(t, "Groceries", p.Category)
	}
	require.Empty(t, f.transactions())

	result, err = f.svc.DetectDailyBudgets(f.ctx)
	require.NoError(t, err)
	require.Equal(t, DailyBudgetResult{}, result)
	require.Len(t, f.pending(""), 2)
}

func TestDailyBudgetSkipsOtherWeekdays(t *testing.T) {
	f := newFixture(t, tuesday)
	f.account("BCP", models.AccountTypeBCP, 100)
	_, err := f.svc.CreateDailyBudget(f.ctx, groceries())
	require.NoError(t, err)

	result, err := f.svc.DetectDailyBudgets(f.ctx)
	require.NoError(t, err)
	require.Equal(t, DailyBudgetResult{}, result)
	require.Empty(t, f.pending(""))
}

func TestDailyBudgetWithoutAutoCreateIsIgnored(t *testing.T) {
	f := newFixture(t, monday)
	f.account("BCP", models.AccountTypeBCP, 100)
	in := groceries()
	in.AutoCreate = false
	_, err := f.svc.CreateDailyBudget(f.ctx, in)
	require.NoError(t, err)

	result, err := f.svc.DetectDailyBudgets(f.ctx)
	require.NoError(t, err)
	require.Zero(t, result.Pending)
}

func TestDailyBudgetUsesItsOwnAccount(t *testing.T) {
	f := newFixture(t, monday)
	f.account("BCP", models.AccountTypeBCP, 100)
	cash := f.account("Wallet", models.AccountTypeCash, 20)
	in := groceries()
	in.AccountID = &cash.AccountID
	_, err := f.svc.CreateDailyBudget(f.ctx, in)
	require.NoError(t, err)

	_, err = f.svc.DetectDailyBudgets(f.ctx)
	require.NoError(t, err)
	for _, p := range f.pending("") {
		require.Equal(t, cash.AccountID, p.AccountID)
	}
}

func TestDetectionWithoutDefaultAccount(t *testing.T) {
	f := newFixture(t, tuesday)
	f.account("Wallet", models.AccountTypeCash, 100)
	f.recurring(rent(false))

	_, err := f.svc.DetectRecurringPayments(f.ctx)
	require.ErrorIs(t, err, ErrNoDefaultAccount)
	require.False(t, IsRetryable(err))
	require.Empty(t, f.transactions())

	_, err = f.svc.RunDetection(f.ctx)
	require.ErrorIs(t, err, ErrNoDefaultAccount)
	require.Empty(t, f.pending(""))
}

func TestDefaultAccountResolutionOrder(t *testing.T) {
	f := newFixture(t, tuesday, func(o *Options) { o.DefaultAccountType = models.AccountTypeInterbank })
	first := f.account("Interbank", models.AccountTypeInterbank, 0)
	second := f.account("Interbank 2", models.AccountTypeInterbank, 0)
	cash := f.account("Wallet", models.AccountTypeCash, 0)

	a, err := f.svc.DefaultAccount(f.ctx)
	require.NoError(t, err)
	require.Equal(t, first.AccountID, a.AccountID)

	svc := NewService(f.store, Options{Location: lima, Now: f.clock, DefaultAccountID: second.AccountID})
	a, err = svc.DefaultAccount(f.ctx)
	require.NoError(t, err)
	require.Equal(t, second.AccountID, a.AccountID)

	require.NoError(t, svc.SetDefaultAccount(f.ctx, cash.AccountID))
	a, err = svc.DefaultAccount(f.ctx)
	require.NoError(t, err)
	require.Equal(t, cash.AccountID, a.AccountID)

	require.ErrorIs(t, svc.SetDefaultAccount(f.ctx, "missing"), ErrNotFound)
}

func TestRunDetectionIsIdempotent(t *testing.T) {
	f := newFixture(t, monday)
	f.account("BCP", models.AccountTypeBCP, 100)
	f.recurring(RecurringPaymentInput{
		Name: "Gym", Amount: decimal.NewFromInt(50), Category: "Health", DayOfMonth: 4,
		RequiresApproval: boolPtr(false),
	})
	f.recurring(RecurringPaymentInput{
		Name: "Phone", Amount: decimal.NewFromInt(25), Category: "Utilities", DayOfMonth: 4,
	})
	_, err := f.svc.CreateDailyBudget(f.ctx, groceries())
	require.NoError(t, err)

	report, err := f.svc.RunDetection(f.ctx)
	require.NoError(t, err)
	require.Equal(t, "2024-03-04", report.Date)
	require.Equal(t, RecurringResult{Pending: 1, Executed: 1}, report.Recurring)
	require.Equal(t, DailyBudgetResult{Pending: 2}, report.DailyBudgets)
	require.Equal(t, 4, report.Total())

	txs, pending := f.transactions(), f.pending("")

	again, err := f.svc.RunDetection(f.ctx)
	require.NoError(t, err)
	require.Zero(t, again.Total())
	require.Equal(t, txs, f.transactions())
	require.Equal(t, pending, f.pending(""))
}

func TestRunDetectionContinuesPastHousekeepingErrors(t *testing.T) {
	f := newFixture(t, monday)
	f.account("BCP", models.AccountTypeBCP, 100)
	f.recurring(RecurringPaymentInput{
		Name: "Phone", Amount: decimal.NewFromInt(25), Category: "Utilities", DayOfMonth: 4,
	})
	_, err := f.svc.CreateDailyBudget(f.ctx, groceries())
	require.NoError(t, err)

	svc := NewService(&housekeepingFailingStore{Store: f.store}, Options{Location: lima, Now: f.clock})
	report, err := svc.RunDetection(f.ctx)
	require.NoError(t, err)
	require.Zero(t, report.Migrated)
	require.Zero(t, report.Expired)
	require.Equal(t, RecurringResult{Pending: 1}, report.Recurring)
	require.Equal(t, DailyBudgetResult{Pending: 2}, report.DailyBudgets)
	require.Len(t, f.pending(models.PendingStatusPending), 3)
}

func TestConcurrentDetectionCreatesOneRecord(t *testing.T) {
	f := newFixture(t, tuesday)
	f.account("BCP", models.AccountTypeBCP, 100)
	f.recurring(rent(true))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.DetectRecurringPayments(f.ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, f.pending(""), 1)
}

func TestMigrateRecurringPayments(t *testing.T) {
	f := newFixture(t, tuesday)
	for _, id := range []string{"a", "b"} {
		require.NoError(t, f.store.RecurringPayments().Create(f.ctx, &models.RecurringPayment{
			PaymentID: id, Name: id, Amount: decimal.NewFromInt(1), Category: "x", DayOfMonth: 1,
		}))
	}
	f.recurring(rent(false))

	n, err := f.svc.MigrateRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	payments, err := f.svc.ListRecurringPayments(f.ctx)
	require.NoError(t, err)
	for _, p := range payments {
		require.NotNil(t, p.RequiresApproval)
		if p.Name == "Rent" {
			require.False(t, *p.RequiresApproval)
			continue
		}
		require.True(t, *p.RequiresApproval)
		require.Nil(t, p.DaysOfWeek)
	}

	n, err = f.svc.MigrateRecurringPayments(f.ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
