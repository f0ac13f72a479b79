package finance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
)

func TestSnapshotTotals(t *testing.T) {
	f := newFixture(t, tuesday)
	a := f.account("BCP", models.AccountTypeBCP, 100)
	b := f.account("Wallet", models.AccountTypeCash, 20)
	require.NoError(t, f.svc.SetInitialBalance(f.ctx, decimal.NewFromInt(120)))

	for _, in := range []TransactionInput{
		{Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(40), Category: "Salary", AccountID: &a.AccountID},
		{Type: models.TransactionTypeExpense, Amount: decimal.NewFromInt(15), Category: "Food", AccountID: &a.AccountID},
		{Type: models.TransactionTypeExpense, Amount: decimal.NewFromInt(5), Category: "Food", AccountID: &b.AccountID},
		{Type: models.TransactionTypeExpense, Amount: decimal.NewFromInt(1), Category: "Tips"},
	} {
		_, err := f.svc.PostTransaction(f.ctx, in)
		require.NoError(t, err)
	}

	data, err := f.svc.Snapshot(f.ctx)
	require.NoError(t, err)
	require.Len(t, data.Transactions, 4)
	requireDecimal(t, 120, data.InitialBalance)
	requireDecimal(t, 140, data.CurrentBalance)

	require.Len(t, data.AccountTotals, 2)
	bcp := data.AccountTotals[0]
	require.Equal(t, a.AccountID, bcp.AccountID)
	requireDecimal(t, 40, bcp.Income)
	requireDecimal(t, 15, bcp.Expense)
	requireDecimal(t, 25, bcp.NetFlow)
	requireDecimal(t, 125, bcp.Balance)
	requireDecimal(t, -5, data.AccountTotals[1].NetFlow)
}

type recorder struct {
	mu       sync.Mutex
	received []*models.FinancialData
}

func (r *recorder) record(d *models.FinancialData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, d)
}

func (r *recorder) last() *models.FinancialData {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.received) == 0 {
		return nil
	}
	return r.received[len(r.received)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	f := newFixture(t, tuesday)
	a := f.account("BCP", models.AccountTypeBCP, 100)

	rec := &recorder{}
	unsubscribe := f.svc.Subscribe(rec.record)

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)

	_, err := f.svc.PostTransaction(f.ctx, TransactionInput{
		Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(50), Category: "Gift", AccountID: &a.AccountID,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last := rec.last()
		return last != nil && last.CurrentBalance.Equal(decimal.NewFromInt(150))
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	seen := rec.count()

	_, err = f.svc.PostTransaction(f.ctx, TransactionInput{
		Type: models.TransactionTypeIncome, Amount: decimal.NewFromInt(1), Category: "Gift", AccountID: &a.AccountID,
	})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, seen, rec.count())
}

type fakeFeed struct {
	mu       sync.Mutex
	started  int
	stopped  int
	onChange func(string)
}

func (f *fakeFeed) Listen(ctx context.Context, onChange func(string)) error {
	f.mu.Lock()
	f.started++
	f.onChange = onChange
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

func (f *fakeFeed) state() (started, stopped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped
}

func (f *fakeFeed) fire() {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	if fn != nil {
		fn("transactions")
	}
}

func TestChangeFeedLifecycle(t *testing.T) {
	feed := &fakeFeed{}
	f := newFixture(t, tuesday, func(o *Options) { o.ChangeFeed = feed })

	first := &recorder{}
	second := &recorder{}
	unsubFirst := f.svc.Subscribe(first.record)
	unsubSecond := f.svc.Subscribe(second.record)

	require.Eventually(t, func() bool { s, _ := feed.state(); return s == 1 }, time.Second, 5*time.Millisecond)

	// a write from another process arrives through the feed
	before := second.count()
	require.NoError(t, f.store.Settings().Set(f.ctx, "initial_balance", "10"))
	feed.fire()
	require.Eventually(t, func() bool {
		last := second.last()
		return second.count() > before && last.InitialBalance.Equal(decimal.NewFromInt(10))
	}, time.Second, 5*time.Millisecond)

	unsubFirst()
	_, stopped := feed.state()
	require.Zero(t, stopped)

	unsubSecond()
	require.Eventually(t, func() bool { _, s := feed.state(); return s == 1 }, time.Second, 5*time.Millisecond)
}
