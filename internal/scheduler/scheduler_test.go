package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/models"
)

type fakeLedger struct {
	mu      sync.Mutex
	runs    int
	err     error
	report  finance.DetectionReport
	pending []*models.PendingPayment
}

func (l *fakeLedger) RunDetection(context.Context) (finance.DetectionReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs++
	if l.err != nil {
		return finance.DetectionReport{}, l.err
	}
	return l.report, nil
}

func (l *fakeLedger) ListPendingPayments(context.Context, models.PendingStatus) ([]*models.PendingPayment, error) {
	return l.pending, nil
}

func (l *fakeLedger) runCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runs
}

type fakeNotifier struct {
	mu      sync.Mutex
	reports []finance.DetectionReport
	pending [][]*models.PendingPayment
}

func (n *fakeNotifier) NotifyDetection(_ context.Context, report finance.DetectionReport, pending []*models.PendingPayment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	n.pending = append(n.pending, pending)
}

func TestCheckRunsOncePerDay(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 1, 0, 0, time.UTC)
	ledger := &fakeLedger{report: finance.DetectionReport{Date: "2024-03-05"}}
	s := New(ledger, Config{Location: time.UTC, Now: func() time.Time { return now }})
	ctx := context.Background()

	s.check(ctx)
	s.check(ctx)
	require.Equal(t, 1, ledger.runCount())

	now = now.AddDate(0, 0, 1)
	ledger.report.Date = "2024-03-06"
	s.check(ctx)
	require.Equal(t, 2, ledger.runCount())
}

func TestFailedPassIsRetried(t *testing.T) {
	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		err:    fmt.Errorf("failed to list recurring payments: %w", finance.ErrIO),
		report: finance.DetectionReport{Date: "2024-03-05"},
	}
	s := New(ledger, Config{Location: time.UTC, Now: func() time.Time { return now }})
	ctx := context.Background()

	s.check(ctx)
	ledger.err = nil
	s.check(ctx)
	s.check(ctx)
	require.Equal(t, 2, ledger.runCount())
}

func TestPermanentFailureWaitsForNextDay(t *testing.T) {
	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{err: finance.ErrNoDefaultAccount}
	s := New(ledger, Config{Location: time.UTC, Now: func() time.Time { return now }})
	ctx := context.Background()

	s.check(ctx)
	s.check(ctx)
	require.Equal(t, 1, ledger.runCount())

	// an explicit run still goes through
	_, err := s.Run(ctx)
	require.ErrorIs(t, err, finance.ErrNoDefaultAccount)
	require.Equal(t, 2, ledger.runCount())

	now = now.AddDate(0, 0, 1)
	ledger.err = nil
	ledger.report = finance.DetectionReport{Date: "2024-03-06"}
	s.check(ctx)
	require.Equal(t, 3, ledger.runCount())
}

func TestRunNotifiesQueuedPayments(t *testing.T) {
	today := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		report: finance.DetectionReport{Date: "2024-03-05", Recurring: finance.RecurringResult{Pending: 1}},
		pending: []*models.PendingPayment{
			{PendingID: "today", ScheduledDate: today},
			{PendingID: "yesterday", ScheduledDate: today.AddDate(0, 0, -1)},
		},
	}
	notifier := &fakeNotifier{}
	runs := 0
	s := New(ledger, Config{Location: time.UTC, OnRun: func() { runs++ }})
	s.SetNotifier(notifier)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Recurring.Pending)
	require.Equal(t, 1, runs)

	require.Len(t, notifier.reports, 1)
	require.Len(t, notifier.pending[0], 1)
	require.Equal(t, "today", notifier.pending[0][0].PendingID)
}

func TestRunWithNothingNewStaysQuiet(t *testing.T) {
	ledger := &fakeLedger{report: finance.DetectionReport{Date: "2024-03-05"}}
	notifier := &fakeNotifier{}
	s := New(ledger, Config{})
	s.SetNotifier(notifier)

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, notifier.reports)
}

func TestStartRunsOnNotify(t *testing.T) {
	ledger := &fakeLedger{report: finance.DetectionReport{Date: "2024-03-05"}}
	s := New(ledger, Config{Interval: time.Hour, RunOnStartup: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ledger.runCount() == 1 }, time.Second, 5*time.Millisecond)
	s.Notify()
	require.Eventually(t, func() bool { return ledger.runCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
