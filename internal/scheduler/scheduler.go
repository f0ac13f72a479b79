package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/models"
)

// Ledger is the part of the finance service the scheduler drives.
type Ledger interface {
	RunDetection(ctx context.Context) (finance.DetectionReport, error)
	ListPendingPayments(ctx context.Context, status models.PendingStatus) ([]*models.PendingPayment, error)
}

// Notifier is told about every pass that produced something. pending holds
// the payments queued for the report's date.
type Notifier interface {
	NotifyDetection(ctx context.Context, report finance.DetectionReport, pending []*models.PendingPayment)
}

type Config struct {
	Interval     time.Duration
	RunOnStartup bool
	Location     *time.Location
	Now          func() time.Time
	// OnRun is called before each pass, e.g. to count runs.
	OnRun func()
}

type Scheduler struct {
	ledger   Ledger
	notifier Notifier
	cfg      Config
	notifyCh chan struct{}

	mu          sync.Mutex
	lastRunDate string
}

func New(ledger Ledger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		ledger:   ledger,
		cfg:      cfg,
		notifyCh: make(chan struct{}, 1),
	}
}

// SetNotifier must be called before Start.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Notify triggers an immediate pass. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("Scheduler started (interval %s)", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.RunOnStartup {
		s.check(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.notifyCh:
			log.Println("Scheduler triggered by notification")
			if _, err := s.Run(ctx); err != nil {
				log.Printf("Failed to run obligation pass: %v", err)
			}
		}
	}
}

// check runs the pass once per local calendar day. A pass that failed on
// storage is retried on the next tick; any other failure waits for the next
// day or an explicit Run.
func (s *Scheduler) check(ctx context.Context) {
	if !s.due() {
		return
	}
	today := s.today()
	if _, err := s.Run(ctx); err != nil {
		log.Printf("Failed to run obligation pass: %v", err)
		if !finance.IsRetryable(err) {
			s.mu.Lock()
			s.lastRunDate = today
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) today() string {
	return s.cfg.Now().In(s.cfg.Location).Format("2006-01-02")
}

func (s *Scheduler) due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunDate != s.today()
}

// Run performs one pass now, regardless of whether today's already ran, and
// notifies about what it produced.
func (s *Scheduler) Run(ctx context.Context) (finance.DetectionReport, error) {
	if s.cfg.OnRun != nil {
		s.cfg.OnRun()
	}

	report, err := s.ledger.RunDetection(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.lastRunDate = report.Date
	s.mu.Unlock()

	if report.Total() > 0 && s.notifier != nil {
		s.notifier.NotifyDetection(ctx, report, s.queuedFor(ctx, report.Date))
	}
	return report, nil
}

func (s *Scheduler) queuedFor(ctx context.Context, date string) []*models.PendingPayment {
	pending, err := s.ledger.ListPendingPayments(ctx, models.PendingStatusPending)
	if err != nil {
		log.Printf("Failed to list pending payments: %v", err)
		return nil
	}
	var out []*models.PendingPayment
	for _, p := range pending {
		if p.ScheduledDate.Format("2006-01-02") == date {
			out = append(out, p)
		}
	}
	return out
}
