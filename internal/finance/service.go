// Package finance owns the ledger rules: balances, transactions, obligation
// definitions, the daily obligation pass and the pending approval queue.
package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
	"github.com/hray3182/ledgerline/internal/rrule"
)

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultPendingMaxAge = 7 * 24 * time.Hour
)

// Metrics receives counters for ledger activity.
type Metrics interface {
	TransactionPosted(source string)
	ObligationsDetected(kind models.PendingKind, pending, executed int)
	PendingResolved(status models.PendingStatus)
	PendingExpired(count int)
	DetectionFailed()
}

type nopMetrics struct{}

func (nopMetrics) TransactionPosted(string)                        {}
func (nopMetrics) ObligationsDetected(models.PendingKind, int, int) {}
func (nopMetrics) PendingResolved(models.PendingStatus)            {}
func (nopMetrics) PendingExpired(int)                              {}
func (nopMetrics) DetectionFailed()                                {}

type Options struct {
	// Location defines the calendar day obligations are evaluated against.
	Location           *time.Location
	StoreTimeout       time.Duration
	DefaultAccountID   string
	DefaultAccountType models.AccountType
	PendingMaxAge      time.Duration
	Now                func() time.Time
	Metrics            Metrics
	Advisor            Advisor
	// ChangeFeed reports writes made outside this process. Optional.
	ChangeFeed ChangeFeed
}

type Service struct {
	store     repository.Store
	opts      Options
	detection singleflight.Group
	hub       *hub
}

func NewService(store repository.Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.DefaultAccountType == "" {
		opts.DefaultAccountType = models.AccountTypeBCP
	}
	if opts.PendingMaxAge <= 0 {
		opts.PendingMaxAge = defaultPendingMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}

	s := &Service{store: store, opts: opts}
	s.hub = newHub(opts.ChangeFeed, s.Snapshot)
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

func (s *Service) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// today is local midnight of the current calendar date.
func (s *Service) today() time.Time {
	return rrule.StartOfDay(s.opts.Now(), s.opts.Location)
}

// calendarDate reinterprets the year, month and day of t as a local date.
// Dates read back from a DATE column arrive as UTC midnight.
func (s *Service) calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)
}

func (s *Service) changed() {
	s.hub.trigger()
}

func (s *Service) Location() *time.Location {
	return s.opts.Location
}

func newID() string {
	return uuid.NewString()
}
