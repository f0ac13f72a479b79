package finance

import (
	"context"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

// ChangeFeed reports writes made by other processes. Listen blocks until
// ctx is cancelled.
type ChangeFeed interface {
	Listen(ctx context.Context, onChange func(source string)) error
}

// Snapshot computes the full FinancialData view.
func (s *Service) Snapshot(ctx context.Context) (*models.FinancialData, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data := &models.FinancialData{}
	var err error
	if data.Accounts, err = s.store.Accounts().List(ctx); err != nil {
		return nil, storeErr("list accounts", err)
	}
	if data.Transactions, err = s.store.Transactions().List(ctx, repository.TransactionFilter{}); err != nil {
		return nil, storeErr("list transactions", err)
	}
	if data.RecurringPayments, err = s.store.RecurringPayments().List(ctx); err != nil {
		return nil, storeErr("list recurring payments", err)
	}
	if data.DailyBudgets, err = s.store.DailyBudgets().List(ctx); err != nil {
		return nil, storeErr("list daily budgets", err)
	}
	if data.Budgets, err = s.store.Budgets().List(ctx); err != nil {
		return nil, storeErr("list budgets", err)
	}
	if data.PendingPayments, err = s.store.PendingPayments().List(ctx, ""); err != nil {
		return nil, storeErr("list pending payments", err)
	}
	if data.InitialBalance, err = initialBalance(ctx, s.store); err != nil {
		return nil, storeErr("get initial balance", err)
	}

	data.CurrentBalance = decimal.Zero
	for _, a := range data.Accounts {
		data.CurrentBalance = data.CurrentBalance.Add(a.Balance)
	}
	data.AccountTotals = accountTotals(data.Accounts, data.Transactions)
	return data, nil
}

func accountTotals(accounts []*models.Account, txs []*models.Transaction) []models.AccountTotal {
	totals := make([]models.AccountTotal, len(accounts))
	index := make(map[string]int, len(accounts))
	for i, a := range accounts {
		totals[i] = models.AccountTotal{
			AccountID: a.AccountID,
			Name:      a.Name,
			Income:    decimal.Zero,
			Expense:   decimal.Zero,
			Balance:   a.Balance,
		}
		index[a.AccountID] = i
	}
	for _, tx := range txs {
		if !tx.HasAccount() {
			continue
		}
		i, ok := index[*tx.AccountID]
		if !ok {
			continue
		}
		if tx.Type == models.TransactionTypeIncome {
			totals[i].Income = totals[i].Income.Add(tx.Amount)
		} else {
			totals[i].Expense = totals[i].Expense.Add(tx.Amount)
		}
	}
	for i := range totals {
		totals[i].NetFlow = totals[i].Income.Sub(totals[i].Expense)
	}
	return totals
}

// Subscribe registers fn to receive a fresh snapshot after every change,
// starting with the current state. The first subscriber starts the change
// feed and the last unsubscribe stops it. fn runs on the hub goroutine.
func (s *Service) Subscribe(fn func(*models.FinancialData)) (unsubscribe func()) {
	return s.hub.subscribe(fn)
}

type hub struct {
	mu     sync.Mutex
	subs   map[int]func(*models.FinancialData)
	nextID int
	stop   context.CancelFunc
	kick   chan struct{}

	feed  ChangeFeed
	build func(ctx context.Context) (*models.FinancialData, error)
}

func newHub(feed ChangeFeed, build func(ctx context.Context) (*models.FinancialData, error)) *hub {
	return &hub{
		subs:  make(map[int]func(*models.FinancialData)),
		kick:  make(chan struct{}, 1),
		feed:  feed,
		build: build,
	}
}

func (h *hub) subscribe(fn func(*models.FinancialData)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	if len(h.subs) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.stop = cancel
		go h.loop(ctx)
		if h.feed != nil {
			go func() {
				if err := h.feed.Listen(ctx, func(string) { h.trigger() }); err != nil {
					log.Printf("Change feed stopped: %v", err)
				}
			}()
		}
	}
	h.mu.Unlock()

	h.trigger()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			if len(h.subs) == 0 && h.stop != nil {
				h.stop()
				h.stop = nil
			}
		})
	}
}

// trigger schedules a recompute. Bursts of changes collapse into one push.
func (h *hub) trigger() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

func (h *hub) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.kick:
			if ctx.Err() != nil {
				// a newer loop owns the kick now
				h.trigger()
				return
			}
			h.push(ctx)
		}
	}
}

func (h *hub) push(ctx context.Context) {
	h.mu.Lock()
	if len(h.subs) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	data, err := h.build(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Failed to build snapshot: %v", err)
		}
		return
	}

	h.mu.Lock()
	subs := make([]func(*models.FinancialData), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(data)
	}
}
