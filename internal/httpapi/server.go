// Package httpapi exposes the ledger over JSON and server-sent events.
package httpapi

import (
	"context"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/hray3182/ledgerline/internal/finance"
)

// Runner starts an obligation pass on demand.
type Runner interface {
	Run(ctx context.Context) (finance.DetectionReport, error)
}

type Server struct {
	svc     *finance.Service
	runner  Runner
	metrics http.Handler
}

// NewServer builds the API. runner and metrics are optional; without a
// runner /api/scheduler/run calls the service directly.
func NewServer(svc *finance.Service, runner Runner, metrics http.Handler) *Server {
	return &Server{svc: svc, runner: runner, metrics: metrics}
}

// HTTPServer returns a server whose request contexts derive from ctx, so
// long-lived streams end as soon as ctx is cancelled and Shutdown can finish.
func (s *Server) HTTPServer(ctx context.Context, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/stream", s.handleStream)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("PUT /api/accounts/{id}/balance", s.handleSetBalance)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handlePostTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/recurring-payments", s.handleListRecurringPayments)
	mux.HandleFunc("POST /api/recurring-payments", s.handleCreateRecurringPayment)
	mux.HandleFunc("PUT /api/recurring-payments/{id}", s.handleUpdateRecurringPayment)
	mux.HandleFunc("DELETE /api/recurring-payments/{id}", s.handleDeleteRecurringPayment)

	mux.HandleFunc("GET /api/daily-budgets", s.handleListDailyBudgets)
	mux.HandleFunc("POST /api/daily-budgets", s.handleCreateDailyBudget)
	mux.HandleFunc("PUT /api/daily-budgets/{id}", s.handleUpdateDailyBudget)
	mux.HandleFunc("DELETE /api/daily-budgets/{id}", s.handleDeleteDailyBudget)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/pending-payments", s.handleListPendingPayments)
	mux.HandleFunc("GET /api/pending-payments/{id}", s.handleGetPendingPayment)
	mux.HandleFunc("POST /api/pending-payments/{id}/approve", s.handleApprovePendingPayment)
	mux.HandleFunc("POST /api/pending-payments/{id}/reject", s.handleRejectPendingPayment)
	mux.HandleFunc("POST /api/pending-payments/cleanup", s.handleCleanupPendingPayments)

	mux.HandleFunc("POST /api/scheduler/run", s.handleRunScheduler)
	mux.HandleFunc("POST /api/migrations/recurring-payments", s.handleMigrateRecurringPayments)

	mux.HandleFunc("PUT /api/settings/initial-balance", s.handleSetInitialBalance)
	mux.HandleFunc("GET /api/settings/default-account", s.handleGetDefaultAccount)
	mux.HandleFunc("PUT /api/settings/default-account", s.handleSetDefaultAccount)

	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)

	mux.HandleFunc("POST /api/insights/financial-health", s.handleFinancialHealth)
	mux.HandleFunc("POST /api/insights/savings-tips", s.handleSavingsTips)

	return recoverer(logRequests(cors(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps the event stream working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Printf("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
