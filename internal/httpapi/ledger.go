package httpapi

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, data)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in finance.AccountInput
	if !decode(w, r, &in) {
		return
	}
	account, err := s.svc.CreateAccount(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, account)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.svc.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if err := s.svc.SetBalance(r.Context(), id, req.Amount); err != nil {
		writeServiceError(w, r, err)
		return
	}
	account, err := s.svc.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, account)
}

// transactionRequest mirrors finance.TransactionInput with a free-form date.
// A date that does not parse is dropped and the service stamps the current
// time instead.
type transactionRequest struct {
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Date          string                 `json:"date"`
	Category      string                 `json:"category"`
	Description   string                 `json:"description"`
	AccountID     *string                `json:"account_id"`
	DailyBudgetID *string                `json:"daily_budget_id"`
}

func (req transactionRequest) input(loc *time.Location) finance.TransactionInput {
	in := finance.TransactionInput{
		Type:          req.Type,
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		AccountID:     req.AccountID,
		DailyBudgetID: req.DailyBudgetID,
	}
	if req.Date != "" {
		if date, err := parseDate(req.Date, loc); err == nil {
			in.Date = date
		}
	}
	return in
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{AccountID: q.Get("account_id")}
	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw, s.svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+key+" date")
			return
		}
		*dst = &t
	}

	txs, err := s.svc.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, txs)
}

func (s *Server) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.svc.PostTransaction(r.Context(), req.input(s.svc.Location()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.svc.UpdateTransaction(r.Context(), r.PathValue("id"), req.input(s.svc.Location()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleSetInitialBalance(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetInitialBalance(r.Context(), req.Amount); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}

func (s *Server) handleGetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.svc.DefaultAccount(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, account)
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetDefaultAccount(r.Context(), req.AccountID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.handleGetDefaultAccount(w, r)
}
