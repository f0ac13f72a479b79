package httpapi

import (
	"net/http"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/models"
)

func (s *Server) handleListRecurringPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.ListRecurringPayments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, payments)
}

func (s *Server) handleCreateRecurringPayment(w http.ResponseWriter, r *http.Request) {
	var in finance.RecurringPaymentInput
	if !decode(w, r, &in) {
		return
	}
	payment, err := s.svc.CreateRecurringPayment(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, payment)
}

func (s *Server) handleUpdateRecurringPayment(w http.ResponseWriter, r *http.Request) {
	var in finance.RecurringPaymentInput
	if !decode(w, r, &in) {
		return
	}
	payment, err := s.svc.UpdateRecurringPayment(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, payment)
}

func (s *Server) handleDeleteRecurringPayment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRecurringPayment(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleMigrateRecurringPayments(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.MigrateRecurringPayments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"migrated": n})
}

func (s *Server) handleListDailyBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.ListDailyBudgets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateDailyBudget(w http.ResponseWriter, r *http.Request) {
	var in finance.DailyBudgetInput
	if !decode(w, r, &in) {
		return
	}
	budget, err := s.svc.CreateDailyBudget(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, budget)
}

func (s *Server) handleUpdateDailyBudget(w http.ResponseWriter, r *http.Request) {
	var in finance.DailyBudgetInput
	if !decode(w, r, &in) {
		return
	}
	budget, err := s.svc.UpdateDailyBudget(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteDailyBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteDailyBudget(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.ListBudgets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in finance.BudgetInput
	if !decode(w, r, &in) {
		return
	}
	budget, err := s.svc.CreateBudget(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleListPendingPayments(w http.ResponseWriter, r *http.Request) {
	status := models.PendingStatus(r.URL.Query().Get("status"))
	pending, err := s.svc.ListPendingPayments(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pending)
}

func (s *Server) handleGetPendingPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPendingPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleApprovePendingPayment(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.ApprovePendingPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tx)
}

func (s *Server) handleRejectPendingPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.RejectPendingPayment(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := s.svc.GetPendingPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleCleanupPendingPayments(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.CleanupOldPendingPayments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"expired": n})
}
