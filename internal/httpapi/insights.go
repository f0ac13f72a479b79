package httpapi

import (
	"net/http"
	"time"
)

const defaultUpcomingDays = 7

func (s *Server) handleRunScheduler(w http.ResponseWriter, r *http.Request) {
	run := s.svc.RunDetection
	if s.runner != nil {
		run = s.runner.Run
	}
	report, err := run(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", raw, s.svc.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be yyyy-mm-dd")
		return
	}

	forecast, err := s.svc.ForecastBalance(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, forecast)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultUpcomingDays)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	upcoming, err := s.svc.Upcoming(r.Context(), days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, upcoming)
}

func (s *Server) handleFinancialHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.svc.FinancialHealth(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, health)
}

func (s *Server) handleSavingsTips(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goals string `json:"goals"`
	}
	if !decode(w, r, &req) {
		return
	}
	tips, err := s.svc.SavingsTips(r.Context(), req.Goals)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string][]string{"savingsTips": tips})
}
