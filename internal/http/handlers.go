package http

import (
	"context"
	"net/http"
	"time"

	"expenses/internal/core"
	"expenses/internal/validate"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeNewExpense(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	e, err := s.svc.CreateExpense(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleListExpensesByMonth(w http.ResponseWriter, r *http.Request) {
	var errs validate.Errs
	year, fe := validate.Int("year", chi.URLParam(r, "year"))
	errs = errs.Add(fe)
	month, fe := validate.Int("month", chi.URLParam(r, "month"))
	errs = errs.Add(fe)
	if err := errs.Err(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	items, err := s.svc.ListExpensesByMonth(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	salary, fe := validate.Float("salary", r.URL.Query().Get("salary"))
	if fe != nil {
		writeServiceError(w, r, validate.Errs{*fe})
		return
	}

	totals, err := s.svc.GetTotals(r.Context(), salary)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, CodeNotReady, err.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "not found", nil)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeNotAllowed, "method not allowed", nil)
}

func nonNil(items []core.Expense) []core.Expense {
	if items == nil {
		return []core.Expense{}
	}
	return items
}
