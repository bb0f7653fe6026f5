package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month, err := parseMonthParams(q, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	currency, err := queryCurrency(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := s.svc.Reports.Monthly(r.Context(), owner(r).ID, year, month, currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).Debug("Monthly report served", log.FieldYear, year, log.FieldMonth, month)
	writeJSON(w, http.StatusOK, map[string]any{
		"report":            rep,
		"expense_breakdown": rep.ExpenseBreakdown(),
	})
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := queryInt(q, "year", s.now().Year())
	if err != nil {
		writeError(w, r, err)
		return
	}
	currency, err := queryCurrency(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := s.svc.Reports.Yearly(r.Context(), owner(r).ID, year, currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Dashboard.Snapshot(r.Context(), owner(r).ID, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
