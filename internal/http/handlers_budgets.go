package http

import (
	"net/http"

	"fintrack/internal/services"
)

// handleListBudgets returns every budget evaluated for the current period.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.svc.Budgets.EvaluateAll(r.Context(), owner(r).ID, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(statuses))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), id, owner(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := s.budgetInput(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Budgets.Create(r.Context(), owner(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, ok := s.budgetInput(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Budgets.Update(r.Context(), id, owner(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), id, owner(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBudgetStatus evaluates one budget; this may emit an alert.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.svc.Budgets.Evaluate(r.Context(), owner(r).ID, id, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) budgetInput(w http.ResponseWriter, r *http.Request) (services.BudgetInput, bool) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return services.BudgetInput{}, false
	}
	p, err := s.svc.Accounts.Profile(r.Context(), owner(r).ID)
	if err != nil {
		writeError(w, r, err)
		return services.BudgetInput{}, false
	}
	in, err := req.input(p.DefaultCurrency, s.now())
	if err != nil {
		writeError(w, r, err)
		return services.BudgetInput{}, false
	}
	return in, true
}
