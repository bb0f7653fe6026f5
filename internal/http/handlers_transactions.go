package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// handleListTransactions streams at most limit matching rows from the ledger.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := parseFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := parseLimit(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs := make([]core.Transaction, 0, min(limit, services.DefaultPageSize))
	for t, err := range s.svc.Ledger.List(r.Context(), owner(r).ID, f) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		txs = append(txs, t)
		if len(txs) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, newList(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Ledger.Get(r.Context(), id, owner(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := s.transactionInput(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Ledger.Create(r.Context(), owner(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, ok := s.transactionInput(w, r)
	if !ok {
		return
	}
	t, err := s.svc.Ledger.Update(r.Context(), id, owner(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Ledger.Delete(r.Context(), id, owner(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transactionInput decodes the body and resolves defaults from the owner's
// profile. It writes the error response itself and reports whether to go on.
func (s *Server) transactionInput(w http.ResponseWriter, r *http.Request) (services.TransactionInput, bool) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return services.TransactionInput{}, false
	}
	p, err := s.svc.Accounts.Profile(r.Context(), owner(r).ID)
	if err != nil {
		writeError(w, r, err)
		return services.TransactionInput{}, false
	}
	in, err := req.input(p.DefaultCurrency, s.now())
	if err != nil {
		writeError(w, r, err)
		return services.TransactionInput{}, false
	}
	return in, true
}
