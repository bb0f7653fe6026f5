package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.svc.Accounts.Register(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).Info("User registered", log.FieldOwnerID, u.ID, log.FieldOperation, log.OpCreate)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u := owner(r)
	p, err := s.svc.Accounts.Profile(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "profile": p})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u := owner(r)
	current, err := s.svc.Accounts.Profile(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Accounts.UpdateProfile(r.Context(), u.ID, req.apply(current))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
