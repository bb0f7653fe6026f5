package http

import (
	"context"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type ownerKey struct{}

// authenticated resolves the caller from basic auth credentials and stores it
// in the request context. Every owner-scoped route goes through it.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}
		key := s.credentials.Key(username, password)
		u, cached := s.credentials.Get(key)
		var err error
		if !cached {
			u, err = s.svc.Accounts.Authenticate(r.Context(), username, password)
		}
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				writeError(w, r, err)
				return
			}
			log.FromContext(r.Context()).Info("Authentication failed", "username", username)
			unauthorized(w)
			return
		}
		if !cached {
			s.credentials.Set(key, u)
		}

		ctx := context.WithValue(r.Context(), ownerKey{}, u)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldOwnerID, u.ID))
		next(w, r.WithContext(ctx))
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="fintrack", charset="UTF-8"`)
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
}

// owner returns the authenticated user; only valid behind authenticated.
func owner(r *http.Request) core.User {
	u, _ := r.Context().Value(ownerKey{}).(core.User)
	return u
}
