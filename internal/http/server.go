// Package http exposes the finance services as a JSON API over net/http.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the handlers delegate to.
type Services struct {
	Accounts   *services.AccountService
	Categories *services.CategoryService
	Ledger     *services.LedgerService
	Budgets    *services.BudgetService
	Reports    *services.ReportService
	Dashboard  *services.DashboardService
	Store      Pinger
}

type Server struct {
	http.Server
	svc     Services
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	ip      *security.IPExtractor
	started time.Time
	now     func() time.Time

	// credentials skips bcrypt for recently verified logins.
	credentials *cache.CredentialCache[core.User]
	janitor     *cache.Janitor

	shutdownOnce sync.Once
}

// Option adjusts a Server before its handler chain is built.
type Option func(*Server)

// WithTrustedProxies believes forwarded client addresses from the given CIDRs.
// Invalid entries are logged and skipped.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) {
		for _, cidr := range cidrs {
			if err := s.ip.AddTrustedProxy(cidr); err != nil {
				s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
			}
		}
	}
}

// NewServer configures routes and the middleware chain, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, logger *log.Logger, opts ...Option) *Server {
	logger = logger.WithComponent(log.ComponentHTTP)
	ip := security.NewIPExtractor()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:     svc,
		logger:  logger,
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:  trace.NewMiddleware(ip.ExtractClientIP),
		ip:      ip,
		started: time.Now(),
		now:     time.Now,

		credentials: cache.NewCredentialCache[core.User](1024, 5*time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.janitor = cache.NewJanitor(s.credentials)
	s.janitor.Start(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /api/register", s.handleRegister)

	mux.HandleFunc("GET /api/profile", s.authenticated(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.authenticated(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/categories", s.authenticated(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.authenticated(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.authenticated(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authenticated(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transactions", s.authenticated(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.authenticated(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.authenticated(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.authenticated(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.authenticated(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.authenticated(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.authenticated(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/{id}", s.authenticated(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.authenticated(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.authenticated(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/{id}/status", s.authenticated(s.handleBudgetStatus))

	mux.HandleFunc("GET /api/reports/monthly", s.authenticated(s.handleMonthlyReport))
	mux.HandleFunc("GET /api/reports/yearly", s.authenticated(s.handleYearlyReport))
	mux.HandleFunc("GET /api/dashboard", s.authenticated(s.handleDashboard))

	var h http.Handler = mux
	h = s.limiter.Middleware(ip.ExtractClientIP, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)
	s.Handler = h

	return s
}

// Shutdown stops background work and then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.janitor.Stop()
	})
	return s.Server.Shutdown(ctx)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).Warn("Rate limit exceeded", log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests":  s.tracer.GetMetrics().TotalRequests,
	})
}

// handleReady verifies the store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if s.svc.Store == nil {
		checks["store"] = "not configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.svc.Store.Ping(ctx); err != nil {
		log.FromContext(ctx).Warn("Readiness check failed", log.FieldError, err)
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
