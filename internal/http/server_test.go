package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []notify.BudgetAlert
}

func (a *alertRecorder) NotifyBudgetAlert(_ context.Context, alert notify.BudgetAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *alertRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type api struct {
	srv    *Server
	svc    Services
	alerts *alertRecorder
}

// newAPI wires the real services over the memory store and registers ann.
func newAPI(t *testing.T) *api {
	t.Helper()
	logger := log.Discard()
	store := memory.New()
	alerts := &alertRecorder{}

	categories := services.NewCategoryService(store)
	ledger := services.NewLedgerService(store, logger)
	budgets := services.NewBudgetService(store, ledger, alerts, logger)
	ledger.WithBudgetChecker(budgets)
	reports := services.NewReportService(ledger, store, core.USD)

	svc := Services{
		Accounts:   services.NewAccountService(store, categories, core.USD).WithCost(bcrypt.MinCost),
		Categories: categories,
		Ledger:     ledger,
		Budgets:    budgets,
		Reports:    reports,
		Dashboard:  services.NewDashboardService(reports, budgets, ledger),
		Store:      store,
	}
	srv := NewServer(":0", svc, logger)
	srv.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	_, err := svc.Accounts.Register(context.Background(), services.RegisterInput{
		Username: "ann", Email: "ann@example.com", Password: "correct horse",
	})
	require.NoError(t, err)
	return &api{srv: srv, svc: svc, alerts: alerts}
}

// do sends a request as ann unless user is empty.
func (a *api) do(t *testing.T, user, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	switch user {
	case "":
	case "ann":
		req.SetBasicAuth("ann", "correct horse")
	default:
		req.SetBasicAuth(user, "password123")
	}
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (a *api) register(t *testing.T, username string) {
	t.Helper()
	rr := a.do(t, "", http.MethodPost, "/api/register", map[string]string{
		"username": username, "email": username + "@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func (a *api) category(t *testing.T, name string) core.Category {
	t.Helper()
	rr := a.do(t, "ann", http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body listBody[core.Category]
	decode(t, rr, &body)
	for _, c := range body.Items {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not seeded", name)
	return core.Category{}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	a := newAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := a.do(t, "", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	a.srv.svc.Store = failingPinger{}
	rr := a.do(t, "", http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database is locked")
}

func TestTrustedProxies(t *testing.T) {
	srv := NewServer(":0", Services{}, log.Discard(), WithTrustedProxies("203.0.113.0/24", "not-a-cidr"))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	tests := []struct {
		name   string
		remote string
		want   string
	}{
		{"configured proxy forwards", "203.0.113.9:443", "198.51.100.7"},
		{"private proxy forwards", "10.0.0.2:443", "198.51.100.7"},
		{"other peers are not believed", "192.0.2.1:443", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("X-Forwarded-For", "198.51.100.7")
			assert.Equal(t, tt.want, srv.ip.ExtractClientIP(req))
		})
	}
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name     string
		user     string
		password string
		want     int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong password", "ann", "wrong horse", http.StatusUnauthorized},
		{"unknown user", "nobody", "correct horse", http.StatusUnauthorized},
		{"valid", "ann", "correct horse", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.password)
			}
			rr := httptest.NewRecorder()
			a.srv.Handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
	assert.Equal(t, 1, a.srv.credentials.Size(), "only successful logins are cached")

	_, cached := a.srv.credentials.Get(a.srv.credentials.Key("ann", "correct horse"))
	assert.True(t, cached)
}

func TestRegisterEndpoint(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"username":"bob","email":"bob@example.com","password":"password123","currency":"eur"}`, http.StatusCreated},
		{"duplicate", `{"username":"ann","password":"password123"}`, http.StatusConflict},
		{"weak password", `{"username":"carol","password":"short"}`, http.StatusUnprocessableEntity},
		{"unknown currency", `{"username":"dave","password":"password123","currency":"ZZZ"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"username":`, http.StatusBadRequest},
		{"unknown field", `{"username":"erin","password":"password123","admin":true}`, http.StatusBadRequest},
		{"trailing data", `{"username":"fred","password":"password123"} {}`, http.StatusBadRequest},
		{"email with header", `{"username":"gina","email":"gina@example.com\r\nBcc: x@evil.test","password":"password123"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := a.do(t, "", http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotContains(t, rr.Body.String(), "$2a$", "hashes never leave the server")
		})
	}

	rr := a.do(t, "bob", http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Profile core.UserProfile `json:"profile"`
	}
	decode(t, rr, &body)
	assert.Equal(t, core.EUR, body.Profile.DefaultCurrency)
}

func TestUpdateProfile(t *testing.T) {
	a := newAPI(t)

	rr := a.do(t, "ann", http.MethodPut, "/api/profile", `{"budget_alert_threshold":90}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var p core.UserProfile
	decode(t, rr, &p)
	assert.Equal(t, 90, p.BudgetAlertThreshold)
	assert.Equal(t, core.USD, p.DefaultCurrency, "absent fields keep their value")
	assert.True(t, p.BudgetAlertEmail)

	rr = a.do(t, "ann", http.MethodPut, "/api/profile", `{"budget_alert_threshold":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = a.do(t, "ann", http.MethodPut, "/api/profile", `{"default_currency":"gbp","budget_alert_email":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &p)
	assert.Equal(t, core.GBP, p.DefaultCurrency)
	assert.False(t, p.BudgetAlertEmail)
	assert.Equal(t, 90, p.BudgetAlertThreshold)
}

func TestCategoryEndpoints(t *testing.T) {
	a := newAPI(t)

	rr := a.do(t, "ann", http.MethodGet, "/api/categories?kind=income", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list listBody[core.Category]
	decode(t, rr, &list)
	assert.Equal(t, 2, list.Count)

	rr = a.do(t, "ann", http.MethodGet, "/api/categories?kind=gift", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = a.do(t, "ann", http.MethodPost, "/api/categories", map[string]string{"name": "Books", "kind": "expense"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var books core.Category
	decode(t, rr, &books)

	rr = a.do(t, "ann", http.MethodPost, "/api/categories", map[string]string{"name": "Books", "kind": "expense"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = a.do(t, "ann", http.MethodPut, fmt.Sprintf("/api/categories/%d", books.ID),
		map[string]string{"name": "Novels", "kind": "expense", "color": "#abcdef"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Category
	decode(t, rr, &updated)
	assert.Equal(t, "Novels", updated.Name)

	rr = a.do(t, "ann", http.MethodDelete, "/api/categories/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, "ann", http.MethodDelete, fmt.Sprintf("/api/categories/%d", books.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	a := newAPI(t)
	food := a.category(t, "Food")

	rr := a.do(t, "ann", http.MethodPost, "/api/transactions", map[string]any{
		"category_id": food.ID, "amount": "12.50", "kind": "expense",
		"date": "2025-03-05", "description": "Lunch",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Transaction
	decode(t, rr, &created)
	assert.Equal(t, core.USD, created.Amount.Currency, "currency defaults to the profile's")
	assert.True(t, created.Amount.Amount.Equal(decimal.RequireFromString("12.5")))
	path := fmt.Sprintf("/api/transactions/%d", created.ID)

	rr = a.do(t, "ann", http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, "ann", http.MethodPut, path, map[string]any{
		"category_id": food.ID, "amount": 20, "kind": "expense",
		"date": "2025-03-06", "description": "Dinner",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Transaction
	decode(t, rr, &updated)
	assert.Equal(t, "Dinner", updated.Description)
	assert.Equal(t, "2025-03-06", updated.Date.String())

	rr = a.do(t, "ann", http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = a.do(t, "ann", http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTransactionValidation(t *testing.T) {
	a := newAPI(t)
	food := a.category(t, "Food")
	salary := a.category(t, "Salary")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"negative amount", map[string]any{"amount": "-1", "kind": "expense", "description": "x"}, http.StatusUnprocessableEntity},
		{"missing amount", map[string]any{"kind": "expense", "description": "x"}, http.StatusUnprocessableEntity},
		{"unknown kind", map[string]any{"amount": "1", "kind": "gift", "description": "x"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"amount": "1", "kind": "expense", "date": "05/03/2025", "description": "x"}, http.StatusUnprocessableEntity},
		{"bad currency", map[string]any{"amount": "1", "currency": "BTC", "kind": "expense", "description": "x"}, http.StatusUnprocessableEntity},
		{"empty description", map[string]any{"amount": "1", "kind": "expense"}, http.StatusUnprocessableEntity},
		{"category kind mismatch", map[string]any{"category_id": salary.ID, "amount": "1", "kind": "expense", "description": "x"}, http.StatusUnprocessableEntity},
		{"unknown category", map[string]any{"category_id": 9999, "amount": "1", "kind": "expense", "description": "x"}, http.StatusForbidden},
		{"amount not a number", map[string]any{"amount": "ten", "kind": "expense", "description": "x"}, http.StatusBadRequest},
		{"exponent amount", map[string]any{"amount": json.Number("1e30000000"), "kind": "expense", "description": "x"}, http.StatusUnprocessableEntity},
		{"amount too large", map[string]any{"amount": "10000000000000000000", "kind": "expense", "description": "x"}, http.StatusUnprocessableEntity},
		{"numeric amount and default date", map[string]any{"category_id": food.ID, "amount": 3.75, "kind": "expense", "description": "Coffee"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := a.do(t, "ann", http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestOwnerIsolation(t *testing.T) {
	a := newAPI(t)
	a.register(t, "bob")
	food := a.category(t, "Food")

	rr := a.do(t, "ann", http.MethodPost, "/api/transactions", map[string]any{
		"category_id": food.ID, "amount": "5", "kind": "expense", "date": "2025-03-01", "description": "Snack",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var tx core.Transaction
	decode(t, rr, &tx)

	rr = a.do(t, "bob", http.MethodGet, fmt.Sprintf("/api/transactions/%d", tx.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(t, "bob", http.MethodDelete, fmt.Sprintf("/api/transactions/%d", tx.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(t, "bob", http.MethodPost, "/api/transactions", map[string]any{
		"category_id": food.ID, "amount": "5", "kind": "expense", "description": "Borrowed category",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code, "another owner's category cannot be referenced")

	rr = a.do(t, "bob", http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list listBody[core.Transaction]
	decode(t, rr, &list)
	assert.Zero(t, list.Count)
}

func TestListTransactions(t *testing.T) {
	a := newAPI(t)
	food := a.category(t, "Food")
	salary := a.category(t, "Salary")

	for i, body := range []map[string]any{
		{"category_id": salary.ID, "amount": "1000", "kind": "income", "date": "2025-03-01", "description": "Pay"},
		{"category_id": food.ID, "amount": "30", "kind": "expense", "date": "2025-03-02", "description": "Groceries"},
		{"category_id": food.ID, "amount": "10", "kind": "expense", "is_refund": true, "date": "2025-03-03", "description": "Returned"},
		{"amount": "8", "kind": "expense", "date": "2025-02-10", "description": "Parking"},
	} {
		rr := a.do(t, "ann", http.MethodPost, "/api/transactions", body)
		require.Equal(t, http.StatusCreated, rr.Code, "row %d: %s", i, rr.Body.String())
	}

	tests := []struct {
		query string
		want  int
		count int
	}{
		{"", http.StatusOK, 4},
		{"?kind=expense", http.StatusOK, 3},
		{"?category=none", http.StatusOK, 1},
		{fmt.Sprintf("?category=%d", food.ID), http.StatusOK, 2},
		{"?refund=true", http.StatusOK, 1},
		{"?from=2025-03-01&to=2025-03-03", http.StatusOK, 2},
		{"?limit=2", http.StatusOK, 2},
		{"?currency=EUR", http.StatusOK, 0},
		{"?min_amount=10&max_amount=30", http.StatusOK, 2},
		{"?min_amount=ten", http.StatusBadRequest, 0},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?category=food", http.StatusBadRequest, 0},
		{"?refund=maybe", http.StatusBadRequest, 0},
		{"?from=yesterday", http.StatusUnprocessableEntity, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := a.do(t, "ann", http.MethodGet, "/api/transactions"+tt.query, nil)
			require.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.want != http.StatusOK {
				return
			}
			var list listBody[core.Transaction]
			decode(t, rr, &list)
			assert.Equal(t, tt.count, list.Count)
		})
	}

	rr := a.do(t, "ann", http.MethodGet, "/api/transactions", nil)
	var list listBody[core.Transaction]
	decode(t, rr, &list)
	assert.Equal(t, "2025-03-03", list.Items[0].Date.String(), "newest first")
}

func TestBudgetEndpoints(t *testing.T) {
	a := newAPI(t)
	food := a.category(t, "Food")

	rr := a.do(t, "ann", http.MethodPost, "/api/budgets", map[string]any{
		"category_id": food.ID, "limit": "100", "start_date": "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var b core.Budget
	decode(t, rr, &b)
	assert.Equal(t, core.Monthly, b.Period, "period defaults to month")
	path := fmt.Sprintf("/api/budgets/%d", b.ID)

	rr = a.do(t, "ann", http.MethodPost, "/api/transactions", map[string]any{
		"category_id": food.ID, "amount": "85", "kind": "expense", "date": "2025-03-10", "description": "Feast",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, a.alerts.count(), "crossing the threshold alerts once")

	rr = a.do(t, "ann", http.MethodGet, path+"/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var st core.BudgetStatus
	decode(t, rr, &st)
	assert.Equal(t, core.LevelWarning, st.Level)
	assert.True(t, st.Remaining.Amount.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "2025-03-01", st.PeriodStart.String())
	assert.Equal(t, 1, a.alerts.count(), "status reads do not resend")

	rr = a.do(t, "ann", http.MethodGet, "/api/budgets", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list listBody[core.BudgetStatus]
	decode(t, rr, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, b.ID, list.Items[0].Budget.ID)

	rr = a.do(t, "ann", http.MethodPut, path, map[string]any{
		"category_id": food.ID, "limit": "500", "period": "year", "start_date": "2025-01-01",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = a.do(t, "ann", http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &b)
	assert.Equal(t, core.Yearly, b.Period)

	for _, body := range []map[string]any{
		{"limit": "0"},
		{"limit": "100", "period": "week"},
		{"limit": "100", "currency": "XXX"},
	} {
		rr = a.do(t, "ann", http.MethodPost, "/api/budgets", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "%v: %s", body, rr.Body.String())
	}

	rr = a.do(t, "ann", http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = a.do(t, "ann", http.MethodGet, path+"/status", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReportEndpoints(t *testing.T) {
	a := newAPI(t)
	food := a.category(t, "Food")
	salary := a.category(t, "Salary")

	for _, body := range []map[string]any{
		{"category_id": salary.ID, "amount": "1000", "kind": "income", "date": "2025-03-01", "description": "Pay"},
		{"category_id": food.ID, "amount": "50", "kind": "expense", "date": "2025-03-02", "description": "Groceries"},
	} {
		require.Equal(t, http.StatusCreated, a.do(t, "ann", http.MethodPost, "/api/transactions", body).Code)
	}

	rr := a.do(t, "ann", http.MethodGet, "/api/reports/monthly", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var monthly struct {
		Report    core.MonthlyReport         `json:"report"`
		Breakdown map[string]decimal.Decimal `json:"expense_breakdown"`
	}
	decode(t, rr, &monthly)
	assert.Equal(t, 3, monthly.Report.Month, "defaults to the current month")
	assert.True(t, monthly.Report.Net.Amount.Equal(decimal.NewFromInt(950)))
	assert.True(t, monthly.Breakdown["Food"].Equal(decimal.NewFromInt(50)))

	rr = a.do(t, "ann", http.MethodGet, "/api/reports/yearly?year=2025", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var yearly core.YearlyReport
	decode(t, rr, &yearly)
	assert.Len(t, yearly.Months, 12)

	for query, want := range map[string]int{
		"/api/reports/monthly?month=13":     http.StatusUnprocessableEntity,
		"/api/reports/monthly?year=abc":     http.StatusBadRequest,
		"/api/reports/monthly?currency=ABC": http.StatusUnprocessableEntity,
		"/api/reports/yearly?year=x":        http.StatusBadRequest,
	} {
		assert.Equal(t, want, a.do(t, "ann", http.MethodGet, query, nil).Code, query)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	a := newAPI(t)

	rr := a.do(t, "ann", http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var snap core.DashboardSnapshot
	decode(t, rr, &snap)
	assert.Equal(t, core.USD, snap.Currency)
	assert.Len(t, snap.Trailing, 6)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Cache-Control"), "no-store"))
}

func TestRoutingRejectsWrongMethod(t *testing.T) {
	a := newAPI(t)
	rr := a.do(t, "ann", http.MethodPatch, "/api/profile", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
