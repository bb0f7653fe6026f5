package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/storage/memory"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recordingNotifier collects alerts; safe for concurrent use.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.BudgetAlert
	err    error
}

func (n *recordingNotifier) NotifyBudgetAlert(_ context.Context, a notify.BudgetAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	notifier   *recordingNotifier
	ledger     *LedgerService
	categories *CategoryService
	accounts   *AccountService
	budgets    *BudgetService
	reports    *ReportService
	dashboard  *DashboardService
	owner      core.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.Discard()
	store := memory.New()
	n := &recordingNotifier{}

	f := &fixture{ctx: context.Background(), store: store, notifier: n}
	f.ledger = NewLedgerService(store, logger)
	f.categories = NewCategoryService(store)
	f.accounts = NewAccountService(store, f.categories, core.USD).WithCost(bcrypt.MinCost)
	f.budgets = NewBudgetService(store, f.ledger, n, logger)
	f.reports = NewReportService(f.ledger, store, core.USD)
	f.dashboard = NewDashboardService(f.reports, f.budgets, f.ledger)

	owner, err := f.accounts.Register(f.ctx, RegisterInput{
		Username: "ann", Email: "ann@example.com", FirstName: "Ann", Password: "correct horse",
	})
	require.NoError(t, err)
	f.owner = owner
	return f
}

func (f *fixture) register(t *testing.T, username string) core.User {
	t.Helper()
	u, err := f.accounts.Register(f.ctx, RegisterInput{Username: username, Email: username + "@example.com", Password: "password123"})
	require.NoError(t, err)
	return u
}

// seeded returns one of the owner's default categories by name.
func (f *fixture) seeded(t *testing.T, name string) core.Category {
	t.Helper()
	all, err := f.categories.List(f.ctx, f.owner.ID, "")
	require.NoError(t, err)
	for _, c := range all {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not seeded", name)
	return core.Category{}
}

func (f *fixture) enableAlerts(t *testing.T, threshold int) {
	t.Helper()
	_, err := f.accounts.UpdateProfile(f.ctx, f.owner.ID, ProfileInput{
		DefaultCurrency:      core.USD,
		BudgetAlertEmail:     true,
		BudgetAlertThreshold: threshold,
	})
	require.NoError(t, err)
}

func (f *fixture) add(t *testing.T, cat *core.Category, amount string, kind core.Kind, refund bool, date core.Date) core.Transaction {
	t.Helper()
	in := TransactionInput{
		Amount:      core.MustMoney(amount, core.USD),
		Kind:        kind,
		IsRefund:    refund,
		Date:        date,
		Description: "entry",
	}
	if cat != nil {
		in.CategoryID = &cat.ID
	}
	tx, err := f.ledger.Create(f.ctx, f.owner.ID, in)
	require.NoError(t, err)
	return tx
}

func march(day int) core.Date { return core.NewDate(2025, 3, day) }

var midMarch = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
