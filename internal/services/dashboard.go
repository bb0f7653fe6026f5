package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	trailingMonths     = 6
	recentTransactions = 8
)

// DashboardService shapes reports and budget statuses for charting.
type DashboardService struct {
	reports *ReportService
	budgets *BudgetService
	ledger  *LedgerService
}

func NewDashboardService(reports *ReportService, budgets *BudgetService, ledger *LedgerService) *DashboardService {
	return &DashboardService{reports: reports, budgets: budgets, ledger: ledger}
}

// Snapshot assembles the current-month view. The independent reads run
// concurrently; the first failure cancels the rest.
func (s *DashboardService) Snapshot(ctx context.Context, owner int64, at time.Time) (core.DashboardSnapshot, error) {
	currency, err := s.reports.Currency(ctx, owner, "")
	if err != nil {
		return core.DashboardSnapshot{}, err
	}

	snap := core.DashboardSnapshot{GeneratedAt: at, Currency: currency}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := s.reports.Monthly(gctx, owner, at.Year(), int(at.Month()), currency)
		if err != nil {
			return fmt.Errorf("month: %w", err)
		}
		snap.Month = m
		return nil
	})
	g.Go(func() error {
		t, err := s.reports.Trailing(gctx, owner, at, trailingMonths, currency)
		if err != nil {
			return fmt.Errorf("trailing: %w", err)
		}
		snap.Trailing = t
		return nil
	})
	g.Go(func() error {
		b, err := s.budgets.EvaluateAll(gctx, owner, at)
		if err != nil {
			return fmt.Errorf("budgets: %w", err)
		}
		snap.Budgets = b
		return nil
	})
	g.Go(func() error {
		r, err := s.ledger.Recent(gctx, owner, recentTransactions)
		if err != nil {
			return fmt.Errorf("recent: %w", err)
		}
		snap.RecentTransactions = r
		return nil
	})
	g.Go(func() error {
		n, err := s.reports.NetWorth(gctx, owner, currency)
		if err != nil {
			return fmt.Errorf("net worth: %w", err)
		}
		snap.NetWorth = n
		return nil
	})
	g.Go(func() error {
		c, err := s.ledger.Count(gctx, owner)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		snap.TransactionCount = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.DashboardSnapshot{}, fmt.Errorf("dashboard snapshot: %w", err)
	}

	snap.IncomeVsExpense = core.PieSeries{
		Labels: []string{"Income", "Expense"},
		Values: []decimal.Decimal{snap.Month.Income.Amount, snap.Month.Expense.Amount},
	}
	snap.ExpenseByCategory = pie(snap.Month.ExpenseByCategory)
	return snap, nil
}

func pie(items []core.CategoryAmount) core.PieSeries {
	p := core.PieSeries{
		Labels: make([]string, 0, len(items)),
		Values: make([]decimal.Decimal, 0, len(items)),
		Colors: make([]string, 0, len(items)),
	}
	for _, c := range items {
		p.Labels = append(p.Labels, c.Name)
		p.Values = append(p.Values, c.Amount.Amount)
		color := c.Color
		if color == "" {
			color = defaultColor
		}
		p.Colors = append(p.Colors, color)
	}
	return p
}
