package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// ReportService is a read-only aggregator over the ledger. Every call
// recomputes from storage.
type ReportService struct {
	ledger          *LedgerService
	users           ports.UserStore
	defaultCurrency core.Currency
}

func NewReportService(ledger *LedgerService, users ports.UserStore, defaultCurrency core.Currency) *ReportService {
	return &ReportService{ledger: ledger, users: users, defaultCurrency: defaultCurrency}
}

// Currency resolves the reporting currency: c when set, else the owner's default.
func (s *ReportService) Currency(ctx context.Context, owner int64, c core.Currency) (core.Currency, error) {
	if c != "" {
		return c, c.Validate()
	}
	p, err := profileOrDefault(ctx, s.users, owner, s.defaultCurrency)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	return p.DefaultCurrency, nil
}

// Monthly returns income, expense, net and per-category breakdowns for one month.
func (s *ReportService) Monthly(ctx context.Context, owner int64, year, month int, currency core.Currency) (core.MonthlyReport, error) {
	if month < 1 || month > 12 || year < 1 {
		return core.MonthlyReport{}, core.ErrInvalidDate
	}
	currency, err := s.Currency(ctx, owner, currency)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	from := core.NewDate(year, month, 1)
	to := core.DateOf(from.AddDate(0, 1, 0))
	txs, err := s.ledger.Collect(ctx, owner, Filter{From: &from, To: &to})
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("monthly report: %w", err)
	}

	agg := aggregate(currency, txs)
	return core.MonthlyReport{
		Year:              year,
		Month:             month,
		Currency:          currency,
		Income:            agg.income,
		Expense:           agg.expense,
		Net:               agg.net,
		SavingsRate:       savingsRate(agg.income, agg.net),
		IncomeByCategory:  agg.incomeBy,
		ExpenseByCategory: agg.expenseBy,
		Excluded:          agg.excluded,
	}, nil
}

// Yearly returns twelve zero-filled months and their exact sum.
func (s *ReportService) Yearly(ctx context.Context, owner int64, year int, currency core.Currency) (core.YearlyReport, error) {
	if year < 1 {
		return core.YearlyReport{}, core.ErrInvalidDate
	}
	currency, err := s.Currency(ctx, owner, currency)
	if err != nil {
		return core.YearlyReport{}, err
	}

	months, excluded, err := s.monthRange(ctx, owner, currency, core.NewDate(year, 1, 1), 12)
	if err != nil {
		return core.YearlyReport{}, fmt.Errorf("yearly report: %w", err)
	}

	var income, expense, net decimal.Decimal
	for _, m := range months {
		income = income.Add(m.Income.Amount)
		expense = expense.Add(m.Expense.Amount)
		net = net.Add(m.Net.Amount)
	}
	return core.YearlyReport{
		Year:     year,
		Currency: currency,
		Months:   months,
		Income:   core.NewMoney(income, currency),
		Expense:  core.NewMoney(expense, currency),
		Net:      core.NewMoney(net, currency),
		Excluded: excluded,
	}, nil
}

// Trailing returns n months ending with the month containing at, oldest first.
func (s *ReportService) Trailing(ctx context.Context, owner int64, at time.Time, n int, currency core.Currency) ([]core.MonthTotals, error) {
	if n < 1 {
		return nil, nil
	}
	currency, err := s.Currency(ctx, owner, currency)
	if err != nil {
		return nil, err
	}
	first := core.NewDate(at.Year(), int(at.Month()), 1)
	first = core.DateOf(first.AddDate(0, -(n - 1), 0))
	months, _, err := s.monthRange(ctx, owner, currency, first, n)
	return months, err
}

// NetWorth sums the signed amount of every transaction in currency.
func (s *ReportService) NetWorth(ctx context.Context, owner int64, currency core.Currency) (core.Money, error) {
	total := core.Zero(currency)
	for t, err := range s.ledger.List(ctx, owner, Filter{Currency: currency}) {
		if err != nil {
			return core.Money{}, err
		}
		if total, err = total.Add(t.SignedAmount()); err != nil {
			return core.Money{}, err
		}
	}
	return total, nil
}

// monthRange reads [first, first+n months) once and buckets it per month.
func (s *ReportService) monthRange(ctx context.Context, owner int64, currency core.Currency, first core.Date, n int) ([]core.MonthTotals, int, error) {
	to := core.DateOf(first.AddDate(0, n, 0))
	txs, err := s.ledger.Collect(ctx, owner, Filter{From: &first, To: &to})
	if err != nil {
		return nil, 0, err
	}

	buckets := make([][]core.Transaction, n)
	for _, t := range txs {
		i := (t.Date.Year()-first.Year())*12 + t.Date.Month() - first.Month()
		if i >= 0 && i < n {
			buckets[i] = append(buckets[i], t)
		}
	}

	months := make([]core.MonthTotals, n)
	excluded := 0
	for i := range buckets {
		start := first.AddDate(0, i, 0)
		agg := aggregate(currency, buckets[i])
		months[i] = core.MonthTotals{
			Year:    start.Year(),
			Month:   int(start.Month()),
			Label:   start.Format("Jan 2006"),
			Income:  agg.income,
			Expense: agg.expense,
			Net:     agg.net,
		}
		excluded += agg.excluded
	}
	return months, excluded, nil
}

type aggregation struct {
	income, expense     core.Money
	net                 core.Money
	incomeBy, expenseBy []core.CategoryAmount
	excluded            int
}

type bucket struct {
	id     *int64
	name   string
	color  string
	signed decimal.Decimal
}

// aggregate sums signed amounts per (kind, category). Refunds only offset
// their own category and a subtotal never goes below zero, so a refund larger
// than the month's spending in that category reports zero spending.
// Rows in other currencies are counted, never summed, so all totals are in currency.
func aggregate(currency core.Currency, txs []core.Transaction) aggregation {
	var agg aggregation
	income := map[int64]*bucket{}
	expense := map[int64]*bucket{}

	for _, t := range txs {
		if t.Amount.Currency != currency {
			agg.excluded++
			continue
		}
		buckets := expense
		if t.Kind == core.Income {
			buckets = income
		}
		var key int64
		if t.CategoryID != nil {
			key = *t.CategoryID
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{id: t.CategoryID, name: t.CategoryName, color: t.CategoryColor}
			if t.CategoryID == nil || b.name == "" {
				b.name = core.UncategorizedLabel
			}
			buckets[key] = b
		}
		b.signed = b.signed.Add(t.SignedAmount().Amount)
	}

	agg.incomeBy = subtotals(currency, income, false)
	agg.expenseBy = subtotals(currency, expense, true)
	var in, out decimal.Decimal
	for _, c := range agg.incomeBy {
		in = in.Add(c.Amount.Amount)
	}
	for _, c := range agg.expenseBy {
		out = out.Add(c.Amount.Amount)
	}
	agg.income = core.NewMoney(in, currency)
	agg.expense = core.NewMoney(out, currency)
	agg.net = core.NewMoney(in.Sub(out), currency)
	return agg
}

func subtotals(currency core.Currency, buckets map[int64]*bucket, outflow bool) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(buckets))
	for _, b := range buckets {
		amount := b.signed
		if outflow {
			amount = amount.Neg()
		}
		if !amount.IsPositive() {
			continue
		}
		out = append(out, core.CategoryAmount{
			CategoryID: b.id,
			Name:       b.name,
			Color:      b.color,
			Amount:     core.NewMoney(amount, currency),
		})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		return cmp.Or(b.Amount.Amount.Cmp(a.Amount.Amount), strings.Compare(a.Name, b.Name))
	})
	return out
}

func savingsRate(income, net core.Money) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	p, err := net.Percent(income)
	if err != nil {
		return decimal.Zero
	}
	return p
}
