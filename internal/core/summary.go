package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel names the bucket for transactions whose category was deleted.
const UncategorizedLabel = "Uncategorized"

// AlertLevel is the evaluated state of a budget.
type AlertLevel string

const (
	LevelUnder    AlertLevel = "under"
	LevelWarning  AlertLevel = "warning"
	LevelExceeded AlertLevel = "exceeded"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID *int64 `json:"category_id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Amount     Money  `json:"amount"`
}

// MonthlyReport is the income/expense rollup for one calendar month.
type MonthlyReport struct {
	Year              int              `json:"year"`
	Month             int              `json:"month"`
	Currency          Currency         `json:"currency"`
	Income            Money            `json:"income"`
	Expense           Money            `json:"expense"`
	Net               Money            `json:"net"`
	SavingsRate       decimal.Decimal  `json:"savings_rate"`
	IncomeByCategory  []CategoryAmount `json:"income_by_category"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
	// Excluded counts transactions in other currencies, which are never summed.
	Excluded int `json:"excluded"`
}

// ExpenseBreakdown returns the expense subtotals keyed by category label.
func (r MonthlyReport) ExpenseBreakdown() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.ExpenseByCategory))
	for _, c := range r.ExpenseByCategory {
		out[c.Name] = c.Amount.Amount
	}
	return out
}

// MonthTotals is one row of a yearly report or a trailing chart series.
type MonthTotals struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Label   string `json:"label"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Net     Money  `json:"net"`
}

// YearlyReport holds twelve zero-filled months and their exact sum.
type YearlyReport struct {
	Year     int           `json:"year"`
	Currency Currency      `json:"currency"`
	Months   []MonthTotals `json:"months"`
	Income   Money         `json:"income"`
	Expense  Money         `json:"expense"`
	Net      Money         `json:"net"`
	Excluded int           `json:"excluded"`
}

// BudgetStatus is a budget evaluated against the ledger for one period.
type BudgetStatus struct {
	Budget       Budget          `json:"budget"`
	PeriodStart  Date            `json:"period_start"`
	PeriodEnd    Date            `json:"period_end"`
	Spent        Money           `json:"spent"`
	Remaining    Money           `json:"remaining"`
	Usage        decimal.Decimal `json:"usage"`
	UsagePercent decimal.Decimal `json:"usage_percent"`
	Level        AlertLevel      `json:"level"`
}

// PieSeries is a labelled series ready for a pie chart.
type PieSeries struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
	Colors []string          `json:"colors,omitempty"`
}

// DashboardSnapshot is the current-period view of one owner's finances.
type DashboardSnapshot struct {
	GeneratedAt        time.Time      `json:"generated_at"`
	Currency           Currency       `json:"currency"`
	Month              MonthlyReport  `json:"month"`
	IncomeVsExpense    PieSeries      `json:"income_vs_expense"`
	ExpenseByCategory  PieSeries      `json:"expense_by_category"`
	Trailing           []MonthTotals  `json:"trailing"`
	Budgets            []BudgetStatus `json:"budgets"`
	RecentTransactions []Transaction  `json:"recent_transactions"`
	NetWorth           Money          `json:"net_worth"`
	TransactionCount   int            `json:"transaction_count"`
}
