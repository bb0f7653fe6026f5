// Package ports declares the storage contracts the services depend on.
// Every implementation must filter by owner and apply the referential policy
// "deleting a category nulls every reference to it".
package ports

import (
	"context"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for outbound adapters.
type (
	UserStore interface {
		// CreateUserWithProfile inserts the user and its profile atomically.
		CreateUserWithProfile(ctx context.Context, u core.User, p core.UserProfile) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		GetProfile(ctx context.Context, userID int64) (core.UserProfile, error)
		UpdateProfile(ctx context.Context, p core.UserProfile) error
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		GetCategory(ctx context.Context, id, ownerID int64) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory removes the category and sets every transaction and
		// budget pointing at it to uncategorized.
		DeleteCategory(ctx context.Context, id, ownerID int64) error
		// ListCategories returns the owner's categories; an empty kind means all.
		ListCategories(ctx context.Context, ownerID int64, kind core.Kind) ([]core.Category, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id, ownerID int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id, ownerID int64) error
		// ListTransactions returns one page ordered by date desc, id desc.
		ListTransactions(ctx context.Context, ownerID int64, q TransactionQuery) ([]core.Transaction, error)
		CountTransactions(ctx context.Context, ownerID int64) (int, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id, ownerID int64) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id, ownerID int64) error
		ListBudgets(ctx context.Context, ownerID int64) ([]core.Budget, error)
	}

	AlertStore interface {
		// MarkAlertSent records that an alert went out for the marker key.
		// It returns true only for the single caller whose write created the row.
		MarkAlertSent(ctx context.Context, m AlertMarker) (bool, error)
	}

	// Store is the full persistence surface used by the services.
	Store interface {
		UserStore
		CategoryStore
		TransactionStore
		BudgetStore
		AlertStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// TransactionQuery selects transactions; zero fields do not filter.
type TransactionQuery struct {
	CategoryID    *int64
	Uncategorized bool
	Kind          core.Kind
	IsRefund      *bool
	Currency      core.Currency
	// From is inclusive, To is exclusive.
	From *core.Date
	To   *core.Date
	// MinAmount and MaxAmount bound the stored magnitude, both inclusive.
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	// After continues a listing strictly after the given position.
	After *Cursor
	Limit int
}

// Cursor is a keyset position in date desc, id desc order.
type Cursor struct {
	Date core.Date
	ID   int64
}

// Matches applies the query filters to a single transaction. In-memory
// implementations use it; SQL implementations translate the same rules.
func (q TransactionQuery) Matches(t core.Transaction) bool {
	if q.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *q.CategoryID) {
		return false
	}
	if q.Uncategorized && t.CategoryID != nil {
		return false
	}
	if q.Kind != "" && t.Kind != q.Kind {
		return false
	}
	if q.IsRefund != nil && t.IsRefund != *q.IsRefund {
		return false
	}
	if q.Currency != "" && t.Amount.Currency != q.Currency {
		return false
	}
	if q.From != nil && t.Date.Before(q.From.Time) {
		return false
	}
	if q.To != nil && !t.Date.Before(q.To.Time) {
		return false
	}
	if q.MinAmount != nil && t.Amount.Amount.LessThan(*q.MinAmount) {
		return false
	}
	if q.MaxAmount != nil && t.Amount.Amount.GreaterThan(*q.MaxAmount) {
		return false
	}
	if q.After != nil {
		if t.Date.After(q.After.Date.Time) {
			return false
		}
		if t.Date.Equal(q.After.Date.Time) && t.ID >= q.After.ID {
			return false
		}
	}
	return true
}

// AlertMarker is the deduplication key (owner, budget, period, level) for alert emails.
type AlertMarker struct {
	OwnerID      int64
	BudgetID     int64
	PeriodStart  core.Date
	Level        core.AlertLevel
	UsagePercent decimal.Decimal
	SentAt       time.Time
}
