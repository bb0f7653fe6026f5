package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUserWithProfile inserts the user and its profile in one transaction.
func (r *SQLiteRepository) CreateUserWithProfile(ctx context.Context, u core.User, p core.UserProfile) (core.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := r.now()
	row, err := qtx.CreateUser(ctx, CreateUserParams{
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    now,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapErr(err))
	}

	if err := qtx.UpsertProfile(ctx, UpsertProfileParams{
		UserID:               row.ID,
		DefaultCurrency:      string(p.DefaultCurrency),
		BudgetAlertEmail:     p.BudgetAlertEmail,
		BudgetAlertThreshold: int64(p.BudgetAlertThreshold),
		UpdatedAt:            now,
	}); err != nil {
		return core.User{}, fmt.Errorf("create profile: %w", mapErr(err))
	}

	if err := tx.Commit(); err != nil {
		return core.User{}, fmt.Errorf("commit user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", log.FieldComponent, log.ComponentStorage, log.FieldOwnerID, row.ID, "username", row.Username)
	return toCoreUser(row), nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, mapErr(err))
	}
	return toCoreUser(row), nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", mapErr(err))
	}
	return toCoreUser(row), nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID int64) (core.UserProfile, error) {
	row, err := r.queries.GetProfile(ctx, userID)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile %d: %w", userID, mapErr(err))
	}
	return core.UserProfile{
		UserID:               row.UserID,
		DefaultCurrency:      core.Currency(row.DefaultCurrency),
		BudgetAlertEmail:     row.BudgetAlertEmail,
		BudgetAlertThreshold: int(row.BudgetAlertThreshold),
	}, nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, p core.UserProfile) error {
	if _, err := r.queries.GetUser(ctx, p.UserID); err != nil {
		return fmt.Errorf("update profile %d: %w", p.UserID, mapErr(err))
	}
	err := r.queries.UpsertProfile(ctx, UpsertProfileParams{
		UserID:               p.UserID,
		DefaultCurrency:      string(p.DefaultCurrency),
		BudgetAlertEmail:     p.BudgetAlertEmail,
		BudgetAlertThreshold: int64(p.BudgetAlertThreshold),
		UpdatedAt:            r.now(),
	})
	if err != nil {
		return fmt.Errorf("update profile %d: %w", p.UserID, mapErr(err))
	}
	return nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Kind:      string(c.Kind),
		Icon:      c.Icon,
		Color:     c.Color,
		CreatedAt: r.now(),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapErr(err))
	}

	slog.InfoContext(ctx, "Category saved", log.FieldComponent, log.ComponentStorage, log.FieldCategoryID, row.ID, log.FieldOwnerID, row.OwnerID, "name", row.Name)
	return toCoreCategory(row), nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id, ownerID int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id, ownerID)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, mapErr(err))
	}
	return toCoreCategory(row), nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.UpdateCategory(ctx, UpdateCategoryParams{
		Name:    c.Name,
		Kind:    string(c.Kind),
		Icon:    c.Icon,
		Color:   c.Color,
		ID:      c.ID,
		OwnerID: c.OwnerID,
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, mapErr(err))
	}
	return toCoreCategory(row), nil
}

// DeleteCategory relies on ON DELETE SET NULL to uncategorize transactions and budgets.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, ownerID int64) error {
	n, err := r.queries.DeleteCategory(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, mapErr(err))
	}
	if n == 0 {
		return fmt.Errorf("delete category %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Category deleted", log.FieldComponent, log.ComponentStorage, log.FieldCategoryID, id, log.FieldOwnerID, ownerID)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID int64, kind core.Kind) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, ownerID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = toCoreCategory(row)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.now()
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		OwnerID:     t.OwnerID,
		CategoryID:  nullInt64(t.CategoryID),
		Kind:        string(t.Kind),
		Amount:      t.Amount.Amount.String(),
		Currency:    string(t.Amount.Currency),
		IsRefund:    t.IsRefund,
		Date:        t.Date.String(),
		Description: t.Description,
		Notes:       t.Notes,
		Receipt:     t.Receipt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", mapErr(err))
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldTransactionID, id,
		log.FieldOwnerID, t.OwnerID,
		log.FieldKind, t.Kind,
		log.FieldAmount, t.Amount.String(),
		"date", t.Date.String())

	return r.GetTransaction(ctx, id, t.OwnerID)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, ownerID int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, ownerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, mapErr(err))
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		CategoryID:  nullInt64(t.CategoryID),
		Kind:        string(t.Kind),
		Amount:      t.Amount.Amount.String(),
		Currency:    string(t.Amount.Currency),
		IsRefund:    t.IsRefund,
		Date:        t.Date.String(),
		Description: t.Description,
		Notes:       t.Notes,
		Receipt:     t.Receipt,
		UpdatedAt:   r.now(),
		ID:          t.ID,
		OwnerID:     t.OwnerID,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, mapErr(err))
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return r.GetTransaction(ctx, t.ID, t.OwnerID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, ownerID int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, mapErr(err))
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted", log.FieldComponent, log.ComponentStorage, log.FieldTransactionID, id, log.FieldOwnerID, ownerID)
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID int64, q ports.TransactionQuery) ([]core.Transaction, error) {
	arg := ListTransactionsParams{
		OwnerID:       ownerID,
		CategoryID:    nullInt64(q.CategoryID),
		Uncategorized: q.Uncategorized,
		Kind:          string(q.Kind),
		Currency:      string(q.Currency),
		Limit:         -1,
	}
	if q.IsRefund != nil {
		arg.IsRefund = sql.NullBool{Bool: *q.IsRefund, Valid: true}
	}
	if q.From != nil {
		arg.FromDate = q.From.String()
	}
	if q.To != nil {
		arg.ToDate = q.To.String()
	}
	if q.After != nil {
		arg.AfterDate = q.After.Date.String()
		arg.AfterID = q.After.ID
	}
	if q.Limit > 0 {
		arg.Limit = int64(q.Limit)
	}
	if q.MinAmount != nil {
		arg.MinAmount = q.MinAmount.String()
	}
	if q.MaxAmount != nil {
		arg.MaxAmount = q.MaxAmount.String()
	}

	rows, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, ownerID int64) (int, error) {
	n, err := r.queries.CountTransactions(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	id, err := r.queries.CreateBudget(ctx, CreateBudgetParams{
		OwnerID:     b.OwnerID,
		CategoryID:  nullInt64(b.CategoryID),
		Name:        b.Name,
		LimitAmount: b.Limit.Amount.String(),
		Currency:    string(b.Limit.Currency),
		Period:      string(b.Period),
		StartDate:   b.StartDate.String(),
		Notes:       b.Notes,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", mapErr(err))
	}

	slog.InfoContext(ctx, "Budget saved", log.FieldComponent, log.ComponentStorage, log.FieldBudgetID, id, log.FieldOwnerID, b.OwnerID, "limit", b.Limit.String())
	return r.GetBudget(ctx, id, b.OwnerID)
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id, ownerID int64) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, id, ownerID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, mapErr(err))
	}
	return toCoreBudget(row)
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	n, err := r.queries.UpdateBudget(ctx, UpdateBudgetParams{
		CategoryID:  nullInt64(b.CategoryID),
		Name:        b.Name,
		LimitAmount: b.Limit.Amount.String(),
		Currency:    string(b.Limit.Currency),
		Period:      string(b.Period),
		StartDate:   b.StartDate.String(),
		Notes:       b.Notes,
		ID:          b.ID,
		OwnerID:     b.OwnerID,
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", b.ID, mapErr(err))
	}
	if n == 0 {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", b.ID, core.ErrNotFound)
	}
	return r.GetBudget(ctx, b.ID, b.OwnerID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id, ownerID int64) error {
	n, err := r.queries.DeleteBudget(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, mapErr(err))
	}
	if n == 0 {
		return fmt.Errorf("delete budget %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID int64) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := toCoreBudget(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// MarkAlertSent inserts the marker row; the primary key makes concurrent
// callers race on the insert and exactly one sees a created row.
func (r *SQLiteRepository) MarkAlertSent(ctx context.Context, m ports.AlertMarker) (bool, error) {
	sentAt := m.SentAt
	if sentAt.IsZero() {
		sentAt = r.now()
	}
	n, err := r.queries.InsertBudgetAlert(ctx, InsertBudgetAlertParams{
		OwnerID:      m.OwnerID,
		BudgetID:     m.BudgetID,
		PeriodStart:  m.PeriodStart.String(),
		Level:        string(m.Level),
		UsagePercent: m.UsagePercent.String(),
		SentAt:       sentAt,
	})
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", mapErr(err))
	}
	return n == 1, nil
}

func toCoreUser(row User) core.User {
	return core.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		FirstName:    row.FirstName,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}
}

func toCoreCategory(row Category) core.Category {
	return core.Category{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Kind:      core.Kind(row.Kind),
		Icon:      row.Icon,
		Color:     row.Color,
		CreatedAt: row.CreatedAt,
	}
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", row.ID, row.Amount, err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date %q: %w", row.ID, row.Date, err)
	}
	return core.Transaction{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		CategoryID:    int64Ptr(row.CategoryID),
		CategoryName:  row.CategoryName.String,
		CategoryColor: row.CategoryColor.String,
		Amount:        core.NewMoney(amount, core.Currency(row.Currency)),
		Kind:          core.Kind(row.Kind),
		IsRefund:      row.IsRefund,
		Date:          date,
		Description:   row.Description,
		Notes:         row.Notes,
		Receipt:       row.Receipt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func toCoreBudget(row Budget) (core.Budget, error) {
	limit, err := decimal.NewFromString(row.LimitAmount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d limit %q: %w", row.ID, row.LimitAmount, err)
	}
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d start %q: %w", row.ID, row.StartDate, err)
	}
	return core.Budget{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		CategoryID:   int64Ptr(row.CategoryID),
		CategoryName: row.CategoryName.String,
		Name:         row.Name,
		Limit:        core.NewMoney(limit, core.Currency(row.Currency)),
		Period:       core.Period(row.Period),
		StartDate:    start,
		Notes:        row.Notes,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// mapErr translates driver errors into core sentinels where one applies.
func mapErr(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", core.ErrDuplicate, err)
	default:
		return err
	}
}
