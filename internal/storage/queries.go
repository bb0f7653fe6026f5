package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// Row models.

type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	PasswordHash string
	CreatedAt    time.Time
}

type UserProfile struct {
	UserID               int64
	DefaultCurrency      string
	BudgetAlertEmail     bool
	BudgetAlertThreshold int64
	UpdatedAt            time.Time
}

type Category struct {
	ID        int64
	OwnerID   int64
	Name      string
	Kind      string
	Icon      string
	Color     string
	CreatedAt time.Time
}

type Transaction struct {
	ID            int64
	OwnerID       int64
	CategoryID    sql.NullInt64
	Kind          string
	Amount        string
	Currency      string
	IsRefund      bool
	Date          string
	Description   string
	Notes         string
	Receipt       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CategoryName  sql.NullString
	CategoryColor sql.NullString
}

type Budget struct {
	ID           int64
	OwnerID      int64
	CategoryID   sql.NullInt64
	Name         string
	LimitAmount  string
	Currency     string
	Period       string
	StartDate    string
	Notes        string
	CreatedAt    time.Time
	CategoryName sql.NullString
}

// users

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, first_name, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, username, email, first_name, password_hash, created_at
`

type CreateUserParams struct {
	Username     string
	Email        string
	FirstName    string
	PasswordHash string
	CreatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Email,
		arg.FirstName,
		arg.PasswordHash,
		arg.CreatedAt,
	)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.FirstName, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, username, email, first_name, password_hash, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.FirstName, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, email, first_name, password_hash, created_at FROM users WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.FirstName, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

// profiles

const upsertProfile = `-- name: UpsertProfile :exec
INSERT INTO user_profiles (user_id, default_currency, budget_alert_email, budget_alert_threshold, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    default_currency = excluded.default_currency,
    budget_alert_email = excluded.budget_alert_email,
    budget_alert_threshold = excluded.budget_alert_threshold,
    updated_at = excluded.updated_at
`

type UpsertProfileParams struct {
	UserID               int64
	DefaultCurrency      string
	BudgetAlertEmail     bool
	BudgetAlertThreshold int64
	UpdatedAt            time.Time
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		arg.UserID,
		arg.DefaultCurrency,
		arg.BudgetAlertEmail,
		arg.BudgetAlertThreshold,
		arg.UpdatedAt,
	)
	return err
}

const getProfile = `-- name: GetProfile :one
SELECT user_id, default_currency, budget_alert_email, budget_alert_threshold, updated_at
FROM user_profiles WHERE user_id = ?
`

func (q *Queries) GetProfile(ctx context.Context, userID int64) (UserProfile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, userID)
	var i UserProfile
	err := row.Scan(&i.UserID, &i.DefaultCurrency, &i.BudgetAlertEmail, &i.BudgetAlertThreshold, &i.UpdatedAt)
	return i, err
}

// categories

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (owner_id, name, kind, icon, color, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, owner_id, name, kind, icon, color, created_at
`

type CreateCategoryParams struct {
	OwnerID   int64
	Name      string
	Kind      string
	Icon      string
	Color     string
	CreatedAt time.Time
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory,
		arg.OwnerID,
		arg.Name,
		arg.Kind,
		arg.Icon,
		arg.Color,
		arg.CreatedAt,
	)
	var i Category
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Kind, &i.Icon, &i.Color, &i.CreatedAt)
	return i, err
}

const getCategory = `-- name: GetCategory :one
SELECT id, owner_id, name, kind, icon, color, created_at
FROM categories WHERE id = ? AND owner_id = ?
`

func (q *Queries) GetCategory(ctx context.Context, id, ownerID int64) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategory, id, ownerID)
	var i Category
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Kind, &i.Icon, &i.Color, &i.CreatedAt)
	return i, err
}

const updateCategory = `-- name: UpdateCategory :one
UPDATE categories SET name = ?, kind = ?, icon = ?, color = ?
WHERE id = ? AND owner_id = ?
RETURNING id, owner_id, name, kind, icon, color, created_at
`

type UpdateCategoryParams struct {
	Name    string
	Kind    string
	Icon    string
	Color   string
	ID      int64
	OwnerID int64
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, updateCategory,
		arg.Name,
		arg.Kind,
		arg.Icon,
		arg.Color,
		arg.ID,
		arg.OwnerID,
	)
	var i Category
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Kind, &i.Icon, &i.Color, &i.CreatedAt)
	return i, err
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = ? AND owner_id = ?
`

func (q *Queries) DeleteCategory(ctx context.Context, id, ownerID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, id, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `-- name: ListCategories :many
SELECT id, owner_id, name, kind, icon, color, created_at
FROM categories
WHERE owner_id = ?1 AND (?2 = '' OR kind = ?2)
ORDER BY kind, name
`

func (q *Queries) ListCategories(ctx context.Context, ownerID int64, kind string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Kind, &i.Icon, &i.Color, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// transactions

const transactionColumns = `t.id, t.owner_id, t.category_id, t.kind, t.amount, t.currency, t.is_refund, t.date,
    t.description, t.notes, t.receipt, t.created_at, t.updated_at, c.name, c.color`

func scanTransaction(s interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := s.Scan(
		&i.ID,
		&i.OwnerID,
		&i.CategoryID,
		&i.Kind,
		&i.Amount,
		&i.Currency,
		&i.IsRefund,
		&i.Date,
		&i.Description,
		&i.Notes,
		&i.Receipt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CategoryName,
		&i.CategoryColor,
	)
	return i, err
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (owner_id, category_id, kind, amount, currency, is_refund, date,
    description, notes, receipt, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateTransactionParams struct {
	OwnerID     int64
	CategoryID  sql.NullInt64
	Kind        string
	Amount      string
	Currency    string
	IsRefund    bool
	Date        string
	Description string
	Notes       string
	Receipt     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.OwnerID,
		arg.CategoryID,
		arg.Kind,
		arg.Amount,
		arg.Currency,
		arg.IsRefund,
		arg.Date,
		arg.Description,
		arg.Notes,
		arg.Receipt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + `
FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
WHERE t.id = ? AND t.owner_id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id, ownerID int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, ownerID))
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions SET category_id = ?, kind = ?, amount = ?, currency = ?, is_refund = ?,
    date = ?, description = ?, notes = ?, receipt = ?, updated_at = ?
WHERE id = ? AND owner_id = ?
`

type UpdateTransactionParams struct {
	CategoryID  sql.NullInt64
	Kind        string
	Amount      string
	Currency    string
	IsRefund    bool
	Date        string
	Description string
	Notes       string
	Receipt     string
	UpdatedAt   time.Time
	ID          int64
	OwnerID     int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.CategoryID,
		arg.Kind,
		arg.Amount,
		arg.Currency,
		arg.IsRefund,
		arg.Date,
		arg.Description,
		arg.Notes,
		arg.Receipt,
		arg.UpdatedAt,
		arg.ID,
		arg.OwnerID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ? AND owner_id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactions = `-- name: ListTransactions :many
SELECT ` + transactionColumns + `
FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
WHERE t.owner_id = ?1
  AND (?2 IS NULL OR t.category_id = ?2)
  AND (?3 = 0 OR t.category_id IS NULL)
  AND (?4 = '' OR t.kind = ?4)
  AND (?5 IS NULL OR t.is_refund = ?5)
  AND (?6 = '' OR t.currency = ?6)
  AND (?7 = '' OR t.date >= ?7)
  AND (?8 = '' OR t.date < ?8)
  AND (?9 = '' OR t.date < ?9 OR (t.date = ?9 AND t.id < ?10))
  AND (?12 = '' OR CAST(t.amount AS REAL) >= CAST(?12 AS REAL))
  AND (?13 = '' OR CAST(t.amount AS REAL) <= CAST(?13 AS REAL))
ORDER BY t.date DESC, t.id DESC
LIMIT ?11
`

type ListTransactionsParams struct {
	OwnerID       int64
	CategoryID    sql.NullInt64
	Uncategorized bool
	Kind          string
	IsRefund      sql.NullBool
	Currency      string
	FromDate      string
	ToDate        string
	AfterDate     string
	AfterID       int64
	Limit         int64
	MinAmount     string
	MaxAmount     string
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.OwnerID,
		arg.CategoryID,
		arg.Uncategorized,
		arg.Kind,
		arg.IsRefund,
		arg.Currency,
		arg.FromDate,
		arg.ToDate,
		arg.AfterDate,
		arg.AfterID,
		arg.Limit,
		arg.MinAmount,
		arg.MaxAmount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions WHERE owner_id = ?
`

func (q *Queries) CountTransactions(ctx context.Context, ownerID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions, ownerID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// budgets

const budgetColumns = `b.id, b.owner_id, b.category_id, b.name, b.limit_amount, b.currency, b.period,
    b.start_date, b.notes, b.created_at, c.name`

func scanBudget(s interface{ Scan(...any) error }) (Budget, error) {
	var i Budget
	err := s.Scan(
		&i.ID,
		&i.OwnerID,
		&i.CategoryID,
		&i.Name,
		&i.LimitAmount,
		&i.Currency,
		&i.Period,
		&i.StartDate,
		&i.Notes,
		&i.CreatedAt,
		&i.CategoryName,
	)
	return i, err
}

const createBudget = `-- name: CreateBudget :one
INSERT INTO budgets (owner_id, category_id, name, limit_amount, currency, period, start_date, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateBudgetParams struct {
	OwnerID     int64
	CategoryID  sql.NullInt64
	Name        string
	LimitAmount string
	Currency    string
	Period      string
	StartDate   string
	Notes       string
	CreatedAt   time.Time
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createBudget,
		arg.OwnerID,
		arg.CategoryID,
		arg.Name,
		arg.LimitAmount,
		arg.Currency,
		arg.Period,
		arg.StartDate,
		arg.Notes,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getBudget = `-- name: GetBudget :one
SELECT ` + budgetColumns + `
FROM budgets b LEFT JOIN categories c ON c.id = b.category_id
WHERE b.id = ? AND b.owner_id = ?
`

func (q *Queries) GetBudget(ctx context.Context, id, ownerID int64) (Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id, ownerID))
}

const updateBudget = `-- name: UpdateBudget :execrows
UPDATE budgets SET category_id = ?, name = ?, limit_amount = ?, currency = ?, period = ?,
    start_date = ?, notes = ?
WHERE id = ? AND owner_id = ?
`

type UpdateBudgetParams struct {
	CategoryID  sql.NullInt64
	Name        string
	LimitAmount string
	Currency    string
	Period      string
	StartDate   string
	Notes       string
	ID          int64
	OwnerID     int64
}

func (q *Queries) UpdateBudget(ctx context.Context, arg UpdateBudgetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBudget,
		arg.CategoryID,
		arg.Name,
		arg.LimitAmount,
		arg.Currency,
		arg.Period,
		arg.StartDate,
		arg.Notes,
		arg.ID,
		arg.OwnerID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteBudget = `-- name: DeleteBudget :execrows
DELETE FROM budgets WHERE id = ? AND owner_id = ?
`

func (q *Queries) DeleteBudget(ctx context.Context, id, ownerID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudget, id, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listBudgets = `-- name: ListBudgets :many
SELECT ` + budgetColumns + `
FROM budgets b LEFT JOIN categories c ON c.id = b.category_id
WHERE b.owner_id = ?
ORDER BY b.start_date DESC, b.id DESC
`

func (q *Queries) ListBudgets(ctx context.Context, ownerID int64) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		i, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// alerts

const insertBudgetAlert = `-- name: InsertBudgetAlert :execrows
INSERT INTO budget_alerts (owner_id, budget_id, period_start, level, usage_percent, sent_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id, budget_id, period_start, level) DO NOTHING
`

type InsertBudgetAlertParams struct {
	OwnerID      int64
	BudgetID     int64
	PeriodStart  string
	Level        string
	UsagePercent string
	SentAt       time.Time
}

func (q *Queries) InsertBudgetAlert(ctx context.Context, arg InsertBudgetAlertParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertBudgetAlert,
		arg.OwnerID,
		arg.BudgetID,
		arg.PeriodStart,
		arg.Level,
		arg.UsagePercent,
		arg.SentAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
