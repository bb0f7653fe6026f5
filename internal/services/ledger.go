package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// DefaultPageSize is the keyset page used by List.
const DefaultPageSize = 100

// TransactionInput carries the user-editable fields of a transaction.
type TransactionInput struct {
	CategoryID  *int64
	Amount      core.Money
	Kind        core.Kind
	IsRefund    bool
	Date        core.Date
	Description string
	Notes       string
	Receipt     string
}

// Filter narrows List; zero fields do not filter. From is inclusive, To exclusive.
type Filter struct {
	CategoryID    *int64
	Uncategorized bool
	Kind          core.Kind
	IsRefund      *bool
	Currency      core.Currency
	From          *core.Date
	To            *core.Date
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
}

func (f Filter) query() ports.TransactionQuery {
	return ports.TransactionQuery{
		CategoryID:    f.CategoryID,
		Uncategorized: f.Uncategorized,
		Kind:          f.Kind,
		IsRefund:      f.IsRefund,
		Currency:      f.Currency,
		From:          f.From,
		To:            f.To,
		MinAmount:     f.MinAmount,
		MaxAmount:     f.MaxAmount,
	}
}

// BudgetChecker is told about every persisted transaction so budgets can alert.
type BudgetChecker interface {
	CheckTransaction(ctx context.Context, owner int64, t core.Transaction)
}

// LedgerService owns transaction CRUD and listing. It never deletes categories.
type LedgerService struct {
	store    ports.Store
	checker  BudgetChecker
	pageSize int
	events   *log.StructuredLogger
}

func NewLedgerService(store ports.Store, logger *log.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		pageSize: DefaultPageSize,
		events:   log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
	}
}

// WithBudgetChecker wires post-write budget checks.
func (s *LedgerService) WithBudgetChecker(c BudgetChecker) *LedgerService {
	s.checker = c
	return s
}

func (s *LedgerService) Create(ctx context.Context, owner int64, in TransactionInput) (core.Transaction, error) {
	t := in.transaction(owner)
	if err := s.validate(ctx, owner, t); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.events.LogTransactionCreated(ctx, owner, created.ID, string(created.Kind), created.Amount.String())

	s.check(ctx, owner, created)
	return created, nil
}

func (s *LedgerService) Update(ctx context.Context, id, owner int64, in TransactionInput) (core.Transaction, error) {
	if _, err := s.store.GetTransaction(ctx, id, owner); err != nil {
		return core.Transaction{}, err
	}
	t := in.transaction(owner)
	t.ID = id
	if err := s.validate(ctx, owner, t); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.check(ctx, owner, updated)
	return updated, nil
}

func (s *LedgerService) Delete(ctx context.Context, id, owner int64) error {
	return s.store.DeleteTransaction(ctx, id, owner)
}

func (s *LedgerService) Get(ctx context.Context, id, owner int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, owner)
}

// List yields the owner's matching transactions by date desc, id desc. The
// sequence is lazy and restartable: every range re-reads storage page by page.
func (s *LedgerService) List(ctx context.Context, owner int64, f Filter) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		q := f.query()
		q.Limit = s.pageSize
		for {
			page, err := s.store.ListTransactions(ctx, owner, q)
			if err != nil {
				yield(core.Transaction{}, err)
				return
			}
			for _, t := range page {
				if !yield(t, nil) {
					return
				}
			}
			if len(page) < q.Limit {
				return
			}
			last := page[len(page)-1]
			q.After = &ports.Cursor{Date: last.Date, ID: last.ID}
		}
	}
}

// Collect drains List into a slice.
func (s *LedgerService) Collect(ctx context.Context, owner int64, f Filter) ([]core.Transaction, error) {
	var out []core.Transaction
	for t, err := range s.List(ctx, owner, f) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Recent returns the newest n transactions.
func (s *LedgerService) Recent(ctx context.Context, owner int64, n int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, owner, ports.TransactionQuery{Limit: n})
}

func (s *LedgerService) Count(ctx context.Context, owner int64) (int, error) {
	return s.store.CountTransactions(ctx, owner)
}

func (s *LedgerService) validate(ctx context.Context, owner int64, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CategoryID == nil {
		return nil
	}
	c, err := s.store.GetCategory(ctx, *t.CategoryID, owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrOwnershipViolation
	}
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	if c.Kind != t.Kind {
		return fmt.Errorf("%w: category %q is %s", core.ErrInvalidKind, c.Name, c.Kind)
	}
	return nil
}

func (s *LedgerService) check(ctx context.Context, owner int64, t core.Transaction) {
	if s.checker == nil {
		return
	}
	s.checker.CheckTransaction(ctx, owner, t)
}

func (in TransactionInput) transaction(owner int64) core.Transaction {
	return core.Transaction{
		OwnerID:     owner,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Kind:        in.Kind,
		IsRefund:    in.IsRefund,
		Date:        in.Date,
		Description: in.Description,
		Notes:       in.Notes,
		Receipt:     in.Receipt,
	}
}

func logSwallowed(ctx context.Context, component, msg string, err error, args ...any) {
	slog.ErrorContext(ctx, msg, append([]any{log.FieldComponent, component, log.FieldError, err}, args...)...)
}
