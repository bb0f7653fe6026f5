package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BudgetInput carries the editable fields of a budget.
type BudgetInput struct {
	CategoryID *int64
	Name       string
	Limit      core.Money
	Period     core.Period
	StartDate  core.Date
	Notes      string
}

// BudgetService evaluates budgets on every read and emits at most one alert
// per (owner, budget, period, level).
type BudgetService struct {
	store           ports.Store
	ledger          *LedgerService
	notifier        notify.Notifier
	defaultCurrency core.Currency
	now             func() time.Time
	events          *log.StructuredLogger
}

func NewBudgetService(store ports.Store, ledger *LedgerService, notifier notify.Notifier, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:           store,
		ledger:          ledger,
		notifier:        notifier,
		defaultCurrency: core.USD,
		now:             func() time.Time { return time.Now().UTC() },
		events:          log.NewStructuredLogger(logger.WithComponent(log.ComponentBudget)),
	}
}

// WithDefaultCurrency sets the currency used for owners without a profile.
func (s *BudgetService) WithDefaultCurrency(c core.Currency) *BudgetService {
	s.defaultCurrency = c
	return s
}

func (s *BudgetService) Create(ctx context.Context, owner int64, in BudgetInput) (core.Budget, error) {
	b := in.budget(owner)
	if err := s.validate(ctx, owner, b); err != nil {
		return core.Budget{}, err
	}
	return s.store.CreateBudget(ctx, b)
}

func (s *BudgetService) Update(ctx context.Context, id, owner int64, in BudgetInput) (core.Budget, error) {
	if _, err := s.store.GetBudget(ctx, id, owner); err != nil {
		return core.Budget{}, err
	}
	b := in.budget(owner)
	b.ID = id
	if err := s.validate(ctx, owner, b); err != nil {
		return core.Budget{}, err
	}
	return s.store.UpdateBudget(ctx, b)
}

func (s *BudgetService) Delete(ctx context.Context, id, owner int64) error {
	return s.store.DeleteBudget(ctx, id, owner)
}

func (s *BudgetService) Get(ctx context.Context, id, owner int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, id, owner)
}

func (s *BudgetService) List(ctx context.Context, owner int64) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, owner)
}

// Period returns the budget window [start, end) containing at.
func (s *BudgetService) Period(b core.Budget, at time.Time) (start, end time.Time) {
	return b.PeriodAt(at)
}

// Evaluate computes the budget's status for the period containing at and,
// when it is warning or exceeded, emits the alert once per period and level.
func (s *BudgetService) Evaluate(ctx context.Context, owner, budgetID int64, at time.Time) (core.BudgetStatus, error) {
	b, err := s.store.GetBudget(ctx, budgetID, owner)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	profile, err := profileOrDefault(ctx, s.store, owner, s.defaultCurrency)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("load profile: %w", err)
	}
	return s.evaluate(ctx, b, profile, at)
}

// EvaluateAll evaluates every budget of owner at the given instant.
func (s *BudgetService) EvaluateAll(ctx context.Context, owner int64, at time.Time) ([]core.BudgetStatus, error) {
	budgets, err := s.store.ListBudgets(ctx, owner)
	if err != nil {
		return nil, err
	}
	profile, err := profileOrDefault(ctx, s.store, owner, s.defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		st, err := s.evaluate(ctx, b, profile, at)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// CheckTransaction re-evaluates the budgets an expense can affect, at the
// expense's own date. Failures are logged; the write that triggered it stands.
func (s *BudgetService) CheckTransaction(ctx context.Context, owner int64, t core.Transaction) {
	if t.Kind != core.Expense {
		return
	}
	budgets, err := s.store.ListBudgets(ctx, owner)
	if err != nil {
		logSwallowed(ctx, log.ComponentBudget, "Failed to list budgets after write", err, log.FieldOwnerID, owner)
		return
	}
	profile, err := profileOrDefault(ctx, s.store, owner, s.defaultCurrency)
	if err != nil {
		logSwallowed(ctx, log.ComponentBudget, "Failed to load profile after write", err, log.FieldOwnerID, owner)
		return
	}
	for _, b := range budgets {
		if !b.IsGlobal() && (t.CategoryID == nil || *t.CategoryID != *b.CategoryID) {
			continue
		}
		if b.Limit.Currency != t.Amount.Currency || t.Date.Before(b.StartDate.Time) {
			continue
		}
		if _, err := s.evaluate(ctx, b, profile, t.Date.Time); err != nil {
			logSwallowed(ctx, log.ComponentBudget, "Failed to evaluate budget after write", err,
				log.FieldOwnerID, owner, log.FieldBudgetID, b.ID)
		}
	}
}

// Status computes a budget's state without side effects.
func (s *BudgetService) Status(ctx context.Context, b core.Budget, threshold int, at time.Time) (core.BudgetStatus, error) {
	start, end := b.PeriodAt(at)
	from, to := core.DateOf(start), core.DateOf(end)
	f := Filter{
		CategoryID: b.CategoryID,
		Kind:       core.Expense,
		Currency:   b.Limit.Currency,
		From:       &from,
		To:         &to,
	}

	signed := core.Zero(b.Limit.Currency)
	for t, err := range s.ledger.List(ctx, b.OwnerID, f) {
		if err != nil {
			return core.BudgetStatus{}, fmt.Errorf("sum budget %d: %w", b.ID, err)
		}
		if signed, err = signed.Add(t.SignedAmount()); err != nil {
			return core.BudgetStatus{}, err
		}
	}

	spent := signed.Neg().ClampZero()
	remaining, err := b.Limit.Sub(spent)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	usage, err := spent.Ratio(b.Limit)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	percent, err := spent.Percent(b.Limit)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	return core.BudgetStatus{
		Budget:       b,
		PeriodStart:  from,
		PeriodEnd:    to,
		Spent:        spent,
		Remaining:    remaining,
		Usage:        usage,
		UsagePercent: percent,
		Level:        level(spent, b.Limit, threshold),
	}, nil
}

// level compares exactly: spent*100 against limit*threshold.
func level(spent, limit core.Money, threshold int) core.AlertLevel {
	if threshold <= 0 {
		threshold = core.DefaultAlertThreshold
	}
	switch {
	case spent.Amount.Cmp(limit.Amount) >= 0:
		return core.LevelExceeded
	case spent.Amount.Mul(hundred).Cmp(limit.Amount.Mul(decimal.NewFromInt(int64(threshold)))) >= 0:
		return core.LevelWarning
	default:
		return core.LevelUnder
	}
}

func (s *BudgetService) evaluate(ctx context.Context, b core.Budget, profile core.UserProfile, at time.Time) (core.BudgetStatus, error) {
	st, err := s.Status(ctx, b, profile.BudgetAlertThreshold, at)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	if st.Level != core.LevelUnder && profile.BudgetAlertEmail {
		s.alert(ctx, st)
	}
	return st, nil
}

// alert claims the (owner, budget, period, level) marker and notifies only if
// this call created it. Every failure here is logged and swallowed.
func (s *BudgetService) alert(ctx context.Context, st core.BudgetStatus) {
	if s.notifier == nil {
		return
	}
	b := st.Budget
	won, err := s.store.MarkAlertSent(ctx, ports.AlertMarker{
		OwnerID:      b.OwnerID,
		BudgetID:     b.ID,
		PeriodStart:  st.PeriodStart,
		Level:        st.Level,
		UsagePercent: st.UsagePercent,
		SentAt:       s.now(),
	})
	if err != nil {
		logSwallowed(ctx, log.ComponentNotify, "Failed to record budget alert", err,
			log.FieldOwnerID, b.OwnerID, log.FieldBudgetID, b.ID)
		return
	}
	if !won {
		return
	}

	user, err := s.store.GetUser(ctx, b.OwnerID)
	if err != nil {
		logSwallowed(ctx, log.ComponentNotify, "Failed to load alert recipient", err,
			log.FieldOwnerID, b.OwnerID, log.FieldBudgetID, b.ID)
		return
	}

	a := notify.BudgetAlert{
		OwnerID:      b.OwnerID,
		Email:        user.Email,
		Name:         user.DisplayName(),
		BudgetID:     b.ID,
		BudgetName:   b.Label(),
		Level:        st.Level,
		UsagePercent: st.UsagePercent,
		Spent:        st.Spent,
		Limit:        b.Limit,
		Remaining:    st.Remaining,
		PeriodStart:  st.PeriodStart,
	}
	if err := s.notifier.NotifyBudgetAlert(ctx, a); err != nil {
		logSwallowed(ctx, log.ComponentNotify, "Failed to send budget alert", err,
			log.FieldOwnerID, b.OwnerID, log.FieldBudgetID, b.ID, log.FieldLevel, st.Level)
		return
	}
	s.events.LogBudgetAlert(ctx, b.OwnerID, b.ID, string(st.Level), st.UsagePercent.String(), st.PeriodStart.String())
}

func (s *BudgetService) validate(ctx context.Context, owner int64, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.CategoryID == nil {
		return nil
	}
	c, err := s.store.GetCategory(ctx, *b.CategoryID, owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrOwnershipViolation
	}
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	if c.Kind != core.Expense {
		return fmt.Errorf("%w: budgets track expense categories", core.ErrInvalidKind)
	}
	return nil
}

func (in BudgetInput) budget(owner int64) core.Budget {
	return core.Budget{
		OwnerID:    owner,
		CategoryID: in.CategoryID,
		Name:       in.Name,
		Limit:      in.Limit,
		Period:     in.Period,
		StartDate:  in.StartDate,
		Notes:      in.Notes,
	}
}
