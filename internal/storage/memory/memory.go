// Package memory is an in-process implementation of ports.Store used by tests
// and the "memory" data backend. Data lives only as long as the process.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type alertKey struct {
	owner, budget int64
	period        string
	level         core.AlertLevel
}

type Store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]core.User
	profiles map[int64]core.UserProfile
	cats     map[int64]core.Category
	txs      map[int64]core.Transaction
	budgets  map[int64]core.Budget
	alerts   map[alertKey]ports.AlertMarker
	now      func() time.Time
}

func New() *Store {
	return &Store{
		users:    map[int64]core.User{},
		profiles: map[int64]core.UserProfile{},
		cats:     map[int64]core.Category{},
		txs:      map[int64]core.Transaction{},
		budgets:  map[int64]core.Budget{},
		alerts:   map[alertKey]ports.AlertMarker{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUserWithProfile(_ context.Context, u core.User, p core.UserProfile) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return core.User{}, core.ErrDuplicate
		}
	}
	u.ID = s.id()
	u.CreatedAt = s.now()
	p.UserID = u.ID
	s.users[u.ID] = u
	s.profiles[u.ID] = p
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetProfile(_ context.Context, userID int64) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.UserProfile{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, p core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return core.ErrNotFound
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryExists(c) {
		return core.Category{}, core.ErrDuplicate
	}
	c.ID = s.id()
	c.CreatedAt = s.now()
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) categoryExists(c core.Category) bool {
	for _, existing := range s.cats {
		if existing.ID != c.ID && existing.OwnerID == c.OwnerID && existing.Kind == c.Kind && existing.Name == c.Name {
			return true
		}
	}
	return false
}

func (s *Store) GetCategory(_ context.Context, id, ownerID int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok || c.OwnerID != ownerID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cats[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return core.Category{}, core.ErrNotFound
	}
	if s.categoryExists(c) {
		return core.Category{}, core.ErrDuplicate
	}
	c.CreatedAt = existing.CreatedAt
	s.cats[c.ID] = c
	return c, nil
}

// DeleteCategory emulates ON DELETE SET NULL for transactions and budgets.
func (s *Store) DeleteCategory(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok || c.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.cats, id)
	for tid, t := range s.txs {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			s.txs[tid] = t
		}
	}
	for bid, b := range s.budgets {
		if b.CategoryID != nil && *b.CategoryID == id {
			b.CategoryID = nil
			s.budgets[bid] = b
		}
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context, ownerID int64, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if c.OwnerID == ownerID && (kind == "" || c.Kind == kind) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.Category) int {
		return cmp.Or(strings.Compare(string(a.Kind), string(b.Kind)), strings.Compare(a.Name, b.Name))
	})
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	t.CategoryID = clonePtr(t.CategoryID)
	s.txs[t.ID] = t
	return s.resolve(t), nil
}

func (s *Store) GetTransaction(_ context.Context, id, ownerID int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.resolve(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.txs[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return core.Transaction{}, core.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	t.CategoryID = clonePtr(t.CategoryID)
	s.txs[t.ID] = t
	return s.resolve(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID int64, q ports.TransactionQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if t.OwnerID == ownerID && q.Matches(t) {
			out = append(out, s.resolve(t))
		}
	}
	slices.SortFunc(out, func(a, b core.Transaction) int {
		return cmp.Or(b.Date.Compare(a.Date.Time), cmp.Compare(b.ID, a.ID))
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, ownerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.txs {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	b.CreatedAt = s.now()
	b.CategoryID = clonePtr(b.CategoryID)
	s.budgets[b.ID] = b
	return s.resolveBudget(b), nil
}

func (s *Store) GetBudget(_ context.Context, id, ownerID int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, core.ErrNotFound
	}
	return s.resolveBudget(b), nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[b.ID]
	if !ok || existing.OwnerID != b.OwnerID {
		return core.Budget{}, core.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.CategoryID = clonePtr(b.CategoryID)
	s.budgets[b.ID] = b
	return s.resolveBudget(b), nil
}

func (s *Store) DeleteBudget(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	for k := range s.alerts {
		if k.budget == id {
			delete(s.alerts, k)
		}
	}
	return nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID int64) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID {
			out = append(out, s.resolveBudget(b))
		}
	}
	slices.SortFunc(out, func(a, b core.Budget) int {
		return cmp.Or(b.StartDate.Compare(a.StartDate.Time), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

// MarkAlertSent is a check-and-set under the store mutex.
func (s *Store) MarkAlertSent(_ context.Context, m ports.AlertMarker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := alertKey{owner: m.OwnerID, budget: m.BudgetID, period: m.PeriodStart.String(), level: m.Level}
	if _, ok := s.alerts[k]; ok {
		return false, nil
	}
	if m.SentAt.IsZero() {
		m.SentAt = s.now()
	}
	s.alerts[k] = m
	return true, nil
}

// resolve fills the read-time category fields; caller holds the lock.
func (s *Store) resolve(t core.Transaction) core.Transaction {
	t.CategoryName, t.CategoryColor = "", ""
	if t.CategoryID != nil {
		if c, ok := s.cats[*t.CategoryID]; ok {
			t.CategoryName, t.CategoryColor = c.Name, c.Color
		}
	}
	t.CategoryID = clonePtr(t.CategoryID)
	return t
}

func (s *Store) resolveBudget(b core.Budget) core.Budget {
	b.CategoryName = ""
	if b.CategoryID != nil {
		if c, ok := s.cats[*b.CategoryID]; ok {
			b.CategoryName = c.Name
		}
	}
	b.CategoryID = clonePtr(b.CategoryID)
	return b
}

func clonePtr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
