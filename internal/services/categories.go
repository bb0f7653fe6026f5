package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const defaultColor = "#4CAF50"

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name  string
	Kind  core.Kind
	Icon  string
	Color string
}

// DefaultCategories are created for every new account.
var DefaultCategories = []CategoryInput{
	{Name: "Salary", Kind: core.Income, Icon: "briefcase", Color: "#2E7D32"},
	{Name: "Freelance", Kind: core.Income, Icon: "laptop", Color: "#66BB6A"},
	{Name: "Food", Kind: core.Expense, Icon: "utensils", Color: "#EF5350"},
	{Name: "Rent", Kind: core.Expense, Icon: "home", Color: "#AB47BC"},
	{Name: "Transport", Kind: core.Expense, Icon: "bus", Color: "#42A5F5"},
	{Name: "Utilities", Kind: core.Expense, Icon: "bolt", Color: "#FFA726"},
	{Name: "Entertainment", Kind: core.Expense, Icon: "film", Color: "#EC407A"},
}

type CategoryService struct {
	store ports.CategoryStore
}

func NewCategoryService(store ports.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) Create(ctx context.Context, owner int64, in CategoryInput) (core.Category, error) {
	c := in.category(owner)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, c)
}

func (s *CategoryService) Update(ctx context.Context, id, owner int64, in CategoryInput) (core.Category, error) {
	c := in.category(owner)
	c.ID = id
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.UpdateCategory(ctx, c)
}

// Delete removes the category; storage uncategorizes its transactions and budgets.
func (s *CategoryService) Delete(ctx context.Context, id, owner int64) error {
	return s.store.DeleteCategory(ctx, id, owner)
}

func (s *CategoryService) Get(ctx context.Context, id, owner int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id, owner)
}

func (s *CategoryService) List(ctx context.Context, owner int64, kind core.Kind) ([]core.Category, error) {
	if kind != "" {
		if err := kind.Validate(); err != nil {
			return nil, err
		}
	}
	return s.store.ListCategories(ctx, owner, kind)
}

// SeedDefaults creates DefaultCategories for owner.
func (s *CategoryService) SeedDefaults(ctx context.Context, owner int64) error {
	for _, in := range DefaultCategories {
		if _, err := s.Create(ctx, owner, in); err != nil {
			return fmt.Errorf("seed category %q: %w", in.Name, err)
		}
	}
	slog.InfoContext(ctx, "Seeded default categories", "owner_id", owner, "count", len(DefaultCategories))
	return nil
}

func (in CategoryInput) category(owner int64) core.Category {
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = defaultColor
	}
	return core.Category{
		OwnerID: owner,
		Name:    strings.TrimSpace(in.Name),
		Kind:    in.Kind,
		Icon:    strings.TrimSpace(in.Icon),
		Color:   strings.ToUpper(color),
	}
}
