package services

import (
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCreateValidation(t *testing.T) {
	f := newFixture(t)
	food := f.seeded(t, "Food")
	salary := f.seeded(t, "Salary")
	other := f.register(t, "bob")
	bobs, err := f.categories.Create(f.ctx, other.ID, CategoryInput{Name: "Bob only", Kind: core.Expense})
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   TransactionInput
		wantErr error
	}{
		{
			name:    "negative amount",
			input:   TransactionInput{Amount: core.MustMoney("-5", core.USD), Kind: core.Expense, Date: march(1), Description: "x"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "missing description",
			input:   TransactionInput{Amount: core.MustMoney("5", core.USD), Kind: core.Expense, Date: march(1)},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "unknown kind",
			input:   TransactionInput{Amount: core.MustMoney("5", core.USD), Kind: "transfer", Date: march(1), Description: "x"},
			wantErr: core.ErrInvalidKind,
		},
		{
			name:    "category of another owner",
			input:   TransactionInput{CategoryID: &bobs.ID, Amount: core.MustMoney("5", core.USD), Kind: core.Expense, Date: march(1), Description: "x"},
			wantErr: core.ErrOwnershipViolation,
		},
		{
			name:    "income category on an expense",
			input:   TransactionInput{CategoryID: &salary.ID, Amount: core.MustMoney("5", core.USD), Kind: core.Expense, Date: march(1), Description: "x"},
			wantErr: core.ErrInvalidKind,
		},
		{
			name:  "valid expense",
			input: TransactionInput{CategoryID: &food.ID, Amount: core.MustMoney("5", core.USD), Kind: core.Expense, Date: march(1), Description: "lunch"},
		},
		{
			name:  "zero amount is allowed",
			input: TransactionInput{Amount: core.MustMoney("0", core.USD), Kind: core.Expense, Date: march(1), Description: "free"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := f.ledger.Create(f.ctx, f.owner.ID, tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, tx.ID)
			assert.Equal(t, f.owner.ID, tx.OwnerID)
		})
	}
}

func TestLedgerOwnerIsolation(t *testing.T) {
	f := newFixture(t)
	tx := f.add(t, nil, "12.50", core.Expense, false, march(3))
	other := f.register(t, "eve")

	_, err := f.ledger.Get(f.ctx, tx.ID, other.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.ledger.Update(f.ctx, tx.ID, other.ID, TransactionInput{
		Amount: core.MustMoney("1", core.USD), Kind: core.Expense, Date: march(3), Description: "steal",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, f.ledger.Delete(f.ctx, tx.ID, other.ID), core.ErrNotFound)

	got, err := f.ledger.Get(f.ctx, tx.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.Amount.Amount.String())
}

func TestLedgerListPagesAndRestarts(t *testing.T) {
	f := newFixture(t)
	f.ledger.pageSize = 2

	for day := 1; day <= 5; day++ {
		f.add(t, nil, "1", core.Expense, false, march(day))
	}

	collect := func() []int {
		var days []int
		for tx, err := range f.ledger.List(f.ctx, f.owner.ID, Filter{}) {
			require.NoError(t, err)
			days = append(days, tx.Date.Day())
		}
		return days
	}

	first := collect()
	assert.Equal(t, []int{5, 4, 3, 2, 1}, first)
	assert.Equal(t, first, collect(), "ranging again re-reads the same sequence")

	var taken []int
	for tx, err := range f.ledger.List(f.ctx, f.owner.ID, Filter{}) {
		require.NoError(t, err)
		taken = append(taken, tx.Date.Day())
		if len(taken) == 3 {
			break
		}
	}
	assert.Equal(t, []int{5, 4, 3}, taken)
}

func TestLedgerListFilters(t *testing.T) {
	f := newFixture(t)
	food := f.seeded(t, "Food")
	salary := f.seeded(t, "Salary")

	f.add(t, &food, "10", core.Expense, false, march(2))
	f.add(t, &food, "4", core.Expense, true, march(3))
	f.add(t, &salary, "1000", core.Income, false, march(1))
	f.add(t, nil, "7", core.Expense, false, core.NewDate(2025, 4, 1))

	refund := true
	from, to := march(1), core.NewDate(2025, 4, 1)
	seven, ten := dec("7"), dec("10")

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by category", Filter{CategoryID: &food.ID}, 2},
		{"uncategorized", Filter{Uncategorized: true}, 1},
		{"income only", Filter{Kind: core.Income}, 1},
		{"refunds only", Filter{IsRefund: &refund}, 1},
		{"march only", Filter{From: &from, To: &to}, 3},
		{"other currency", Filter{Currency: core.EUR}, 0},
		{"min amount inclusive", Filter{MinAmount: &ten}, 2},
		{"max amount inclusive", Filter{MaxAmount: &seven}, 2},
		{"amount range", Filter{MinAmount: &seven, MaxAmount: &ten}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ledger.Collect(f.ctx, f.owner.ID, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	n, err := f.ledger.Count(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	recent, err := f.ledger.Recent(f.ctx, f.owner.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].Date.Month())
}

func TestCategoryDeleteKeepsTransactions(t *testing.T) {
	f := newFixture(t)
	food := f.seeded(t, "Food")
	tx := f.add(t, &food, "30", core.Expense, false, march(5))

	require.NoError(t, f.categories.Delete(f.ctx, food.ID, f.owner.ID))

	got, err := f.ledger.Get(f.ctx, tx.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, "30", got.Amount.Amount.String())

	report, err := f.reports.Monthly(f.ctx, f.owner.ID, 2025, 3, "")
	require.NoError(t, err)
	require.Len(t, report.ExpenseByCategory, 1)
	assert.Equal(t, core.UncategorizedLabel, report.ExpenseByCategory[0].Name)
}

func TestCategoryService(t *testing.T) {
	f := newFixture(t)

	all, err := f.categories.List(f.ctx, f.owner.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultCategories))

	income, err := f.categories.List(f.ctx, f.owner.ID, core.Income)
	require.NoError(t, err)
	assert.Len(t, income, 2)

	_, err = f.categories.List(f.ctx, f.owner.ID, "transfer")
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	c, err := f.categories.Create(f.ctx, f.owner.ID, CategoryInput{Name: "  Pets ", Kind: core.Expense, Color: "#ab47bc"})
	require.NoError(t, err)
	assert.Equal(t, "Pets", c.Name)
	assert.Equal(t, "#AB47BC", c.Color)

	_, err = f.categories.Create(f.ctx, f.owner.ID, CategoryInput{Name: "Pets", Kind: core.Expense})
	assert.ErrorIs(t, err, core.ErrDuplicate)

	_, err = f.categories.Create(f.ctx, f.owner.ID, CategoryInput{Name: "Pets", Kind: core.Income})
	assert.NoError(t, err, "the same name may exist once per kind")

	_, err = f.categories.Create(f.ctx, f.owner.ID, CategoryInput{Name: " ", Kind: core.Expense})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	updated, err := f.categories.Update(f.ctx, c.ID, f.owner.ID, CategoryInput{Name: "Animals", Kind: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, "Animals", updated.Name)
	assert.Equal(t, defaultColor, updated.Color)
}
