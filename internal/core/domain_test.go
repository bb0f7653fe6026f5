package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-09"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, 29, d.Day())
	assert.Equal(t, 2, d.Month())
}

func TestSignedAmount(t *testing.T) {
	cases := []struct {
		name      string
		kind      Kind
		refund    bool
		effective string
		signed    string
	}{
		{"income", Income, false, "100", "100"},
		{"income refund", Income, true, "-100", "-100"},
		{"expense", Expense, false, "100", "-100"},
		{"expense refund", Expense, true, "-100", "100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := Transaction{Kind: tc.kind, IsRefund: tc.refund, Amount: MustMoney("100", USD)}
			assert.Equal(t, tc.effective, tx.EffectiveAmount().Amount.String())
			assert.Equal(t, tc.signed, tx.SignedAmount().Amount.String())
			assert.False(t, tx.Amount.IsNegative(), "stored amount must stay a magnitude")
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:      MustMoney("12.50", USD),
		Kind:        Expense,
		Date:        NewDate(2025, 1, 1),
		Description: "Groceries",
	}
	require.NoError(t, good.Validate())

	bads := []Transaction{
		{Amount: MustMoney("-1", USD), Kind: Expense, Date: NewDate(2025, 1, 1), Description: "a"},
		{Amount: MustMoney("1", "XXX"), Kind: Expense, Date: NewDate(2025, 1, 1), Description: "a"},
		{Amount: MustMoney("1", USD), Kind: "transfer", Date: NewDate(2025, 1, 1), Description: "a"},
		{Amount: MustMoney("1", USD), Kind: Expense, Description: "a"},
		{Amount: MustMoney("1", USD), Kind: Expense, Date: NewDate(2025, 1, 1), Description: " "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	neg := good
	neg.Amount = MustMoney("-0.01", USD)
	assert.ErrorIs(t, neg.Validate(), ErrInvalidAmount)
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Limit: MustMoney("100", USD), Period: Monthly, StartDate: NewDate(2025, 1, 1)}
	require.NoError(t, b.Validate())

	zero := b
	zero.Limit = Zero(USD)
	assert.ErrorIs(t, zero.Validate(), ErrInvalidLimit)

	neg := b
	neg.Limit = MustMoney("-10", USD)
	assert.ErrorIs(t, neg.Validate(), ErrInvalidLimit)

	badPeriod := b
	badPeriod.Period = "week"
	assert.ErrorIs(t, badPeriod.Validate(), ErrInvalidPeriod)

	multiline := b
	multiline.Name = "Food\r\nBcc: attacker@evil.test"
	assert.ErrorIs(t, multiline.Validate(), ErrInvalidField)
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		want error
	}{
		{"valid", Category{Name: "Food", Kind: Expense, Color: "#4CAF50"}, nil},
		{"empty name", Category{Name: "  ", Kind: Expense}, ErrEmptyName},
		{"line feed", Category{Name: "Food\nBcc: x@evil.test", Kind: Expense}, ErrInvalidField},
		{"carriage return", Category{Name: "Food\rX", Kind: Expense}, ErrInvalidField},
		{"bad color", Category{Name: "Food", Kind: Expense, Color: "green"}, ErrInvalidField},
		{"bad kind", Category{Name: "Food", Kind: "gift"}, ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name string
		user User
		want error
	}{
		{"valid", User{Username: "ann", Email: "ann@example.com", FirstName: "Ann"}, nil},
		{"no email", User{Username: "ann"}, nil},
		{"empty username", User{Username: " "}, ErrEmptyName},
		{"email without at", User{Username: "ann", Email: "ann.example.com"}, ErrInvalidField},
		{"email with header", User{Username: "ann", Email: "ann@example.com\r\nBcc: x@evil.test"}, ErrInvalidField},
		{"email with display name", User{Username: "ann", Email: "Ann <ann@example.com>"}, ErrInvalidField},
		{"email list", User{Username: "ann", Email: "ann@example.com, x@evil.test"}, ErrInvalidField},
		{"first name with newline", User{Username: "ann", FirstName: "Ann\nBcc: x@evil.test"}, ErrInvalidField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBudgetPeriodAt(t *testing.T) {
	monthly := Budget{Period: Monthly, StartDate: NewDate(2025, 1, 15)}

	start, end := monthly.PeriodAt(time.Date(2025, 3, 20, 18, 30, 0, 0, time.UTC))
	assert.Equal(t, NewDate(2025, 3, 1).Time, start)
	assert.Equal(t, NewDate(2025, 4, 1).Time, end)

	// the first period starts at StartDate, not at the first of the month
	start, end = monthly.PeriodAt(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, NewDate(2025, 1, 15).Time, start)
	assert.Equal(t, NewDate(2025, 2, 1).Time, end)

	// before StartDate the first period is used
	start, _ = monthly.PeriodAt(time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, NewDate(2025, 1, 15).Time, start)

	yearly := Budget{Period: Yearly, StartDate: NewDate(2024, 1, 1)}
	start, end = yearly.PeriodAt(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, NewDate(2025, 1, 1).Time, start)
	assert.Equal(t, NewDate(2026, 1, 1).Time, end)
}

func TestBudgetLabel(t *testing.T) {
	assert.Equal(t, "All expenses", Budget{}.Label())
	assert.Equal(t, "Food", Budget{CategoryName: "Food"}.Label())
	assert.Equal(t, "Groceries", Budget{Name: "Groceries", CategoryName: "Food"}.Label())
}

func TestProfileValidate(t *testing.T) {
	p := DefaultProfile(1, "")
	require.NoError(t, p.Validate())
	assert.Equal(t, USD, p.DefaultCurrency)
	assert.True(t, p.BudgetAlertEmail)
	assert.Equal(t, 80, p.BudgetAlertThreshold)

	p.BudgetAlertThreshold = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidThreshold)
}
