// Package core provides money parsing and handling utilities.
//
// This file contains the Money value type: an exact decimal amount tagged
// with a currency. Arithmetic never goes through float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	INR Currency = "INR"
	JPY Currency = "JPY"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
)

// Currencies lists the supported currencies in display order.
var Currencies = []Currency{USD, EUR, GBP, INR, JPY, CAD, AUD}

// Validate reports ErrInvalidCurrency for codes outside Currencies.
func (c Currency) Validate() error {
	for _, known := range Currencies {
		if c == known {
			return nil
		}
	}
	return ErrInvalidCurrency
}

// Bounds on user-entered amounts. Exponent notation is refused so that
// rounding never has to rescale to an unbounded number of digits.
const (
	maxAmountInput   = 40
	maxIntegerDigits = 18
)

// Places returns the number of minor-unit digits used when rounding input.
func (c Currency) Places() int32 {
	if c == JPY {
		return 0
	}
	return 2
}

// ParseCurrency normalises and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Money is an exact decimal amount in a single currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney builds a Money value without validation.
func NewMoney(amount decimal.Decimal, c Currency) Money {
	return Money{Amount: amount, Currency: c}
}

// Zero returns a zero amount in the given currency.
func Zero(c Currency) Money {
	return Money{Amount: decimal.Zero, Currency: c}
}

// MustMoney parses a literal amount and panics on error. Intended for tests and constants.
func MustMoney(s string, c Currency) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{Amount: d, Currency: c}
}

// ParseMoney converts user input into a non-negative Money value.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs are
// rejected since direction is carried by the transaction kind, never by the amount.
// The value is rounded half-up to the currency's minor unit.
//
// Examples:
//
//	ParseMoney("12.34", USD)  -> USD 12.34
//	ParseMoney("12,345", EUR) -> EUR 12.35
//	ParseMoney("-1", USD)     -> ErrInvalidAmount
//	ParseMoney("1e9", USD)    -> ErrInvalidAmount
func ParseMoney(s string, c Currency) (Money, error) {
	if err := c.Validate(); err != nil {
		return Money{}, err
	}
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountInput {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") || strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() || integerDigits(d) > maxIntegerDigits {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d.Round(c.Places()), Currency: c}, nil
}

// integerDigits counts the digits left of the decimal point.
func integerDigits(d decimal.Decimal) int {
	if d.IsZero() {
		return 0
	}
	return d.NumDigits() + int(d.Exponent())
}

// Validate checks the currency and that the amount is not negative.
func (m Money) Validate() error {
	if err := m.Currency.Validate(); err != nil {
		return err
	}
	if m.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m+o. Both operands must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m-o. Both operands must share a currency.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// Cmp compares two amounts of the same currency (-1, 0, +1).
func (m Money) Cmp(o Money) (int, error) {
	if m.Currency != o.Currency {
		return 0, ErrCurrencyMismatch
	}
	return m.Amount.Cmp(o.Amount), nil
}

// Neg flips the sign.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Abs drops the sign.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.Amount.IsNegative() {
		return Zero(m.Currency)
	}
	return m
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// Ratio returns m/of as an exact decimal. The divisor must be positive.
func (m Money) Ratio(of Money) (decimal.Decimal, error) {
	if m.Currency != of.Currency {
		return decimal.Zero, ErrCurrencyMismatch
	}
	if !of.Amount.IsPositive() {
		return decimal.Zero, ErrInvalidLimit
	}
	return m.Amount.Div(of.Amount), nil
}

// Percent returns m as a percentage of of, rounded to two places.
func (m Money) Percent(of Money) (decimal.Decimal, error) {
	r, err := m.Ratio(of)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Mul(decimal.NewFromInt(100)).Round(2), nil
}

// String formats the value as "USD 12.34".
func (m Money) String() string {
	return string(m.Currency) + " " + m.Amount.StringFixed(m.Currency.Places())
}

// Sum adds all values; an empty slice sums to zero in currency c.
func Sum(c Currency, values ...Money) (Money, error) {
	total := Zero(c)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
