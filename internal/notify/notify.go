// Package notify delivers budget alerts. Delivery failures are the caller's
// to log; nothing here retries on its own.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// ErrInvalidAddress marks a sender or recipient that can never be delivered to.
var ErrInvalidAddress = errors.New("invalid email address")

// BudgetAlert is one alert that won deduplication for (owner, budget, period, level).
type BudgetAlert struct {
	OwnerID      int64
	Email        string
	Name         string
	BudgetID     int64
	BudgetName   string
	Level        core.AlertLevel
	UsagePercent decimal.Decimal
	Spent        core.Money
	Limit        core.Money
	Remaining    core.Money
	PeriodStart  core.Date
}

// Notifier hands an alert to a delivery channel.
type Notifier interface {
	NotifyBudgetAlert(ctx context.Context, a BudgetAlert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a BudgetAlert) error

func (f NotifierFunc) NotifyBudgetAlert(ctx context.Context, a BudgetAlert) error {
	return f(ctx, a)
}

// Email is a plain-text message.
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

const signature = "-- Finance Tracker"

// Render builds the alert email. Exceeded alerts report the overrun, warnings
// the remaining headroom.
func Render(a BudgetAlert) (subject, body string) {
	subject = "Budget Alert: " + a.BudgetName

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", a.Name)
	if a.Level == core.LevelExceeded {
		fmt.Fprintf(&b, "You have EXCEEDED your budget for '%s'!\n\n", a.BudgetName)
		fmt.Fprintf(&b, "Budget: %s\n", a.Limit)
		fmt.Fprintf(&b, "Spent: %s\n", a.Spent)
		fmt.Fprintf(&b, "Over by: %s\n\n", a.Remaining.Abs())
		b.WriteString("Consider reviewing your spending or increasing your budget.\n\n")
	} else {
		fmt.Fprintf(&b, "You've used %s%% of your '%s' budget.\n\n", a.UsagePercent.StringFixed(0), a.BudgetName)
		fmt.Fprintf(&b, "Budget: %s\n", a.Limit)
		fmt.Fprintf(&b, "Spent: %s\n", a.Spent)
		fmt.Fprintf(&b, "Remaining: %s\n\n", a.Remaining)
	}
	b.WriteString(signature)
	return subject, b.String()
}
