package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"fintrack/internal/amqp"
)

// Publisher is the slice of amqp.Client the AMQP notifier needs.
type Publisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AMQPNotifier queues alerts for the notifier worker.
type AMQPNotifier struct {
	publisher Publisher
}

func NewAMQPNotifier(p Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

func (n *AMQPNotifier) NotifyBudgetAlert(ctx context.Context, a BudgetAlert) error {
	if n.publisher == nil {
		return errors.New("amqp publisher not configured")
	}
	return n.publisher.PublishBudgetAlert(ctx, ToMessage(a))
}

// MailNotifier renders and sends alerts in-process.
type MailNotifier struct {
	mailer Mailer
	from   string
}

func NewMailNotifier(m Mailer, from string) *MailNotifier {
	return &MailNotifier{mailer: m, from: from}
}

func (n *MailNotifier) NotifyBudgetAlert(ctx context.Context, a BudgetAlert) error {
	if a.Email == "" {
		return fmt.Errorf("%w: recipient has no email address", ErrInvalidAddress)
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidAddress, a.Email, err)
	}
	subject, body := Render(a)
	return n.mailer.Send(ctx, Email{From: n.from, To: a.Email, Subject: subject, Body: body})
}

// ToMessage converts an alert into its wire form.
func ToMessage(a BudgetAlert) *amqp.BudgetAlertMessage {
	return amqp.NewBudgetAlertMessage(amqp.BudgetAlertMessage{
		OwnerID:      a.OwnerID,
		Email:        a.Email,
		Name:         a.Name,
		BudgetID:     a.BudgetID,
		BudgetName:   a.BudgetName,
		Level:        a.Level,
		UsagePercent: a.UsagePercent,
		Spent:        a.Spent,
		Limit:        a.Limit,
		Remaining:    a.Remaining,
		PeriodStart:  a.PeriodStart,
	})
}

// FromMessage is the inverse of ToMessage.
func FromMessage(m *amqp.BudgetAlertMessage) BudgetAlert {
	return BudgetAlert{
		OwnerID:      m.OwnerID,
		Email:        m.Email,
		Name:         m.Name,
		BudgetID:     m.BudgetID,
		BudgetName:   m.BudgetName,
		Level:        m.Level,
		UsagePercent: m.UsagePercent,
		Spent:        m.Spent,
		Limit:        m.Limit,
		Remaining:    m.Remaining,
		PeriodStart:  m.PeriodStart,
	}
}
