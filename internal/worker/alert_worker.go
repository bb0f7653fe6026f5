package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/notify"
)

// Consumer delivers budget alert messages to a handler until ctx is done.
type Consumer interface {
	ConsumeBudgetAlerts(ctx context.Context, handler func(context.Context, *amqp.BudgetAlertMessage) error) error
}

// AlertWorker turns queued budget alert messages into emails.
type AlertWorker struct {
	consumer Consumer
	notifier notify.Notifier
}

func NewAlertWorker(consumer Consumer, notifier notify.Notifier) *AlertWorker {
	return &AlertWorker{consumer: consumer, notifier: notifier}
}

// Run blocks consuming messages until ctx is cancelled.
func (w *AlertWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Alert worker started", log.FieldComponent, log.ComponentWorker)
	err := w.consumer.ConsumeBudgetAlerts(ctx, w.HandleAlertMessage)
	if ctx.Err() != nil {
		slog.InfoContext(ctx, "Alert worker stopped", log.FieldComponent, log.ComponentWorker)
		return nil
	}
	return err
}

// HandleAlertMessage sends one alert. A returned error requeues the message,
// so messages that can never be delivered are dropped with a warning instead.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	slog.InfoContext(ctx, "Processing budget alert message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, msg.MessageID,
		log.FieldOwnerID, msg.OwnerID,
		log.FieldBudgetID, msg.BudgetID,
		log.FieldLevel, msg.Level)

	if msg.Email == "" {
		slog.WarnContext(ctx, "Dropping budget alert without recipient",
			log.FieldComponent, log.ComponentWorker,
			log.FieldMessageID, msg.MessageID,
			log.FieldOwnerID, msg.OwnerID)
		return nil
	}

	if err := w.notifier.NotifyBudgetAlert(ctx, notify.FromMessage(msg)); err != nil {
		if errors.Is(err, notify.ErrInvalidAddress) {
			slog.WarnContext(ctx, "Dropping undeliverable budget alert",
				log.FieldComponent, log.ComponentWorker,
				log.FieldMessageID, msg.MessageID,
				log.FieldError, err)
			return nil
		}
		return fmt.Errorf("send budget alert %s: %w", msg.MessageID, err)
	}

	slog.InfoContext(ctx, "Budget alert delivered",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, msg.MessageID,
		log.FieldBudgetID, msg.BudgetID)
	return nil
}
