package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/ports"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With(log.FieldComponent, log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(cfg)
	if err != nil {
		return nil, err
	}

	notifier, closeNotifier, err := f.createNotifier(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Result{
		Store:    store,
		Notifier: notifier,
		Cleanup: func() error {
			return errors.Join(closeNotifier(), store.Close())
		},
	}, nil
}

func (f *DefaultFactory) createStore(cfg Config) (ports.Store, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// createNotifier queues alerts on AMQP when configured and otherwise mails
// them in-process. A broker that is down at startup degrades to direct mail.
func (f *DefaultFactory) createNotifier(ctx context.Context, cfg Config) (notify.Notifier, func() error, error) {
	noop := func() error { return nil }

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err == nil {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			return notify.NewAMQPNotifier(client), client.Close, nil
		}
		f.logger.Warn("Failed to initialize AMQP client, sending alerts directly", "error", err)
		if err := cfg.Mail.Validate(); err != nil {
			return nil, nil, err
		}
	}

	mailer, err := NewMailer(ctx, cfg.Mail)
	if err != nil {
		return nil, nil, err
	}
	f.logger.Info("Alerts will be mailed directly", "mail_backend", cfg.Mail.Backend)
	return notify.NewMailNotifier(mailer, cfg.Mail.From), noop, nil
}

// NewMailer builds the configured Mailer.
func NewMailer(ctx context.Context, cfg MailConfig) (notify.Mailer, error) {
	switch cfg.Backend {
	case config.MailLog, "":
		return notify.LogMailer{}, nil
	case config.MailGmail:
		m, err := notify.NewGmailMailer(ctx, notify.GmailConfig{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			Sender:             cfg.GmailSender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gmail mailer: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported mail backend: %s", cfg.Backend)
	}
}
