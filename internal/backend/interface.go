package backend

import (
	"context"

	"fintrack/internal/notify"
	"fintrack/internal/ports"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// Result bundles the store and the alert notifier built from config
type Result struct {
	Store    ports.Store
	Notifier notify.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Alert delivery; AMQP wins when AMQPURL is set
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	Mail         MailConfig
}

// MailConfig selects and configures the Mailer
type MailConfig struct {
	Backend                  string
	From                     string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GmailSender              string
}

// BackendType represents the type of storage backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
