package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		Mail: MailConfig{
			Backend:                  appConfig.MailBackend,
			From:                     appConfig.MailFrom,
			GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
			GmailSender:              appConfig.GmailSender,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	if c.AMQPURL == "" {
		return c.Mail.Validate()
	}
	return nil
}

// Validate checks that the selected mailer has what it needs
func (m MailConfig) Validate() error {
	switch m.Backend {
	case config.MailLog, "":
		return nil
	case config.MailGmail:
		if m.GoogleServiceAccountJSON == "" && m.GoogleServiceAccountFile == "" {
			return errors.New("gmail mailer requires service account credentials")
		}
		if m.GmailSender == "" {
			return errors.New("gmail mailer requires a sender")
		}
		return nil
	default:
		return fmt.Errorf("unsupported mail backend: %s", m.Backend)
	}
}
