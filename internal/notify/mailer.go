package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/mail"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"
)

// Mailer sends a rendered email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// LogMailer writes emails to the log instead of sending them. Development default.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, e Email) error {
	slog.InfoContext(ctx, "Email (log backend)",
		"from", e.From,
		"to", e.To,
		"subject", e.Subject,
		"body", e.Body)
	return nil
}

// GmailMailer sends through the Gmail API as Sender, using a service account
// with domain-wide delegation.
type GmailMailer struct {
	svc    *gmail.Service
	sender string
}

// GmailConfig holds the service account credentials; JSON wins over File.
type GmailConfig struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	Sender             string
}

func NewGmailMailer(ctx context.Context, cfg GmailConfig) (*GmailMailer, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.ServiceAccountFile)
		credentialsJSON, err = os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, errors.New("missing GMAIL_SENDER")
	}

	jwtCfg, err := google.JWTConfigFromJSON(credentialsJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	jwtCfg.Subject = cfg.Sender

	svc, err := gmail.NewService(ctx, goption.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	slog.InfoContext(ctx, "Gmail service created successfully", "sender", cfg.Sender)
	return &GmailMailer{svc: svc, sender: cfg.Sender}, nil
}

func (m *GmailMailer) Send(ctx context.Context, e Email) error {
	from := e.From
	if from == "" {
		from = m.sender
	}
	msg, err := buildMIME(from, e)
	if err != nil {
		return err
	}
	raw := base64.URLEncoding.EncodeToString(msg)
	_, err = m.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}

// buildMIME renders a plain-text RFC 5322 message. Addresses must parse as
// single mailboxes and the subject is RFC 2047 encoded, so no header value can
// introduce another header line.
func buildMIME(from string, e Email) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", ErrInvalidAddress, from, err)
	}
	toAddr, err := mail.ParseAddress(e.To)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidAddress, e.To, err)
	}

	var b strings.Builder
	b.WriteString("From: " + fromAddr.String() + "\r\n")
	b.WriteString("To: " + toAddr.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", e.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(e.Body, "\n", "\r\n"))
	return []byte(b.String()), nil
}
