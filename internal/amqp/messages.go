package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetAlertMessage carries everything the worker needs to render an alert
// email, so delivery never reads back from the database.
type BudgetAlertMessage struct {
	MessageID    string          `json:"message_id"`
	OwnerID      int64           `json:"owner_id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	BudgetID     int64           `json:"budget_id"`
	BudgetName   string          `json:"budget_name"`
	Level        core.AlertLevel `json:"level"`
	UsagePercent decimal.Decimal `json:"usage_percent"`
	Spent        core.Money      `json:"spent"`
	Limit        core.Money      `json:"limit"`
	Remaining    core.Money      `json:"remaining"`
	PeriodStart  core.Date       `json:"period_start"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewBudgetAlertMessage stamps a fresh message id and timestamp.
func NewBudgetAlertMessage(m BudgetAlertMessage) *BudgetAlertMessage {
	m.MessageID = uuid.NewString()
	m.Timestamp = time.Now()
	return &m
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
