package core

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"

	Monthly Period = "month"
	Yearly  Period = "year"
)

const (
	// DefaultAlertThreshold is the usage percentage at which a budget turns to warning.
	DefaultAlertThreshold = 80

	maxDescription = 255
	maxName        = 100
)

type (
	// Kind is the direction of a transaction or category.
	Kind string

	// Period is the recurrence window of a budget.
	Period string

	Date struct {
		time.Time
	}

	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		FirstName    string    `json:"first_name,omitempty"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	UserProfile struct {
		UserID               int64    `json:"user_id"`
		DefaultCurrency      Currency `json:"default_currency"`
		BudgetAlertEmail     bool     `json:"budget_alert_email"`
		BudgetAlertThreshold int      `json:"budget_alert_threshold"`
	}

	Category struct {
		ID        int64     `json:"id"`
		OwnerID   int64     `json:"owner_id"`
		Name      string    `json:"name"`
		Kind      Kind      `json:"kind"`
		Icon      string    `json:"icon,omitempty"`
		Color     string    `json:"color,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Transaction is a single income or expense event. Amount is always a
	// magnitude; direction comes from Kind and IsRefund.
	Transaction struct {
		ID         int64  `json:"id"`
		OwnerID    int64  `json:"owner_id"`
		CategoryID *int64 `json:"category_id"`
		// CategoryName and CategoryColor are resolved at read time and empty when the category is gone.
		CategoryName  string    `json:"category_name,omitempty"`
		CategoryColor string    `json:"category_color,omitempty"`
		Amount        Money     `json:"amount"`
		Kind          Kind      `json:"kind"`
		IsRefund      bool      `json:"is_refund"`
		Date          Date      `json:"date"`
		Description   string    `json:"description"`
		Notes         string    `json:"notes,omitempty"`
		Receipt       string    `json:"receipt,omitempty"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	// Budget is a spending ceiling for one expense category, or for all
	// expenses when CategoryID is nil.
	Budget struct {
		ID           int64     `json:"id"`
		OwnerID      int64     `json:"owner_id"`
		CategoryID   *int64    `json:"category_id"`
		CategoryName string    `json:"category_name,omitempty"`
		Name         string    `json:"name,omitempty"`
		Limit        Money     `json:"limit"`
		Period       Period    `json:"period"`
		StartDate    Date      `json:"start_date"`
		Notes        string    `json:"notes,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (p Period) Validate() error {
	switch p {
	case Monthly, Yearly:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DisplayName prefers the first name over the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FirstName) != "" {
		return u.FirstName
	}
	return u.Username
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyName
	}
	if len(u.Username) > 150 {
		return fmt.Errorf("%w: username too long (max 150 characters)", ErrInvalidField)
	}
	if hasLineBreak(u.Username) || hasLineBreak(u.FirstName) {
		return fmt.Errorf("%w: names must be a single line", ErrInvalidField)
	}
	if u.Email != "" {
		addr, err := mail.ParseAddress(u.Email)
		if err != nil || addr.Address != u.Email {
			return fmt.Errorf("%w: invalid email address", ErrInvalidField)
		}
	}
	return nil
}

// hasLineBreak reports CR or LF, which would split a mail header.
func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// DefaultProfile is the profile created alongside every new user.
func DefaultProfile(userID int64, currency Currency) UserProfile {
	if currency == "" {
		currency = USD
	}
	return UserProfile{
		UserID:               userID,
		DefaultCurrency:      currency,
		BudgetAlertEmail:     true,
		BudgetAlertThreshold: DefaultAlertThreshold,
	}
}

func (p UserProfile) Validate() error {
	if err := p.DefaultCurrency.Validate(); err != nil {
		return err
	}
	if p.BudgetAlertThreshold < 1 || p.BudgetAlertThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > maxName {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrInvalidField)
	}
	if hasLineBreak(c.Name) {
		return fmt.Errorf("%w: name must be a single line", ErrInvalidField)
	}
	if c.Color != "" && (len(c.Color) != 7 || c.Color[0] != '#') {
		return fmt.Errorf("%w: color must be a hex value like #4CAF50", ErrInvalidField)
	}
	return c.Kind.Validate()
}

// EffectiveAmount is the amount with the refund reversal applied, before the
// income/expense sign.
func (t Transaction) EffectiveAmount() Money {
	if t.IsRefund {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SignedAmount is positive for money coming in and negative for money going
// out: income +, expense -, both flipped for refunds.
func (t Transaction) SignedAmount() Money {
	if t.Kind == Income {
		return t.EffectiveAmount()
	}
	return t.EffectiveAmount().Neg()
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescription {
		return fmt.Errorf("%w: description too long (max 255 characters)", ErrInvalidField)
	}
	return nil
}

// IsGlobal reports whether the budget covers every expense category.
func (b Budget) IsGlobal() bool {
	return b.CategoryID == nil
}

// Label is the name shown to the user for this budget.
func (b Budget) Label() string {
	switch {
	case strings.TrimSpace(b.Name) != "":
		return b.Name
	case b.CategoryName != "":
		return b.CategoryName
	default:
		return "All expenses"
	}
}

func (b Budget) Validate() error {
	if err := b.Limit.Currency.Validate(); err != nil {
		return err
	}
	if !b.Limit.Amount.IsPositive() {
		return ErrInvalidLimit
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if len(b.Name) > maxName {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrInvalidField)
	}
	if hasLineBreak(b.Name) {
		return fmt.Errorf("%w: name must be a single line", ErrInvalidField)
	}
	return nil
}

// PeriodAt returns the half-open window [start, end) of the calendar month or
// year containing at. The window never starts before StartDate; when at falls
// before StartDate the first period is returned.
func (b Budget) PeriodAt(at time.Time) (start, end time.Time) {
	day := DateOf(at).Time
	if day.Before(b.StartDate.Time) {
		day = b.StartDate.Time
	}
	switch b.Period {
	case Yearly:
		start = time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	default:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}
	if start.Before(b.StartDate.Time) {
		start = b.StartDate.Time
	}
	return start, end
}
