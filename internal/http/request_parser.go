package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 100
	maxListLimit     = 1000
)

// decodeJSON reads a single JSON object from the body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

// queryInt returns the integer query value or def when absent.
func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return n, nil
}

func queryCurrency(q url.Values) (core.Currency, error) {
	v := strings.TrimSpace(q.Get("currency"))
	if v == "" {
		return "", nil
	}
	return core.ParseCurrency(v)
}

// parseMonthParams reads year and month, defaulting to the month containing now.
func parseMonthParams(q url.Values, now time.Time) (year, month int, err error) {
	if year, err = queryInt(q, "year", now.Year()); err != nil {
		return 0, 0, err
	}
	if month, err = queryInt(q, "month", int(now.Month())); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// parseFilter builds a ledger filter from the query string. category=none
// selects uncategorized rows.
func parseFilter(q url.Values) (services.Filter, error) {
	var f services.Filter

	switch c := strings.TrimSpace(q.Get("category")); c {
	case "":
	case "none":
		f.Uncategorized = true
	default:
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: category must be an id or none", errBadRequest)
		}
		f.CategoryID = &id
	}

	if k := strings.TrimSpace(q.Get("kind")); k != "" {
		f.Kind = core.Kind(strings.ToLower(k))
		if err := f.Kind.Validate(); err != nil {
			return f, err
		}
	}

	if v := strings.TrimSpace(q.Get("refund")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("%w: refund must be true or false", errBadRequest)
		}
		f.IsRefund = &b
	}

	c, err := queryCurrency(q)
	if err != nil {
		return f, err
	}
	f.Currency = c

	for key, dst := range map[string]**core.Date{"from": &f.From, "to": &f.To} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			d, err := core.ParseDate(v)
			if err != nil {
				return f, err
			}
			*dst = &d
		}
	}

	bound := f.Currency
	if bound == "" {
		bound = core.USD
	}
	for key, dst := range map[string]**decimal.Decimal{"min_amount": &f.MinAmount, "max_amount": &f.MaxAmount} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			m, err := core.ParseMoney(v, bound)
			if err != nil {
				return f, fmt.Errorf("%w: %s must be a non-negative amount", errBadRequest, key)
			}
			*dst = &m.Amount
		}
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return f, fmt.Errorf("%w: min_amount is above max_amount", errBadRequest)
	}
	return f, nil
}

func parseLimit(q url.Values) (int, error) {
	n, err := queryInt(q, "limit", defaultListLimit)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > maxListLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, maxListLimit)
	}
	return n, nil
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Password  string `json:"password"`
	Currency  string `json:"currency"`
}

func (req registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		Username:  req.Username,
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		Password:  req.Password,
		Currency:  core.Currency(strings.ToUpper(strings.TrimSpace(req.Currency))),
	}
}

// profileRequest is a partial update; absent fields keep their value.
type profileRequest struct {
	DefaultCurrency      *string `json:"default_currency"`
	BudgetAlertEmail     *bool   `json:"budget_alert_email"`
	BudgetAlertThreshold *int    `json:"budget_alert_threshold"`
}

func (req profileRequest) apply(p core.UserProfile) services.ProfileInput {
	in := services.ProfileInput{
		DefaultCurrency:      p.DefaultCurrency,
		BudgetAlertEmail:     p.BudgetAlertEmail,
		BudgetAlertThreshold: p.BudgetAlertThreshold,
	}
	if req.DefaultCurrency != nil {
		in.DefaultCurrency = core.Currency(strings.ToUpper(strings.TrimSpace(*req.DefaultCurrency)))
	}
	if req.BudgetAlertEmail != nil {
		in.BudgetAlertEmail = *req.BudgetAlertEmail
	}
	if req.BudgetAlertThreshold != nil {
		in.BudgetAlertThreshold = *req.BudgetAlertThreshold
	}
	return in
}

type categoryRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (req categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:  req.Name,
		Kind:  core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Icon:  strings.TrimSpace(req.Icon),
		Color: strings.TrimSpace(req.Color),
	}
}

// transactionRequest accepts the amount as a JSON number or string. Currency
// falls back to the owner's default and date to today.
type transactionRequest struct {
	CategoryID  *int64      `json:"category_id"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Kind        string      `json:"kind"`
	IsRefund    bool        `json:"is_refund"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Notes       string      `json:"notes"`
	Receipt     string      `json:"receipt"`
}

func (req transactionRequest) input(def core.Currency, today time.Time) (services.TransactionInput, error) {
	amount, err := parseAmount(req.Amount, req.Currency, def)
	if err != nil {
		return services.TransactionInput{}, err
	}
	date := core.DateOf(today)
	if strings.TrimSpace(req.Date) != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			return services.TransactionInput{}, err
		}
	}
	return services.TransactionInput{
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Kind:        core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		IsRefund:    req.IsRefund,
		Date:        date,
		Description: req.Description,
		Notes:       req.Notes,
		Receipt:     req.Receipt,
	}, nil
}

// budgetRequest mirrors transactionRequest; period defaults to month and
// start_date to the first day of the current month.
type budgetRequest struct {
	CategoryID *int64      `json:"category_id"`
	Name       string      `json:"name"`
	Limit      json.Number `json:"limit"`
	Currency   string      `json:"currency"`
	Period     string      `json:"period"`
	StartDate  string      `json:"start_date"`
	Notes      string      `json:"notes"`
}

func (req budgetRequest) input(def core.Currency, today time.Time) (services.BudgetInput, error) {
	limit, err := parseAmount(req.Limit, req.Currency, def)
	if err != nil {
		return services.BudgetInput{}, err
	}
	period := core.Period(strings.ToLower(strings.TrimSpace(req.Period)))
	if period == "" {
		period = core.Monthly
	}
	start := core.NewDate(today.Year(), int(today.Month()), 1)
	if strings.TrimSpace(req.StartDate) != "" {
		if start, err = core.ParseDate(req.StartDate); err != nil {
			return services.BudgetInput{}, err
		}
	}
	return services.BudgetInput{
		CategoryID: req.CategoryID,
		Name:       strings.TrimSpace(req.Name),
		Limit:      limit,
		Period:     period,
		StartDate:  start,
		Notes:      req.Notes,
	}, nil
}

func parseAmount(n json.Number, currency string, def core.Currency) (core.Money, error) {
	c := def
	if strings.TrimSpace(currency) != "" {
		var err error
		if c, err = core.ParseCurrency(currency); err != nil {
			return core.Money{}, err
		}
	}
	return core.ParseMoney(n.String(), c)
}
