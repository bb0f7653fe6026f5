package core

import "errors"

// Validation and lookup failures surfaced to callers as-is.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidLimit       = errors.New("invalid budget limit")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrOwnershipViolation = errors.New("ownership violation")
	ErrNotFound           = errors.New("not found")

	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidPeriod    = errors.New("invalid budget period")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidThreshold = errors.New("invalid alert threshold")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrDuplicate        = errors.New("already exists")
	ErrInvalidField     = errors.New("invalid field")
)
