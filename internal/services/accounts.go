package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var ErrWeakPassword = errors.New("password must be at least 8 characters")

type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	Password  string
	Currency  core.Currency
}

type ProfileInput struct {
	DefaultCurrency      core.Currency
	BudgetAlertEmail     bool
	BudgetAlertThreshold int
}

type AccountService struct {
	store           ports.UserStore
	categories      *CategoryService
	defaultCurrency core.Currency
	cost            int
}

func NewAccountService(store ports.UserStore, categories *CategoryService, defaultCurrency core.Currency) *AccountService {
	return &AccountService{
		store:           store,
		categories:      categories,
		defaultCurrency: defaultCurrency,
		cost:            bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *AccountService) WithCost(cost int) *AccountService {
	s.cost = cost
	return s
}

// Register creates the user and its profile in one storage transaction, then
// seeds the default categories.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	u := core.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if len(in.Password) < minPasswordLength {
		return core.User{}, ErrWeakPassword
	}

	currency := in.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	profile := core.DefaultProfile(0, currency)
	if err := profile.Validate(); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	created, err := s.store.CreateUserWithProfile(ctx, u, profile)
	if err != nil {
		return core.User{}, err
	}

	if s.categories != nil {
		if err := s.categories.SeedDefaults(ctx, created.ID); err != nil {
			return created, err
		}
	}
	return created, nil
}

// Authenticate returns ErrNotFound for an unknown user or a wrong password alike.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return core.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *AccountService) User(ctx context.Context, owner int64) (core.User, error) {
	return s.store.GetUser(ctx, owner)
}

// Profile returns the stored profile, or the defaults when none exists.
func (s *AccountService) Profile(ctx context.Context, owner int64) (core.UserProfile, error) {
	return profileOrDefault(ctx, s.store, owner, s.defaultCurrency)
}

func (s *AccountService) UpdateProfile(ctx context.Context, owner int64, in ProfileInput) (core.UserProfile, error) {
	p := core.UserProfile{
		UserID:               owner,
		DefaultCurrency:      in.DefaultCurrency,
		BudgetAlertEmail:     in.BudgetAlertEmail,
		BudgetAlertThreshold: in.BudgetAlertThreshold,
	}
	if err := p.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return core.UserProfile{}, err
	}
	return p, nil
}

func profileOrDefault(ctx context.Context, store ports.UserStore, owner int64, currency core.Currency) (core.UserProfile, error) {
	p, err := store.GetProfile(ctx, owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultProfile(owner, currency), nil
	}
	return p, err
}
