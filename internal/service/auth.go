package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/time-tracker-server/internal/auth"
	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

const minPasswordLength = 6

// Notifier delivers a freshly generated temporary password to its owner.
type Notifier interface {
	TemporaryPassword(ctx context.Context, email, password string) error
}

// LogNotifier writes temporary passwords to the log. It is meant for
// development setups without a mail gateway.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) TemporaryPassword(_ context.Context, email, password string) error {
	n.Log.Warn().Str("email", email).Str("password", password).Msg("temporary password issued")
	return nil
}

// UserRef is the public part of a user.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is returned by Register and Login.
type Session struct {
	User  UserRef `json:"user"`
	Token string  `json:"token"`
}

// Auth registers users and issues access tokens.
type Auth struct {
	store      storage.Store
	tokens     *auth.Tokens
	passwords  *auth.PasswordGenerator
	notifier   Notifier
	clock      Clock
	bcryptCost int
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", invalid("email %q is not valid", email)
	}
	return email, nil
}

// Register creates a user and returns a session for it.
func (a *Auth) Register(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, invalid("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(password, a.bcryptCost)
	if err != nil {
		return Session{}, err
	}
	u := model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    a.clock.Now(),
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Session{}, fmt.Errorf("%w: email already registered", ErrUnauthorized)
		}
		return Session{}, err
	}
	return a.session(u)
}

// Login verifies credentials and returns a session.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	u, err := a.store.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return a.session(u)
}

// ResetPassword replaces the user's password with a generated one and hands
// it to the notifier.
func (a *Auth) ResetPassword(ctx context.Context, email string) (UserRef, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return UserRef{}, err
	}
	password, err := a.passwords.Generate()
	if err != nil {
		return UserRef{}, err
	}
	hash, err := auth.HashPassword(password, a.bcryptCost)
	if err != nil {
		return UserRef{}, err
	}
	u, err := a.store.SetPasswordHash(ctx, email, hash)
	if err != nil {
		return UserRef{}, err
	}
	if err := a.notifier.TemporaryPassword(ctx, u.Email, password); err != nil {
		return UserRef{}, fmt.Errorf("delivering temporary password: %w", err)
	}
	return UserRef{ID: u.ID, Email: u.Email}, nil
}

// Authenticate returns the user ID carried by token.
func (a *Auth) Authenticate(token string) (UserRef, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return UserRef{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return UserRef{ID: claims.Subject, Email: claims.Email}, nil
}

// Lookup resolves a user by email. Local CLI commands use it to act on
// behalf of a user without a token.
func (a *Auth) Lookup(ctx context.Context, email string) (UserRef, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return UserRef{}, err
	}
	u, err := a.store.UserByEmail(ctx, email)
	if err != nil {
		return UserRef{}, err
	}
	return UserRef{ID: u.ID, Email: u.Email}, nil
}

func (a *Auth) session(u model.User) (Session, error) {
	token, err := a.tokens.Issue(u.ID, u.Email, a.clock.Now())
	if err != nil {
		return Session{}, err
	}
	return Session{User: UserRef{ID: u.ID, Email: u.Email}, Token: token}, nil
}
