// Package service implements the time tracker's use cases on top of a
// storage.Store. Each operation reads the clock once and passes that
// instant through to the accounting functions in timecalc.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tiliavir/time-tracker-server/internal/auth"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

var (
	// ErrUnauthorized is returned for bad credentials and tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Options configures New.
type Options struct {
	Clock      Clock
	Tokens     *auth.Tokens
	Passwords  *auth.PasswordGenerator
	Notifier   Notifier
	BcryptCost int
	Log        zerolog.Logger
}

// Services bundles every use case.
type Services struct {
	Auth       *Auth
	Categories *Categories
	Projects   *Projects
	Timers     *Timers
}

// New wires all services to store.
func New(store storage.Store, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Passwords == nil {
		opts.Passwords = auth.NewPasswordGenerator(nil)
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Log: opts.Log}
	}
	return &Services{
		Auth: &Auth{
			store:      store,
			tokens:     opts.Tokens,
			passwords:  opts.Passwords,
			notifier:   opts.Notifier,
			clock:      opts.Clock,
			bcryptCost: opts.BcryptCost,
		},
		Categories: &Categories{store: store, clock: opts.Clock},
		Projects:   &Projects{store: store, clock: opts.Clock},
		Timers:     &Timers{store: store, clock: opts.Clock, log: opts.Log},
	}
}

func newID() string {
	return uuid.NewString()
}

// optionalText trims s and turns empty strings into nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
