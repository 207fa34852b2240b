// Package storage persists users, categories, projects and timers.
//
// Every lookup, update and delete is scoped to the owning user: a record
// that exists but belongs to somebody else is reported as ErrNotFound.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/time-tracker-server/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist for the given user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("already exists")
)

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// TimerMutation computes the new state of a timer from its current state.
// Returning an error aborts the mutation without writing.
type TimerMutation func(model.Timer) (model.Timer, error)

// Store defines the persistence operations used by the services.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, u model.User) error
	UserByEmail(ctx context.Context, email string) (model.User, error)
	SetPasswordHash(ctx context.Context, email, hash string) (model.User, error)

	CreateCategory(ctx context.Context, c model.Category) error
	ListCategories(ctx context.Context, userID string) ([]model.CategorySummary, error)
	DeleteCategory(ctx context.Context, userID, id string) error

	CreateProject(ctx context.Context, p model.Project) error
	GetProject(ctx context.Context, userID, id string) (model.Project, error)
	// ListProjects returns the user's projects, oldest first, each with all
	// of its timers newest first. An empty categoryID lists every project.
	ListProjects(ctx context.Context, userID, categoryID string) ([]model.ProjectTimers, error)
	UpdateProject(ctx context.Context, p model.Project) error
	// DeleteProject removes the project and all of its timers.
	DeleteProject(ctx context.Context, userID, id string) error

	CreateTimer(ctx context.Context, t model.Timer) error
	GetTimer(ctx context.Context, userID, id string) (model.Timer, error)
	// ListTimers returns all of the user's timers newest first.
	ListTimers(ctx context.Context, userID string) ([]model.Timer, error)
	ListProjectTimers(ctx context.Context, userID, projectID string) ([]model.Timer, error)
	// ProjectTimersSince groups the user's timers started at or after since
	// by project. Projects without such timers are omitted.
	ProjectTimersSince(ctx context.Context, userID string, since time.Time) ([]model.ProjectTimers, error)
	// MutateTimer reads the timer, applies fn and writes the result back as
	// one atomic step. Name, start, state, pause and paid fields are saved;
	// ID, owner, project, external ID and creation time are fixed.
	MutateTimer(ctx context.Context, userID, id string, fn TimerMutation) (model.Timer, error)
	DeleteTimer(ctx context.Context, userID, id string) error
	MarkProjectTimersPaid(ctx context.Context, userID, projectID string) error
}

// BaseDir returns the root data directory (~/.tttd).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tttd"), nil
}

// Open opens the store for driver at path, creating parent directories.
func Open(driver, path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// groupByProject attaches timers (already ordered) to their projects,
// keeping project order and dropping projects without timers when
// skipEmpty is set.
func groupByProject(projects []model.Project, timers []model.Timer, skipEmpty bool) []model.ProjectTimers {
	byProject := make(map[string][]model.Timer, len(projects))
	for _, t := range timers {
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}
	out := make([]model.ProjectTimers, 0, len(projects))
	for _, p := range projects {
		ts := byProject[p.ID]
		if skipEmpty && len(ts) == 0 {
			continue
		}
		if ts == nil {
			ts = []model.Timer{}
		}
		out = append(out, model.ProjectTimers{Project: p, Timers: ts})
	}
	return out
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Bolt)(nil)
)

// pinTimer restores the fields a TimerMutation may not change.
func pinTimer(cur, next model.Timer) model.Timer {
	next.ID = cur.ID
	next.UserID = cur.UserID
	next.ProjectID = cur.ProjectID
	next.ProjectName = cur.ProjectName
	next.ExternalID = cur.ExternalID
	next.CreatedAt = cur.CreatedAt
	return next
}
