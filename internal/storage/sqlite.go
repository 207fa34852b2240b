package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Tiliavir/time-tracker-server/internal/model"
)

// SQLite implements Store on a SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.RWMutex
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		color      TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		category_id TEXT,
		name        TEXT NOT NULL,
		description TEXT,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS timers (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		project_id  TEXT NOT NULL,
		name        TEXT NOT NULL,
		start_time  INTEGER NOT NULL,
		end_time    INTEGER,
		is_paused   INTEGER NOT NULL DEFAULT 0,
		paused_at   INTEGER,
		total_pause INTEGER NOT NULL DEFAULT 0,
		is_paid     INTEGER NOT NULL DEFAULT 0,
		external_id TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_timers_user_start ON timers (user_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects (user_id)`,
}

// OpenSQLite opens (and migrates) the SQLite database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't handle multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// migrate applies every migration newer than the recorded schema version.
func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			i+1, time.Now().UnixNano()); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks if the database is accessible.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ============================================================================
// Users
// ============================================================================

func (s *SQLite) CreateUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixNano())
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	return err
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userByEmail(ctx, s.db, email)
}

func (s *SQLite) userByEmail(ctx context.Context, q querier, email string) (model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func (s *SQLite) SetPasswordHash(ctx context.Context, email, hash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE email = ?`, hash, email)
	if err != nil {
		return model.User{}, err
	}
	if err := requireAffected(res, "user "+email); err != nil {
		return model.User{}, err
	}
	return s.userByEmail(ctx, s.db, email)
}

// ============================================================================
// Categories
// ============================================================================

func (s *SQLite) CreateCategory(ctx context.Context, c model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Color, c.CreatedAt.UnixNano())
	return err
}

func (s *SQLite) ListCategories(ctx context.Context, userID string) ([]model.CategorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.name, c.color, c.created_at,
		       (SELECT COUNT(*) FROM projects p WHERE p.category_id = c.id AND p.user_id = c.user_id)
		FROM categories c
		WHERE c.user_id = ?
		ORDER BY c.created_at, c.rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CategorySummary{}
	for rows.Next() {
		var (
			c       model.CategorySummary
			created int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &created, &c.ProjectCount); err != nil {
			return nil, err
		}
		c.CreatedAt = fromNanos(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteCategory(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "category "+id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE projects SET category_id = NULL WHERE category_id = ? AND user_id = ?`, id, userID)
		return err
	})
}

// ============================================================================
// Projects
// ============================================================================

const projectColumns = `id, user_id, category_id, name, description, created_at`

func scanProject(r scanner) (model.Project, error) {
	var (
		p           model.Project
		categoryID  sql.NullString
		description sql.NullString
		created     int64
	)
	if err := r.Scan(&p.ID, &p.UserID, &categoryID, &p.Name, &description, &created); err != nil {
		return model.Project{}, err
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	if description.Valid {
		p.Description = &description.String
	}
	p.CreatedAt = fromNanos(created)
	return p, nil
}

func (s *SQLite) CreateProject(ctx context.Context, p model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, optString(p.CategoryID), p.Name, optString(p.Description), p.CreatedAt.UnixNano())
	return err
}

func (s *SQLite) GetProject(ctx context.Context, userID, id string) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *SQLite) listProjects(ctx context.Context, userID, categoryID string) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ?`
	args := []any{userID}
	if categoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) ListProjects(ctx context.Context, userID, categoryID string) ([]model.ProjectTimers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects, err := s.listProjects(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	timers, err := s.queryTimers(ctx, `WHERE t.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	return groupByProject(projects, timers, false), nil
}

func (s *SQLite) UpdateProject(ctx context.Context, p model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, category_id = ? WHERE id = ? AND user_id = ?`,
		p.Name, optString(p.Description), optString(p.CategoryID), p.ID, p.UserID)
	if err != nil {
		return err
	}
	return requireAffected(res, "project "+p.ID)
}

func (s *SQLite) DeleteProject(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "project "+id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM timers WHERE project_id = ? AND user_id = ?`, id, userID)
		return err
	})
}

// ============================================================================
// Timers
// ============================================================================

const timerSelect = `SELECT t.id, t.user_id, t.project_id, t.name, t.start_time, t.end_time,
	t.is_paused, t.paused_at, t.total_pause, t.is_paid, t.external_id, t.created_at,
	COALESCE(p.name, '')
	FROM timers t LEFT JOIN projects p ON p.id = t.project_id `

// timerOrder sorts newest first and keeps insertion order for equal starts.
const timerOrder = ` ORDER BY t.start_time DESC, t.rowid`

func scanTimer(r scanner) (model.Timer, error) {
	var (
		t                 model.Timer
		start, created    int64
		endTime, pausedAt sql.NullInt64
		isPaused, isPaid  bool
	)
	if err := r.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.Name, &start, &endTime,
		&isPaused, &pausedAt, &t.TotalPause, &isPaid, &t.ExternalID, &created, &t.ProjectName); err != nil {
		return model.Timer{}, err
	}
	t.StartTime = fromNanos(start)
	t.CreatedAt = fromNanos(created)
	t.IsPaid = isPaid
	t.State = model.StateFromFields(nullTime(endTime), isPaused, nullTime(pausedAt))
	return t, nil
}

func (s *SQLite) queryTimers(ctx context.Context, where string, args ...any) ([]model.Timer, error) {
	rows, err := s.db.QueryContext(ctx, timerSelect+where+timerOrder, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Timer{}
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateTimer(ctx context.Context, t model.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timers (id, user_id, project_id, name, start_time, end_time, is_paused,
			paused_at, total_pause, is_paid, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.ProjectID, t.Name, t.StartTime.UnixNano(), toNanos(t.EndTime()),
		boolInt(t.IsPaused()), toNanos(t.PausedAt()), t.TotalPause, boolInt(t.IsPaid), t.ExternalID, t.CreatedAt.UnixNano())
	return err
}

func (s *SQLite) GetTimer(ctx context.Context, userID, id string) (model.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := scanTimer(s.db.QueryRowContext(ctx, timerSelect+`WHERE t.id = ? AND t.user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Timer{}, fmt.Errorf("timer %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLite) ListTimers(ctx context.Context, userID string) ([]model.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTimers(ctx, `WHERE t.user_id = ?`, userID)
}

func (s *SQLite) ListProjectTimers(ctx context.Context, userID, projectID string) ([]model.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTimers(ctx, `WHERE t.user_id = ? AND t.project_id = ?`, userID, projectID)
}

func (s *SQLite) ProjectTimersSince(ctx context.Context, userID string, since time.Time) ([]model.ProjectTimers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects, err := s.listProjects(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	timers, err := s.queryTimers(ctx, `WHERE t.user_id = ? AND t.start_time >= ?`, userID, since.UnixNano())
	if err != nil {
		return nil, err
	}
	return groupByProject(projects, timers, true), nil
}

func (s *SQLite) MutateTimer(ctx context.Context, userID, id string, fn TimerMutation) (model.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out model.Timer
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanTimer(tx.QueryRowContext(ctx, timerSelect+`WHERE t.id = ? AND t.user_id = ?`, id, userID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("timer %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		next = pinTimer(cur, next)

		_, err = tx.ExecContext(ctx, `
			UPDATE timers SET name = ?, start_time = ?, end_time = ?, is_paused = ?, paused_at = ?,
				total_pause = ?, is_paid = ?
			WHERE id = ? AND user_id = ?`,
			next.Name, next.StartTime.UnixNano(), toNanos(next.EndTime()), boolInt(next.IsPaused()), toNanos(next.PausedAt()),
			next.TotalPause, boolInt(next.IsPaid), id, userID)
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *SQLite) DeleteTimer(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "timer "+id)
}

func (s *SQLite) MarkProjectTimersPaid(ctx context.Context, userID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE timers SET is_paid = 1 WHERE project_id = ? AND user_id = ?`, projectID, userID)
	return err
}

// ============================================================================
// Helpers
// ============================================================================

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// Query arguments are passed as plain driver values: nil, int64 or string.

func toNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
