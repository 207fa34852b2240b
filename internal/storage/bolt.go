package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Tiliavir/time-tracker-server/internal/model"
)

const (
	boltBucketUsers      = "users"       // key: id -> boltUser JSON
	boltBucketUserEmails = "user_emails" // key: email -> user id
	boltBucketCategories = "categories"  // key: id -> boltCategory JSON
	boltBucketProjects   = "projects"    // key: id -> boltProject JSON
	boltBucketTimers     = "timers"      // key: id -> boltTimer JSON
)

var boltBuckets = []string{
	boltBucketUsers,
	boltBucketUserEmails,
	boltBucketCategories,
	boltBucketProjects,
	boltBucketTimers,
}

// Records carry the bucket sequence number so listings can keep insertion
// order for ties.

type boltUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type boltCategory struct {
	Seq      uint64         `json:"seq"`
	Category model.Category `json:"category"`
}

type boltProject struct {
	Seq     uint64        `json:"seq"`
	Project model.Project `json:"project"`
}

type boltTimer struct {
	Seq   uint64      `json:"seq"`
	Timer model.Timer `json:"timer"`
}

// Bolt implements Store on a bbolt key/value file.
type Bolt struct {
	storage *bbolt.DB
}

// OpenBolt opens the Bolt database at path, creating the buckets.
func OpenBolt(path string) (*Bolt, error) {
	instance, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := instance.Update(func(tx *bbolt.Tx) error {
		for _, name := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = instance.Close()
		return nil, err
	}

	return &Bolt{storage: instance}, nil
}

// Ping checks if the database is accessible.
func (b *Bolt) Ping(context.Context) error {
	return b.storage.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(boltBucketTimers)) == nil {
			return fmt.Errorf("bucket %s missing", boltBucketTimers)
		}
		return nil
	})
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.storage.Close()
}

func getJSON(bucket *bbolt.Bucket, key string, v any) (bool, error) {
	data := bucket.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func putJSON(bucket *bbolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return bucket.Put([]byte(key), data)
}

// ============================================================================
// Users
// ============================================================================

func (b *Bolt) CreateUser(_ context.Context, u model.User) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket([]byte(boltBucketUserEmails))
		if emails.Get([]byte(u.Email)) != nil {
			return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
		}
		if err := emails.Put([]byte(u.Email), []byte(u.ID)); err != nil {
			return err
		}
		return putJSON(tx.Bucket([]byte(boltBucketUsers)), u.ID, boltUser{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt,
		})
	})
}

func userByEmail(tx *bbolt.Tx, email string) (boltUser, error) {
	id := tx.Bucket([]byte(boltBucketUserEmails)).Get([]byte(email))
	if id == nil {
		return boltUser{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	var u boltUser
	ok, err := getJSON(tx.Bucket([]byte(boltBucketUsers)), string(id), &u)
	if err != nil {
		return boltUser{}, err
	}
	if !ok {
		return boltUser{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, nil
}

func (u boltUser) model() model.User {
	return model.User{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
}

func (b *Bolt) UserByEmail(_ context.Context, email string) (model.User, error) {
	var u boltUser
	err := b.storage.View(func(tx *bbolt.Tx) error {
		var err error
		u, err = userByEmail(tx, email)
		return err
	})
	return u.model(), err
}

func (b *Bolt) SetPasswordHash(_ context.Context, email, hash string) (model.User, error) {
	var u boltUser
	err := b.storage.Update(func(tx *bbolt.Tx) error {
		var err error
		u, err = userByEmail(tx, email)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		return putJSON(tx.Bucket([]byte(boltBucketUsers)), u.ID, u)
	})
	return u.model(), err
}

// ============================================================================
// Categories
// ============================================================================

func (b *Bolt) CreateCategory(_ context.Context, c model.Category) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketCategories))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return putJSON(bucket, c.ID, boltCategory{Seq: seq, Category: c})
	})
}

func (b *Bolt) ListCategories(_ context.Context, userID string) ([]model.CategorySummary, error) {
	var records []boltCategory
	counts := map[string]int{}

	err := b.storage.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(boltBucketCategories)).ForEach(func(_, v []byte) error {
			var rec boltCategory
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Category.UserID == userID {
				records = append(records, rec)
			}
			return nil
		}); err != nil {
			return err
		}

		projects, err := userProjects(tx, userID, "")
		if err != nil {
			return err
		}
		for _, p := range projects {
			if p.Project.CategoryID != nil {
				counts[*p.Project.CategoryID]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	out := make([]model.CategorySummary, 0, len(records))
	for _, rec := range records {
		out = append(out, model.CategorySummary{Category: rec.Category, ProjectCount: counts[rec.Category.ID]})
	}
	return out, nil
}

func (b *Bolt) DeleteCategory(_ context.Context, userID, id string) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		categories := tx.Bucket([]byte(boltBucketCategories))
		var rec boltCategory
		ok, err := getJSON(categories, id, &rec)
		if err != nil {
			return err
		}
		if !ok || rec.Category.UserID != userID {
			return fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		if err := categories.Delete([]byte(id)); err != nil {
			return err
		}

		projects, err := userProjects(tx, userID, id)
		if err != nil {
			return err
		}
		bucket := tx.Bucket([]byte(boltBucketProjects))
		for _, p := range projects {
			p.Project.CategoryID = nil
			if err := putJSON(bucket, p.Project.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// ============================================================================
// Projects
// ============================================================================

// userProjects returns the user's projects in insertion order, optionally
// limited to one category.
func userProjects(tx *bbolt.Tx, userID, categoryID string) ([]boltProject, error) {
	var out []boltProject
	err := tx.Bucket([]byte(boltBucketProjects)).ForEach(func(_, v []byte) error {
		var rec boltProject
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		if rec.Project.UserID != userID {
			return nil
		}
		if categoryID != "" && (rec.Project.CategoryID == nil || *rec.Project.CategoryID != categoryID) {
			return nil
		}
		out = append(out, rec)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, err
}

func getProject(tx *bbolt.Tx, userID, id string) (boltProject, error) {
	var rec boltProject
	ok, err := getJSON(tx.Bucket([]byte(boltBucketProjects)), id, &rec)
	if err != nil {
		return boltProject{}, err
	}
	if !ok || rec.Project.UserID != userID {
		return boltProject{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (b *Bolt) CreateProject(_ context.Context, p model.Project) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketProjects))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return putJSON(bucket, p.ID, boltProject{Seq: seq, Project: p})
	})
}

func (b *Bolt) GetProject(_ context.Context, userID, id string) (model.Project, error) {
	var rec boltProject
	err := b.storage.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getProject(tx, userID, id)
		return err
	})
	return rec.Project, err
}

func (b *Bolt) ListProjects(_ context.Context, userID, categoryID string) ([]model.ProjectTimers, error) {
	var out []model.ProjectTimers
	err := b.storage.View(func(tx *bbolt.Tx) error {
		records, err := userProjects(tx, userID, categoryID)
		if err != nil {
			return err
		}
		timers, err := userTimers(tx, userID, func(model.Timer) bool { return true })
		if err != nil {
			return err
		}
		out = groupByProject(projectsOf(records), timers, false)
		return nil
	})
	return out, err
}

func (b *Bolt) UpdateProject(_ context.Context, p model.Project) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		rec, err := getProject(tx, p.UserID, p.ID)
		if err != nil {
			return err
		}
		rec.Project.Name = p.Name
		rec.Project.Description = p.Description
		rec.Project.CategoryID = p.CategoryID
		return putJSON(tx.Bucket([]byte(boltBucketProjects)), p.ID, rec)
	})
}

func (b *Bolt) DeleteProject(_ context.Context, userID, id string) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		if _, err := getProject(tx, userID, id); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(boltBucketProjects)).Delete([]byte(id)); err != nil {
			return err
		}
		timers, err := userTimers(tx, userID, func(t model.Timer) bool { return t.ProjectID == id })
		if err != nil {
			return err
		}
		bucket := tx.Bucket([]byte(boltBucketTimers))
		for _, t := range timers {
			if err := bucket.Delete([]byte(t.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func projectsOf(records []boltProject) []model.Project {
	out := make([]model.Project, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Project)
	}
	return out
}

// ============================================================================
// Timers
// ============================================================================

// userTimers returns the user's timers matching keep, newest first, with
// insertion order kept for equal start times and project names filled in.
func userTimers(tx *bbolt.Tx, userID string, keep func(model.Timer) bool) ([]model.Timer, error) {
	var records []boltTimer
	err := tx.Bucket([]byte(boltBucketTimers)).ForEach(func(_, v []byte) error {
		var rec boltTimer
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		if rec.Timer.UserID == userID && keep(rec.Timer) {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Timer.StartTime.Equal(b.Timer.StartTime) {
			return a.Timer.StartTime.After(b.Timer.StartTime)
		}
		return a.Seq < b.Seq
	})

	out := make([]model.Timer, 0, len(records))
	for _, rec := range records {
		t := rec.Timer
		t.ProjectName = projectName(tx, t.ProjectID)
		out = append(out, t)
	}
	return out, nil
}

func projectName(tx *bbolt.Tx, projectID string) string {
	var rec boltProject
	if ok, err := getJSON(tx.Bucket([]byte(boltBucketProjects)), projectID, &rec); err != nil || !ok {
		return ""
	}
	return rec.Project.Name
}

func getTimer(tx *bbolt.Tx, userID, id string) (boltTimer, error) {
	var rec boltTimer
	ok, err := getJSON(tx.Bucket([]byte(boltBucketTimers)), id, &rec)
	if err != nil {
		return boltTimer{}, err
	}
	if !ok || rec.Timer.UserID != userID {
		return boltTimer{}, fmt.Errorf("timer %s: %w", id, ErrNotFound)
	}
	rec.Timer.ProjectName = projectName(tx, rec.Timer.ProjectID)
	return rec, nil
}

func putTimer(tx *bbolt.Tx, rec boltTimer) error {
	rec.Timer.ProjectName = ""
	return putJSON(tx.Bucket([]byte(boltBucketTimers)), rec.Timer.ID, rec)
}

func (b *Bolt) CreateTimer(_ context.Context, t model.Timer) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		seq, err := tx.Bucket([]byte(boltBucketTimers)).NextSequence()
		if err != nil {
			return err
		}
		return putTimer(tx, boltTimer{Seq: seq, Timer: t})
	})
}

func (b *Bolt) GetTimer(_ context.Context, userID, id string) (model.Timer, error) {
	var rec boltTimer
	err := b.storage.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getTimer(tx, userID, id)
		return err
	})
	return rec.Timer, err
}

func (b *Bolt) ListTimers(_ context.Context, userID string) ([]model.Timer, error) {
	var out []model.Timer
	err := b.storage.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = userTimers(tx, userID, func(model.Timer) bool { return true })
		return err
	})
	return out, err
}

func (b *Bolt) ListProjectTimers(_ context.Context, userID, projectID string) ([]model.Timer, error) {
	var out []model.Timer
	err := b.storage.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = userTimers(tx, userID, func(t model.Timer) bool { return t.ProjectID == projectID })
		return err
	})
	return out, err
}

func (b *Bolt) ProjectTimersSince(_ context.Context, userID string, since time.Time) ([]model.ProjectTimers, error) {
	var out []model.ProjectTimers
	err := b.storage.View(func(tx *bbolt.Tx) error {
		records, err := userProjects(tx, userID, "")
		if err != nil {
			return err
		}
		timers, err := userTimers(tx, userID, func(t model.Timer) bool { return !t.StartTime.Before(since) })
		if err != nil {
			return err
		}
		out = groupByProject(projectsOf(records), timers, true)
		return nil
	})
	return out, err
}

func (b *Bolt) MutateTimer(_ context.Context, userID, id string, fn TimerMutation) (model.Timer, error) {
	var out model.Timer
	err := b.storage.Update(func(tx *bbolt.Tx) error {
		rec, err := getTimer(tx, userID, id)
		if err != nil {
			return err
		}
		next, err := fn(rec.Timer)
		if err != nil {
			return err
		}
		next = pinTimer(rec.Timer, next)
		if err := putTimer(tx, boltTimer{Seq: rec.Seq, Timer: next}); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (b *Bolt) DeleteTimer(_ context.Context, userID, id string) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		if _, err := getTimer(tx, userID, id); err != nil {
			return err
		}
		return tx.Bucket([]byte(boltBucketTimers)).Delete([]byte(id))
	})
}

func (b *Bolt) MarkProjectTimersPaid(_ context.Context, userID, projectID string) error {
	return b.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketTimers))
		var updated []boltTimer
		if err := bucket.ForEach(func(_, v []byte) error {
			var rec boltTimer
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Timer.UserID == userID && rec.Timer.ProjectID == projectID && !rec.Timer.IsPaid {
				rec.Timer.IsPaid = true
				updated = append(updated, rec)
			}
			return nil
		}); err != nil {
			return err
		}
		// Writes are deferred: bbolt forbids modifying a bucket during ForEach.
		for _, rec := range updated {
			if err := putTimer(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}
