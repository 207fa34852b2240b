package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

var base = time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

// forEachDriver runs fn against a fresh store of every backend.
func forEachDriver(t *testing.T, fn func(t *testing.T, s storage.Store)) {
	t.Helper()
	for _, driver := range []string{storage.DriverSQLite, storage.DriverBolt} {
		t.Run(driver, func(t *testing.T) {
			s, err := storage.Open(driver, filepath.Join(t.TempDir(), "data", "tttd."+driver))
			require.NoError(t, err)
			t.Cleanup(func() {
				if err := s.Close(); err != nil {
					t.Logf("failed to close store: %v", err)
				}
			})
			fn(t, s)
		})
	}
}

func seedProject(t *testing.T, s storage.Store, userID, id string, created time.Time) model.Project {
	t.Helper()
	p := model.Project{ID: id, UserID: userID, Name: "Project " + id, CreatedAt: created}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func seedTimer(t *testing.T, s storage.Store, userID, projectID, id string, start time.Time, state model.State) model.Timer {
	t.Helper()
	tm := model.Timer{
		ID:        id,
		UserID:    userID,
		ProjectID: projectID,
		Name:      "Timer " + id,
		StartTime: start,
		State:     state,
		CreatedAt: start,
	}
	require.NoError(t, s.CreateTimer(context.Background(), tm))
	return tm
}

func TestPing(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := storage.Open("postgres", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		u := model.User{ID: "u1", Email: "ada@example.com", PasswordHash: "h1", CreatedAt: base}
		require.NoError(t, s.CreateUser(ctx, u))

		err := s.CreateUser(ctx, model.User{ID: "u2", Email: u.Email, PasswordHash: "h2", CreatedAt: base})
		assert.ErrorIs(t, err, storage.ErrConflict)

		got, err := s.UserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, "h1", got.PasswordHash)

		updated, err := s.SetPasswordHash(ctx, u.Email, "h3")
		require.NoError(t, err)
		assert.Equal(t, "h3", updated.PasswordHash)

		_, err = s.UserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.SetPasswordHash(ctx, "nobody@example.com", "x")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCategories(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateCategory(ctx, model.Category{ID: "c1", UserID: "u1", Name: "Work", CreatedAt: at(0)}))
		require.NoError(t, s.CreateCategory(ctx, model.Category{ID: "c2", UserID: "u1", Name: "Home", CreatedAt: at(1)}))
		require.NoError(t, s.CreateCategory(ctx, model.Category{ID: "c3", UserID: "u2", Name: "Other", CreatedAt: at(2)}))

		cat := "c1"
		p := model.Project{ID: "p1", UserID: "u1", CategoryID: &cat, Name: "Site", CreatedAt: at(3)}
		require.NoError(t, s.CreateProject(ctx, p))

		list, err := s.ListCategories(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "c1", list[0].ID)
		assert.Equal(t, 1, list[0].ProjectCount)
		assert.Equal(t, 0, list[1].ProjectCount)

		assert.ErrorIs(t, s.DeleteCategory(ctx, "u2", "c1"), storage.ErrNotFound)
		require.NoError(t, s.DeleteCategory(ctx, "u1", "c1"))

		got, err := s.GetProject(ctx, "u1", "p1")
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID, "deleting a category detaches its projects")
	})
}

func TestProjectsAreTenantScoped(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		p := seedProject(t, s, "u1", "p1", at(0))

		_, err := s.GetProject(ctx, "u2", p.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		p.UserID = "u2"
		p.Name = "hijacked"
		assert.ErrorIs(t, s.UpdateProject(ctx, p), storage.ErrNotFound)
		assert.ErrorIs(t, s.DeleteProject(ctx, "u2", "p1"), storage.ErrNotFound)

		desc := "landing page"
		p.UserID = "u1"
		p.Name = "Renamed"
		p.Description = &desc
		require.NoError(t, s.UpdateProject(ctx, p))

		got, err := s.GetProject(ctx, "u1", "p1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		require.NotNil(t, got.Description)
		assert.Equal(t, desc, *got.Description)
	})
}

func TestListProjectsWithTimers(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		cat := "c1"
		require.NoError(t, s.CreateProject(ctx, model.Project{ID: "p1", UserID: "u1", CategoryID: &cat, Name: "A", CreatedAt: at(0)}))
		seedProject(t, s, "u1", "p2", at(1))
		seedProject(t, s, "u2", "p3", at(2))
		seedTimer(t, s, "u1", "p1", "t1", at(10), model.Stopped{At: at(20)})
		seedTimer(t, s, "u1", "p1", "t2", at(30), model.Running{})

		all, err := s.ListProjects(ctx, "u1", "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "p1", all[0].ID)
		require.Len(t, all[0].Timers, 2)
		assert.Equal(t, "t2", all[0].Timers[0].ID)
		assert.Empty(t, all[1].Timers)

		byCategory, err := s.ListProjects(ctx, "u1", "c1")
		require.NoError(t, err)
		require.Len(t, byCategory, 1)
		assert.Equal(t, "p1", byCategory[0].ID)
	})
}

func TestTimerRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seedProject(t, s, "u1", "p1", at(0))

		states := map[string]model.State{
			"running": model.Running{},
			"paused":  model.Paused{Since: at(15)},
			"stopped": model.Stopped{At: at(40)},
		}
		for id, state := range states {
			seedTimer(t, s, "u1", "p1", id, at(10), state)
		}

		for id, want := range states {
			got, err := s.GetTimer(ctx, "u1", id)
			require.NoError(t, err)
			assert.Equal(t, want, got.State, id)
			assert.True(t, got.StartTime.Equal(at(10)), id)
			assert.Equal(t, "Project p1", got.ProjectName, id)
		}

		_, err := s.GetTimer(ctx, "u2", "running")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestListTimersOrder(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seedProject(t, s, "u1", "p1", at(0))
		seedTimer(t, s, "u1", "p1", "old", at(0), model.Running{})
		seedTimer(t, s, "u1", "p1", "tie-a", at(50), model.Running{})
		seedTimer(t, s, "u1", "p1", "tie-b", at(50), model.Running{})
		seedTimer(t, s, "u1", "p1", "new", at(90), model.Running{})
		seedTimer(t, s, "u2", "p1", "foreign", at(99), model.Running{})

		timers, err := s.ListTimers(ctx, "u1")
		require.NoError(t, err)
		var ids []string
		for _, tm := range timers {
			ids = append(ids, tm.ID)
		}
		assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, ids)

		projectTimers, err := s.ListProjectTimers(ctx, "u1", "p1")
		require.NoError(t, err)
		assert.Len(t, projectTimers, 4)
	})
}

func TestProjectTimersSince(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seedProject(t, s, "u1", "p1", at(0))
		seedProject(t, s, "u1", "p2", at(1))
		seedProject(t, s, "u1", "p3", at(2))
		seedTimer(t, s, "u1", "p1", "a", at(100), model.Stopped{At: at(200)})
		seedTimer(t, s, "u1", "p1", "b", at(10), model.Stopped{At: at(20)})
		seedTimer(t, s, "u1", "p2", "c", at(5), model.Stopped{At: at(6)})
		seedTimer(t, s, "u1", "p3", "d", at(100), model.Running{})

		groups, err := s.ProjectTimersSince(ctx, "u1", at(100))
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "p1", groups[0].ID)
		require.Len(t, groups[0].Timers, 1)
		assert.Equal(t, "a", groups[0].Timers[0].ID)
		assert.Equal(t, "p3", groups[1].ID)
	})
}

func TestMutateTimer(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seedProject(t, s, "u1", "p1", at(0))
		seedTimer(t, s, "u1", "p1", "t1", at(0), model.Running{})

		got, err := s.MutateTimer(ctx, "u1", "t1", func(tm model.Timer) (model.Timer, error) {
			tm.StartTime = at(-30)
			tm.ProjectID = "elsewhere"
			tm.State = model.Stopped{At: at(60)}
			tm.TotalPause = 12
			tm.IsPaid = true
			tm.Name = "renamed"
			return tm, nil
		})
		require.NoError(t, err)
		assert.True(t, got.IsStopped())

		stored, err := s.GetTimer(ctx, "u1", "t1")
		require.NoError(t, err)
		assert.True(t, stored.StartTime.Equal(at(-30)), "start = %v", stored.StartTime)
		assert.Equal(t, model.Stopped{At: at(60)}, stored.State)
		assert.Equal(t, int64(12), stored.TotalPause)
		assert.Equal(t, "p1", stored.ProjectID)
		assert.True(t, stored.IsPaid)
		assert.Equal(t, "renamed", stored.Name)

		boom := errors.New("boom")
		_, err = s.MutateTimer(ctx, "u1", "t1", func(tm model.Timer) (model.Timer, error) {
			tm.Name = "never written"
			return tm, boom
		})
		assert.ErrorIs(t, err, boom)
		stored, err = s.GetTimer(ctx, "u1", "t1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", stored.Name)

		_, err = s.MutateTimer(ctx, "u2", "t1", func(tm model.Timer) (model.Timer, error) { return tm, nil })
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDeleteAndMarkPaid(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seedProject(t, s, "u1", "p1", at(0))
		seedProject(t, s, "u1", "p2", at(1))
		seedTimer(t, s, "u1", "p1", "t1", at(0), model.Stopped{At: at(5)})
		seedTimer(t, s, "u1", "p1", "t2", at(1), model.Running{})
		seedTimer(t, s, "u1", "p2", "t3", at(2), model.Running{})

		require.NoError(t, s.MarkProjectTimersPaid(ctx, "u1", "p1"))
		for _, id := range []string{"t1", "t2"} {
			tm, err := s.GetTimer(ctx, "u1", id)
			require.NoError(t, err)
			assert.True(t, tm.IsPaid, id)
		}
		t3, err := s.GetTimer(ctx, "u1", "t3")
		require.NoError(t, err)
		assert.False(t, t3.IsPaid)

		assert.ErrorIs(t, s.DeleteTimer(ctx, "u2", "t3"), storage.ErrNotFound)
		require.NoError(t, s.DeleteTimer(ctx, "u1", "t3"))
		_, err = s.GetTimer(ctx, "u1", "t3")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.DeleteProject(ctx, "u1", "p1"))
		timers, err := s.ListTimers(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, timers, "deleting a project removes its timers")
	})
}
