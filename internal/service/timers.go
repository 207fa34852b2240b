package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

// CreateTimer is the input of Timers.Start.
type CreateTimer struct {
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
}

// UpdateTimer is the input of Timers.Update. Nil fields are left as is.
type UpdateTimer struct {
	Name   *string `json:"name"`
	IsPaid *bool   `json:"isPaid"`
}

// Timers runs the timer lifecycle and statistics.
type Timers struct {
	store storage.Store
	clock Clock
	log   zerolog.Logger
}

// Start creates a running timer on one of the user's projects.
func (s *Timers) Start(ctx context.Context, userID string, in CreateTimer) (model.Timer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Timer{}, invalid("name is required")
	}
	if in.ProjectID == "" {
		return model.Timer{}, invalid("projectId is required")
	}
	proj, err := s.store.GetProject(ctx, userID, in.ProjectID)
	if err != nil {
		return model.Timer{}, err
	}

	now := s.clock.Now()
	t := model.Timer{
		ID:          newID(),
		UserID:      userID,
		ProjectID:   proj.ID,
		Name:        name,
		StartTime:   now,
		State:       model.Running{},
		CreatedAt:   now,
		ProjectName: proj.Name,
	}
	if err := s.store.CreateTimer(ctx, t); err != nil {
		return model.Timer{}, err
	}
	s.log.Debug().Str("timer", t.ID).Str("project", proj.ID).Msg("timer started")
	return t, nil
}

func (s *Timers) List(ctx context.Context, userID string) ([]model.Timer, error) {
	return s.store.ListTimers(ctx, userID)
}

func (s *Timers) Get(ctx context.Context, userID, id string) (model.Timer, error) {
	return s.store.GetTimer(ctx, userID, id)
}

// transition applies a lifecycle operation at a single instant.
func (s *Timers) transition(ctx context.Context, userID, id string, op func(model.Timer, time.Time) (model.Timer, error)) (model.Timer, error) {
	now := s.clock.Now()
	return s.store.MutateTimer(ctx, userID, id, func(t model.Timer) (model.Timer, error) {
		return op(t, now)
	})
}

func (s *Timers) Pause(ctx context.Context, userID, id string) (model.Timer, error) {
	return s.transition(ctx, userID, id, timecalc.Pause)
}

func (s *Timers) Resume(ctx context.Context, userID, id string) (model.Timer, error) {
	return s.transition(ctx, userID, id, timecalc.Resume)
}

func (s *Timers) Stop(ctx context.Context, userID, id string) (model.Timer, error) {
	return s.transition(ctx, userID, id, timecalc.Stop)
}

// Update renames the timer or changes its paid flag.
func (s *Timers) Update(ctx context.Context, userID, id string, in UpdateTimer) (model.Timer, error) {
	var name string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return model.Timer{}, invalid("name must not be empty")
		}
	}
	return s.store.MutateTimer(ctx, userID, id, func(t model.Timer) (model.Timer, error) {
		if in.Name != nil {
			t.Name = name
		}
		if in.IsPaid != nil {
			t.IsPaid = *in.IsPaid
		}
		return t, nil
	})
}

// Delete removes the timer and returns it.
func (s *Timers) Delete(ctx context.Context, userID, id string) (model.Timer, error) {
	t, err := s.store.GetTimer(ctx, userID, id)
	if err != nil {
		return model.Timer{}, err
	}
	if err := s.store.DeleteTimer(ctx, userID, id); err != nil {
		return model.Timer{}, err
	}
	return t, nil
}

// MarkAllPaid flags every timer of the project as paid.
func (s *Timers) MarkAllPaid(ctx context.Context, userID, projectID string) error {
	if _, err := s.store.GetProject(ctx, userID, projectID); err != nil {
		return err
	}
	return s.store.MarkProjectTimersPaid(ctx, userID, projectID)
}

// Statistics aggregates the user's timers over period. paidFilter may be
// empty, "all", "paid" or "unpaid".
func (s *Timers) Statistics(ctx context.Context, userID string, period model.Period, paidFilter string) (model.Statistics, error) {
	filter, err := timecalc.ParsePaidFilter(paidFilter)
	if err != nil {
		return model.Statistics{}, invalid("%v", err)
	}

	now := s.clock.Now()
	since := timecalc.PeriodStart(period, now)
	projects, err := s.store.ProjectTimersSince(ctx, userID, since)
	if err != nil {
		return model.Statistics{}, err
	}
	return timecalc.AggregateStatistics(projects, now, since, filter), nil
}
