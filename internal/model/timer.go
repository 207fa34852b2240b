package model

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a Timer: exactly one of Running, Paused
// or Stopped. A stopped timer can never also be paused.
type State interface {
	isState()
}

// Running is the state of a timer that is currently accumulating time.
type Running struct{}

// Paused is the state of a suspended timer. Since is the instant the
// current pause began.
type Paused struct {
	Since time.Time
}

// Stopped is the terminal state. At is the instant the timer was stopped.
type Stopped struct {
	At time.Time
}

func (Running) isState() {}
func (Paused) isState()  {}
func (Stopped) isState() {}

// Timer tracks one span of work against a project.
type Timer struct {
	ID        string
	UserID    string
	ProjectID string
	Name      string
	StartTime time.Time
	State     State
	// TotalPause is the sum, in seconds, of all completed pause intervals.
	TotalPause int64
	IsPaid     bool
	// ExternalID links timers imported from a calendar to their source event.
	ExternalID string
	CreatedAt  time.Time

	// ProjectName is filled in by listings that join the owning project.
	// It is not persisted.
	ProjectName string
}

// EndTime returns the stop instant, or nil while the timer is not stopped.
func (t Timer) EndTime() *time.Time {
	if s, ok := t.State.(Stopped); ok {
		at := s.At
		return &at
	}
	return nil
}

// PausedAt returns the start of the pause in progress, or nil.
func (t Timer) PausedAt() *time.Time {
	if p, ok := t.State.(Paused); ok {
		since := p.Since
		return &since
	}
	return nil
}

// IsPaused reports whether the timer is suspended.
func (t Timer) IsPaused() bool {
	_, ok := t.State.(Paused)
	return ok
}

// IsStopped reports whether the timer has been stopped.
func (t Timer) IsStopped() bool {
	_, ok := t.State.(Stopped)
	return ok
}

// StateFromFields rebuilds a State from its flat persisted columns.
// An end time always wins; a pause flag without a pause start is treated as
// running since there is no interval to account for.
func StateFromFields(endTime *time.Time, isPaused bool, pausedAt *time.Time) State {
	switch {
	case endTime != nil:
		return Stopped{At: *endTime}
	case isPaused && pausedAt != nil:
		return Paused{Since: *pausedAt}
	default:
		return Running{}
	}
}

// ProjectRef is the slice of a project embedded in timer responses.
type ProjectRef struct {
	Name string `json:"name"`
}

type timerJSON struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ProjectID  string      `json:"projectId"`
	UserID     string      `json:"userId"`
	StartTime  time.Time   `json:"startTime"`
	EndTime    *time.Time  `json:"endTime"`
	IsPaused   bool        `json:"isPaused"`
	PausedAt   *time.Time  `json:"pausedAt"`
	TotalPause int64       `json:"totalPause"`
	IsPaid     bool        `json:"isPaid"`
	ExternalID string      `json:"externalId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	Project    *ProjectRef `json:"project,omitempty"`
}

// MarshalJSON flattens the state into endTime/isPaused/pausedAt fields.
func (t Timer) MarshalJSON() ([]byte, error) {
	w := timerJSON{
		ID:         t.ID,
		Name:       t.Name,
		ProjectID:  t.ProjectID,
		UserID:     t.UserID,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime(),
		IsPaused:   t.IsPaused(),
		PausedAt:   t.PausedAt(),
		TotalPause: t.TotalPause,
		IsPaid:     t.IsPaid,
		ExternalID: t.ExternalID,
		CreatedAt:  t.CreatedAt,
	}
	if t.ProjectName != "" {
		w.Project = &ProjectRef{Name: t.ProjectName}
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Timer) UnmarshalJSON(data []byte) error {
	var w timerJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Timer{
		ID:         w.ID,
		UserID:     w.UserID,
		ProjectID:  w.ProjectID,
		Name:       w.Name,
		StartTime:  w.StartTime,
		State:      StateFromFields(w.EndTime, w.IsPaused, w.PausedAt),
		TotalPause: w.TotalPause,
		IsPaid:     w.IsPaid,
		ExternalID: w.ExternalID,
		CreatedAt:  w.CreatedAt,
	}
	if w.Project != nil {
		t.ProjectName = w.Project.Name
	}
	return nil
}
