package timecalc

import (
	"fmt"
	"time"

	"github.com/Tiliavir/time-tracker-server/internal/model"
)

// InvalidStateError reports a lifecycle transition that the timer's current
// state does not allow.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s timer: %s", e.Op, e.Reason)
}

// ElapsedSeconds returns the active, non-paused duration of t up to now.
// For a stopped timer now is ignored. The result is never negative.
func ElapsedSeconds(t model.Timer, now time.Time) int64 {
	end := now
	if s, ok := t.State.(model.Stopped); ok {
		end = s.At
	}

	total := floorSeconds(end.Sub(t.StartTime))
	total -= t.TotalPause

	// The pause in progress is not yet part of TotalPause.
	if p, ok := t.State.(model.Paused); ok {
		total -= floorSeconds(now.Sub(p.Since))
	}

	return max(total, 0)
}

// Pause suspends a running timer at now.
func Pause(t model.Timer, now time.Time) (model.Timer, error) {
	switch t.State.(type) {
	case model.Paused:
		return t, &InvalidStateError{Op: "pause", Reason: "already paused"}
	case model.Stopped:
		return t, &InvalidStateError{Op: "pause", Reason: "already stopped"}
	}
	t.State = model.Paused{Since: now}
	return t, nil
}

// Resume folds the pause in progress into TotalPause and runs the timer again.
func Resume(t model.Timer, now time.Time) (model.Timer, error) {
	p, ok := t.State.(model.Paused)
	if !ok {
		return t, &InvalidStateError{Op: "resume", Reason: "not paused"}
	}
	t.TotalPause += pauseSeconds(p, now)
	t.State = model.Running{}
	return t, nil
}

// Stop ends the timer at now. A pause in progress is folded into TotalPause
// first, exactly as Resume would.
func Stop(t model.Timer, now time.Time) (model.Timer, error) {
	switch s := t.State.(type) {
	case model.Stopped:
		return t, &InvalidStateError{Op: "stop", Reason: "already stopped"}
	case model.Paused:
		t.TotalPause += pauseSeconds(s, now)
	}
	t.State = model.Stopped{At: now}
	return t, nil
}

// pauseSeconds is the length of the pause p at now. TotalPause never
// decreases, so a clock that went backwards contributes nothing.
func pauseSeconds(p model.Paused, now time.Time) int64 {
	return max(floorSeconds(now.Sub(p.Since)), 0)
}
