// Package msgraph imports Outlook calendar events from Microsoft Graph as
// stopped timers.
package msgraph

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Updated  int
	Errors   int
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	UserID    string
	ProjectID string
	// Timezone is used for event times without an offset.
	Timezone string
	DryRun   bool
	// Now stamps CreatedAt of imported timers.
	Now time.Time
	// Out receives one progress line per event; nil discards them.
	Out io.Writer
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt, tz string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, dt); err == nil {
			return t.UTC(), nil
		}
	}

	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
		loc = l
	}

	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

// shouldSkip returns true if the event should not be imported.
func shouldSkip(event CalendarEvent) bool {
	switch {
	case event.IsCancelled, event.IsAllDay:
		return true
	case event.Sensitivity == "private", event.ShowAs == "free":
		return true
	case event.Start.DateTime == "" || event.End.DateTime == "":
		return true
	}
	return false
}

// eventZone returns the zone the event times are expressed in. The zone
// requested via the Prefer header wins over the one echoed on the event.
func eventZone(t EventTime, requested string) string {
	if requested != "" {
		return requested
	}
	return t.TimeZone
}

// MapEventToTimer converts a calendar event into a stopped timer on the
// given project.
func MapEventToTimer(event CalendarEvent, opts SyncOptions) (model.Timer, error) {
	start, err := parseGraphTime(event.Start.DateTime, eventZone(event.Start, opts.Timezone))
	if err != nil {
		return model.Timer{}, fmt.Errorf("parsing start time: %w", err)
	}
	end, err := parseGraphTime(event.End.DateTime, eventZone(event.End, opts.Timezone))
	if err != nil {
		return model.Timer{}, fmt.Errorf("parsing end time: %w", err)
	}
	if end.Before(start) {
		return model.Timer{}, fmt.Errorf("event ends before it starts")
	}

	name := strings.TrimSpace(event.Subject)
	if name == "" {
		name = "(no subject)"
	}
	return model.Timer{
		ID:         uuid.NewString(),
		UserID:     opts.UserID,
		ProjectID:  opts.ProjectID,
		Name:       name,
		StartTime:  start,
		State:      model.Stopped{At: end},
		ExternalID: event.ID,
		CreatedAt:  opts.Now,
	}, nil
}

// unchanged reports whether the stored timer already matches the event.
func unchanged(stored, imported model.Timer) bool {
	end := stored.EndTime()
	return stored.Name == imported.Name &&
		stored.StartTime.Equal(imported.StartTime) &&
		end != nil && end.Equal(*imported.EndTime())
}

// SyncEvents stores events as timers. Events already imported (matched by
// their Graph ID) are updated when subject or times changed and skipped
// otherwise. With DryRun nothing is written.
func SyncEvents(ctx context.Context, store storage.Store, events []CalendarEvent, opts SyncOptions) (SyncResult, error) {
	var result SyncResult
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	existing, err := store.ListTimers(ctx, opts.UserID)
	if err != nil {
		return result, fmt.Errorf("loading timers: %w", err)
	}
	byExternalID := make(map[string]model.Timer)
	for _, t := range existing {
		if t.ExternalID != "" {
			byExternalID[t.ExternalID] = t
		}
	}

	for _, event := range events {
		if shouldSkip(event) {
			continue
		}

		timer, err := MapEventToTimer(event, opts)
		if err != nil {
			fmt.Fprintf(out, "  ! Error mapping event %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}
		dur := fmt.Sprintf(" (%s)", timecalc.FormatDuration(timecalc.ElapsedSeconds(timer, opts.Now)))

		found, ok := byExternalID[event.ID]
		if ok && unchanged(found, timer) {
			fmt.Fprintf(out, "  – Skipped:  %s (already exists)\n", timer.Name)
			result.Skipped++
			continue
		}

		if ok {
			if !opts.DryRun {
				_, err := store.MutateTimer(ctx, opts.UserID, found.ID, func(t model.Timer) (model.Timer, error) {
					t.Name = timer.Name
					t.StartTime = timer.StartTime
					t.State = timer.State
					return t, nil
				})
				if err != nil {
					fmt.Fprintf(out, "  ! Error updating %q: %v\n", timer.Name, err)
					result.Errors++
					continue
				}
			}
			fmt.Fprintf(out, "  ↑ Updated:  %s%s\n", timer.Name, dur)
			result.Updated++
			continue
		}

		if !opts.DryRun {
			if err := store.CreateTimer(ctx, timer); err != nil {
				fmt.Fprintf(out, "  ! Error saving %q: %v\n", timer.Name, err)
				result.Errors++
				continue
			}
		}
		byExternalID[event.ID] = timer
		fmt.Fprintf(out, "  ✓ Imported: %s%s\n", timer.Name, dur)
		result.Imported++
	}

	return result, nil
}
