package msgraph_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/msgraph"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

var syncNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func makeEvent(id, subject, start, end string) msgraph.CalendarEvent {
	return msgraph.CalendarEvent{
		ID:          id,
		Subject:     subject,
		Sensitivity: "normal",
		ShowAs:      "busy",
		Start:       msgraph.EventTime{DateTime: start, TimeZone: "UTC"},
		End:         msgraph.EventTime{DateTime: end, TimeZone: "UTC"},
	}
}

// newStore returns a sqlite store holding one user with a "Meetings" project.
func newStore(t *testing.T) (storage.Store, msgraph.SyncOptions) {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "tttd.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.CreateUser(ctx, model.User{ID: "u1", Email: "ada@example.com", PasswordHash: "x", CreatedAt: syncNow}); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if err := store.CreateProject(ctx, model.Project{ID: "p1", UserID: "u1", Name: "Meetings", CreatedAt: syncNow}); err != nil {
		t.Fatalf("creating project: %v", err)
	}
	return store, msgraph.SyncOptions{UserID: "u1", ProjectID: "p1", Timezone: "UTC", Now: syncNow}
}

func listTimers(t *testing.T, store storage.Store) []model.Timer {
	t.Helper()
	timers, err := store.ListTimers(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListTimers: %v", err)
	}
	return timers
}

func TestMapEventToTimer(t *testing.T) {
	event := makeEvent("ext-id-1", "Sprint Planning", "2026-02-27T09:00:00", "2026-02-27T10:30:00")
	opts := msgraph.SyncOptions{UserID: "u1", ProjectID: "p1", Timezone: "UTC", Now: syncNow}

	timer, err := msgraph.MapEventToTimer(event, opts)
	if err != nil {
		t.Fatalf("MapEventToTimer: %v", err)
	}
	if timer.ExternalID != "ext-id-1" {
		t.Errorf("ExternalID = %q, want %q", timer.ExternalID, "ext-id-1")
	}
	if timer.Name != "Sprint Planning" {
		t.Errorf("Name = %q, want %q", timer.Name, "Sprint Planning")
	}
	if timer.ProjectID != "p1" || timer.UserID != "u1" {
		t.Errorf("owner = %s/%s, want u1/p1", timer.UserID, timer.ProjectID)
	}
	wantStart := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	if !timer.StartTime.Equal(wantStart) {
		t.Errorf("StartTime = %v, want %v", timer.StartTime, wantStart)
	}
	if !timer.IsStopped() {
		t.Fatalf("State = %#v, want stopped", timer.State)
	}
	if got := timer.EndTime().Sub(timer.StartTime); got != 90*time.Minute {
		t.Errorf("duration = %v, want 1h30m", got)
	}
}

func TestMapEventToTimer_Timezone(t *testing.T) {
	event := makeEvent("ext-tz", "Standup", "2026-02-27T10:00:00.0000000", "2026-02-27T10:15:00.0000000")
	opts := msgraph.SyncOptions{Timezone: "Europe/Berlin"}

	timer, err := msgraph.MapEventToTimer(event, opts)
	if err != nil {
		t.Fatalf("MapEventToTimer: %v", err)
	}
	want := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	if !timer.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", timer.StartTime, want)
	}
}

func TestMapEventToTimer_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		event msgraph.CalendarEvent
	}{
		{"garbage start", makeEvent("x", "s", "yesterday", "2026-02-27T10:00:00")},
		{"end before start", makeEvent("x", "s", "2026-02-27T10:00:00", "2026-02-27T09:00:00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := msgraph.MapEventToTimer(tt.event, msgraph.SyncOptions{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSyncEvents_Import(t *testing.T) {
	store, opts := newStore(t)
	var out bytes.Buffer
	opts.Out = &out
	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00"),
	}

	result, err := msgraph.SyncEvents(context.Background(), store, events, opts)
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 1 imported", result)
	}
	if !strings.Contains(out.String(), "Imported: Architecture Board (1h 30m)") {
		t.Errorf("output = %q", out.String())
	}

	timers := listTimers(t, store)
	if len(timers) != 1 {
		t.Fatalf("timers = %d, want 1", len(timers))
	}
	if timers[0].ExternalID != "ext-1" {
		t.Errorf("ExternalID = %q, want %q", timers[0].ExternalID, "ext-1")
	}
	if timers[0].ProjectName != "Meetings" {
		t.Errorf("ProjectName = %q, want Meetings", timers[0].ProjectName)
	}
}

func TestSyncEvents_Idempotent(t *testing.T) {
	store, opts := newStore(t)
	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00"),
	}

	r1, err := msgraph.SyncEvents(context.Background(), store, events, opts)
	if err != nil {
		t.Fatalf("first SyncEvents: %v", err)
	}
	if r1.Imported != 1 {
		t.Errorf("first sync: Imported = %d, want 1", r1.Imported)
	}

	r2, err := msgraph.SyncEvents(context.Background(), store, events, opts)
	if err != nil {
		t.Fatalf("second SyncEvents: %v", err)
	}
	if r2.Imported != 0 || r2.Skipped != 1 {
		t.Errorf("second sync: result = %+v, want 1 skipped", r2)
	}
	if n := len(listTimers(t, store)); n != 1 {
		t.Fatalf("timers = %d after 2 syncs, want 1", n)
	}
}

func TestSyncEvents_DuplicateInOneBatch(t *testing.T) {
	store, opts := newStore(t)
	event := makeEvent("ext-1", "Board", "2026-02-27T09:00:00", "2026-02-27T10:00:00")

	result, err := msgraph.SyncEvents(context.Background(), store, []msgraph.CalendarEvent{event, event}, opts)
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 imported and 1 skipped", result)
	}
}

func TestSyncEvents_Update(t *testing.T) {
	store, opts := newStore(t)
	ctx := context.Background()
	event := makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00")

	if _, err := msgraph.SyncEvents(ctx, store, []msgraph.CalendarEvent{event}, opts); err != nil {
		t.Fatalf("first SyncEvents: %v", err)
	}
	before := listTimers(t, store)[0]
	if _, err := store.MutateTimer(ctx, "u1", before.ID, func(tm model.Timer) (model.Timer, error) {
		tm.IsPaid = true
		return tm, nil
	}); err != nil {
		t.Fatalf("marking paid: %v", err)
	}

	event.Subject = "Architecture Board (updated)"
	event.End.DateTime = "2026-02-27T11:00:00"

	r2, err := msgraph.SyncEvents(ctx, store, []msgraph.CalendarEvent{event}, opts)
	if err != nil {
		t.Fatalf("second SyncEvents: %v", err)
	}
	if r2.Updated != 1 {
		t.Errorf("Updated = %d, want 1", r2.Updated)
	}

	timers := listTimers(t, store)
	if len(timers) != 1 {
		t.Fatalf("timers = %d, want 1", len(timers))
	}
	got := timers[0]
	if got.ID != before.ID {
		t.Errorf("ID changed from %s to %s", before.ID, got.ID)
	}
	if got.Name != "Architecture Board (updated)" {
		t.Errorf("Name = %q, want updated", got.Name)
	}
	if want := time.Date(2026, 2, 27, 11, 0, 0, 0, time.UTC); !got.EndTime().Equal(want) {
		t.Errorf("EndTime = %v, want %v", got.EndTime(), want)
	}
	if !got.IsPaid {
		t.Error("update dropped the paid flag")
	}
}

func TestSyncEvents_MovedStart(t *testing.T) {
	store, opts := newStore(t)
	ctx := context.Background()
	event := makeEvent("ext-1", "Architecture Board", "2026-02-27T09:00:00", "2026-02-27T10:30:00")

	if _, err := msgraph.SyncEvents(ctx, store, []msgraph.CalendarEvent{event}, opts); err != nil {
		t.Fatalf("first SyncEvents: %v", err)
	}

	event.Start.DateTime = "2026-02-27T08:00:00"
	r2, err := msgraph.SyncEvents(ctx, store, []msgraph.CalendarEvent{event}, opts)
	if err != nil {
		t.Fatalf("second SyncEvents: %v", err)
	}
	if r2.Updated != 1 {
		t.Errorf("second sync: Updated = %d, want 1", r2.Updated)
	}

	got := listTimers(t, store)[0]
	if want := time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC); !got.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, want)
	}

	r3, err := msgraph.SyncEvents(ctx, store, []msgraph.CalendarEvent{event}, opts)
	if err != nil {
		t.Fatalf("third SyncEvents: %v", err)
	}
	if r3.Updated != 0 || r3.Skipped != 1 {
		t.Errorf("third sync: result = %+v, want 1 skipped", r3)
	}
}

func TestSyncEvents_SkipFiltered(t *testing.T) {
	store, opts := newStore(t)

	tests := []struct {
		name   string
		mutate func(*msgraph.CalendarEvent)
	}{
		{"cancelled", func(e *msgraph.CalendarEvent) { e.IsCancelled = true }},
		{"all-day", func(e *msgraph.CalendarEvent) { e.IsAllDay = true }},
		{"private", func(e *msgraph.CalendarEvent) { e.Sensitivity = "private" }},
		{"free", func(e *msgraph.CalendarEvent) { e.ShowAs = "free" }},
		{"missing end", func(e *msgraph.CalendarEvent) { e.End.DateTime = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := makeEvent("c-"+tt.name, tt.name, "2026-02-27T09:00:00", "2026-02-27T10:00:00")
			tt.mutate(&e)
			r, err := msgraph.SyncEvents(context.Background(), store, []msgraph.CalendarEvent{e}, opts)
			if err != nil {
				t.Fatalf("SyncEvents: %v", err)
			}
			if r.Imported != 0 {
				t.Errorf("expected 0 imported for %s event, got %d", tt.name, r.Imported)
			}
		})
	}
	if n := len(listTimers(t, store)); n != 0 {
		t.Errorf("timers = %d, want 0", n)
	}
}

func TestSyncEvents_DryRun(t *testing.T) {
	store, opts := newStore(t)
	opts.DryRun = true
	events := []msgraph.CalendarEvent{
		makeEvent("ext-dry", "Dry Run Event", "2026-02-27T09:00:00", "2026-02-27T10:00:00"),
	}

	result, err := msgraph.SyncEvents(context.Background(), store, events, opts)
	if err != nil {
		t.Fatalf("SyncEvents dry-run: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("dry-run Imported = %d, want 1", result.Imported)
	}
	if n := len(listTimers(t, store)); n != 0 {
		t.Errorf("dry-run wrote %d timers, want 0", n)
	}
}

func TestSyncEvents_PreservesManualTimers(t *testing.T) {
	store, opts := newStore(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	manual := model.Timer{
		ID:        "manual-1",
		UserID:    "u1",
		ProjectID: "p1",
		Name:      "Work",
		StartTime: start,
		State:     model.Stopped{At: start.Add(time.Hour)},
		CreatedAt: start,
	}
	if err := store.CreateTimer(ctx, manual); err != nil {
		t.Fatalf("inserting manual timer: %v", err)
	}

	events := []msgraph.CalendarEvent{
		makeEvent("ext-1", "Meeting", "2026-02-27T11:00:00", "2026-02-27T12:00:00"),
	}
	if _, err := msgraph.SyncEvents(ctx, store, events, opts); err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}

	timers := listTimers(t, store)
	if len(timers) != 2 {
		t.Fatalf("timers = %d, want 2 (manual + imported)", len(timers))
	}
	got, err := store.GetTimer(ctx, "u1", "manual-1")
	if err != nil {
		t.Fatalf("manual timer lost: %v", err)
	}
	if got.Name != "Work" || got.ExternalID != "" {
		t.Errorf("manual timer changed: %+v", got)
	}
}
