package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/time-tracker-server/internal/model"
)

func sampleStats() model.Statistics {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return model.Statistics{
		TotalTime:       5400,
		TotalPaidTime:   3600,
		TotalUnpaidTime: 1800,
		ProjectStats: []model.ProjectStat{
			{
				ID:        "p1",
				Name:      "Acme",
				TotalTime: 3600,
				IsPaid:    true,
				Timers: []model.TimerStat{
					{ID: "t1", Name: "Design", Time: 3600, IsPaid: true, StartTime: start},
				},
			},
		},
	}
}

func TestWriteReportMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := writeReport(&buf, sampleStats(), "week", "md"); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Period: week",
		"Acme                1h 0m ✓",
		"Paid                1h 0m",
		"Unpaid              30m",
		"Total               1h 30m",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeReport(&buf, sampleStats(), "week", "csv"); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	want := "project,timer,start,paid,duration_seconds\nAcme,Design,2026-03-02T09:00:00Z,true,3600\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeReport(&buf, sampleStats(), "week", "json"); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	var got model.Statistics
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.TotalTime != 5400 || len(got.ProjectStats) != 1 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWriteReportUnknownFormat(t *testing.T) {
	if err := writeReport(&bytes.Buffer{}, sampleStats(), "week", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
