package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

func stoppedTimer(id string, startSec, durSec int, paid bool) model.Timer {
	return model.Timer{
		ID:        id,
		Name:      id,
		StartTime: at(startSec),
		State:     model.Stopped{At: at(startSec + durSec)},
		IsPaid:    paid,
	}
}

func TestAggregateStatisticsPaidFilter(t *testing.T) {
	projects := []model.ProjectTimers{{
		Project: model.Project{ID: "p1", Name: "Website"},
		Timers: []model.Timer{
			stoppedTimer("a", 200, 100, true),
			stoppedTimer("b", 0, 50, false),
		},
	}}

	stats := timecalc.AggregateStatistics(projects, at(1000), time.Unix(0, 0), model.PaidFilterPaid)

	if stats.TotalTime != 150 || stats.TotalPaidTime != 100 || stats.TotalUnpaidTime != 50 {
		t.Errorf("totals = %d/%d/%d, want 150/100/50", stats.TotalTime, stats.TotalPaidTime, stats.TotalUnpaidTime)
	}
	if len(stats.ProjectStats) != 1 {
		t.Fatalf("projects = %d, want 1", len(stats.ProjectStats))
	}
	p := stats.ProjectStats[0]
	if p.TotalTime != 100 {
		t.Errorf("project total = %d, want 100", p.TotalTime)
	}
	if len(p.Timers) != 1 || p.Timers[0].ID != "a" {
		t.Errorf("listed timers = %+v, want only a", p.Timers)
	}
	if p.IsPaid {
		t.Error("project with an unpaid timer reported as paid")
	}
}

func TestAggregateStatisticsDropsEmptyProjects(t *testing.T) {
	projects := []model.ProjectTimers{
		{Project: model.Project{ID: "paid"}, Timers: []model.Timer{stoppedTimer("a", 0, 10, true)}},
		{Project: model.Project{ID: "unpaid"}, Timers: []model.Timer{stoppedTimer("b", 0, 20, false)}},
		{Project: model.Project{ID: "empty"}},
	}

	stats := timecalc.AggregateStatistics(projects, at(100), time.Unix(0, 0), model.PaidFilterUnpaid)

	if len(stats.ProjectStats) != 1 || stats.ProjectStats[0].ID != "unpaid" {
		t.Fatalf("project stats = %+v, want only unpaid", stats.ProjectStats)
	}
	if stats.TotalTime != 30 {
		t.Errorf("TotalTime = %d, want 30", stats.TotalTime)
	}
}

func TestAggregateStatisticsPeriodAndOrder(t *testing.T) {
	projects := []model.ProjectTimers{{
		Project: model.Project{ID: "p1"},
		Timers: []model.Timer{
			stoppedTimer("new", 500, 10, true),
			stoppedTimer("tie-1", 300, 10, true),
			stoppedTimer("tie-2", 300, 20, true),
			stoppedTimer("old", 0, 40, false),
		},
	}}

	stats := timecalc.AggregateStatistics(projects, at(1000), at(300), model.PaidFilterAll)

	if stats.TotalTime != 40 {
		t.Errorf("TotalTime = %d, want 40", stats.TotalTime)
	}
	p := stats.ProjectStats[0]
	var ids []string
	for _, ts := range p.Timers {
		ids = append(ids, ts.ID)
	}
	want := []string{"new", "tie-1", "tie-2"}
	if len(ids) != len(want) {
		t.Fatalf("timers = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("timers = %v, want %v", ids, want)
		}
	}
	if !p.IsPaid {
		t.Error("all timers in period are paid, project should be paid")
	}
}

func TestAggregateStatisticsIncludesLiveTimers(t *testing.T) {
	projects := []model.ProjectTimers{{
		Project: model.Project{ID: "p1"},
		Timers:  []model.Timer{{ID: "live", StartTime: at(0), State: model.Running{}}},
	}}
	stats := timecalc.AggregateStatistics(projects, at(100), time.Unix(0, 0), model.PaidFilterAll)
	if stats.TotalTime != 100 {
		t.Errorf("TotalTime = %d, want 100", stats.TotalTime)
	}
	if stats.ProjectStats[0].Timers[0].EndTime != nil {
		t.Error("running timer should have no end time")
	}
}

func TestSummarizeProject(t *testing.T) {
	p := model.ProjectTimers{
		Project: model.Project{ID: "p1"},
		Timers: []model.Timer{
			stoppedTimer("done", 0, 50, true),
			{ID: "paused", StartTime: at(0), State: model.Paused{Since: at(30)}, TotalPause: 10, IsPaid: true},
			{ID: "live", StartTime: at(0), State: model.Running{}, IsPaid: true},
		},
	}

	s := timecalc.SummarizeProject(p, at(100))
	if s.TotalTime != 70 {
		t.Errorf("TotalTime = %d, want 70 (50 stopped + 20 paused, live excluded)", s.TotalTime)
	}
	if !s.IsPaid {
		t.Error("IsPaid = false, want true")
	}

	empty := timecalc.SummarizeProject(model.ProjectTimers{Project: model.Project{ID: "p2"}}, at(100))
	if empty.IsPaid {
		t.Error("project without timers must not be paid")
	}
	if empty.TotalTime != 0 {
		t.Errorf("empty TotalTime = %d, want 0", empty.TotalTime)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		period model.Period
		want   time.Time
	}{
		{model.PeriodWeek, now.Add(-7 * 24 * time.Hour)},
		{model.PeriodMonth, now.Add(-30 * 24 * time.Hour)},
		{model.PeriodYear, now.Add(-365 * 24 * time.Hour)},
		{model.PeriodAll, time.Unix(0, 0)},
		{"bogus", time.Unix(0, 0)},
	}
	for _, tt := range tests {
		if got := timecalc.PeriodStart(tt.period, now); !got.Equal(tt.want) {
			t.Errorf("PeriodStart(%q) = %v, want %v", tt.period, got, tt.want)
		}
	}
}

func TestParsePaidFilter(t *testing.T) {
	for in, want := range map[string]model.PaidFilter{
		"":       model.PaidFilterAll,
		"all":    model.PaidFilterAll,
		"paid":   model.PaidFilterPaid,
		"unpaid": model.PaidFilterUnpaid,
	} {
		got, err := timecalc.ParsePaidFilter(in)
		if err != nil || got != want {
			t.Errorf("ParsePaidFilter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := timecalc.ParsePaidFilter("maybe"); err == nil {
		t.Error("expected error for unknown filter")
	}
}
