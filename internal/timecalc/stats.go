package timecalc

import (
	"fmt"
	"time"

	"github.com/Tiliavir/time-tracker-server/internal/model"
)

const day = 24 * time.Hour

// PeriodStart returns the inclusive lower bound on timer start times for
// period. Unknown periods cover all time.
func PeriodStart(period model.Period, now time.Time) time.Time {
	switch period {
	case model.PeriodWeek:
		return now.Add(-7 * day)
	case model.PeriodMonth:
		return now.Add(-30 * day)
	case model.PeriodYear:
		return now.Add(-365 * day)
	default:
		return time.Unix(0, 0).UTC()
	}
}

// ParsePaidFilter validates a paid filter value. An empty string means all.
func ParsePaidFilter(s string) (model.PaidFilter, error) {
	switch f := model.PaidFilter(s); f {
	case "":
		return model.PaidFilterAll, nil
	case model.PaidFilterAll, model.PaidFilterPaid, model.PaidFilterUnpaid:
		return f, nil
	default:
		return "", fmt.Errorf("unknown paid filter %q", s)
	}
}

// listed reports whether a timer with the given paid flag passes f.
func listed(f model.PaidFilter, isPaid bool) bool {
	switch f {
	case model.PaidFilterPaid:
		return isPaid
	case model.PaidFilterUnpaid:
		return !isPaid
	default:
		return true
	}
}

// AggregateStatistics summarises timers started at or after periodStart.
//
// The global totals cover every timer in the period regardless of
// paidFilter; the filter only decides which timers each project lists and
// therefore the project's own total. A project is paid when all of its
// timers in the period are paid. Projects that list no timers are dropped.
// Project and timer order is taken from the input.
func AggregateStatistics(projects []model.ProjectTimers, now, periodStart time.Time, paidFilter model.PaidFilter) model.Statistics {
	stats := model.Statistics{ProjectStats: []model.ProjectStat{}}

	for _, p := range projects {
		ps := model.ProjectStat{
			ID:     p.ID,
			Name:   p.Name,
			Timers: []model.TimerStat{},
		}

		var inPeriod []model.Timer
		for _, t := range p.Timers {
			if t.StartTime.Before(periodStart) {
				continue
			}
			inPeriod = append(inPeriod, t)

			secs := ElapsedSeconds(t, now)
			stats.TotalTime += secs
			if t.IsPaid {
				stats.TotalPaidTime += secs
			} else {
				stats.TotalUnpaidTime += secs
			}

			if !listed(paidFilter, t.IsPaid) {
				continue
			}
			ps.TotalTime += secs
			ps.Timers = append(ps.Timers, model.TimerStat{
				ID:        t.ID,
				Name:      t.Name,
				Time:      secs,
				IsPaid:    t.IsPaid,
				StartTime: t.StartTime,
				EndTime:   t.EndTime(),
			})
		}

		if len(ps.Timers) == 0 {
			continue
		}
		ps.IsPaid = AllPaid(inPeriod)
		stats.ProjectStats = append(stats.ProjectStats, ps)
	}

	return stats
}

// FrozenTotal sums the elapsed time of timers that are stopped or paused.
// Running timers are left out so project listings only show durations that
// are not ticking.
func FrozenTotal(timers []model.Timer, now time.Time) int64 {
	var total int64
	for _, t := range timers {
		if _, running := t.State.(model.Running); running {
			continue
		}
		total += ElapsedSeconds(t, now)
	}
	return total
}

// AllPaid reports whether timers is non-empty and every timer is paid.
func AllPaid(timers []model.Timer) bool {
	if len(timers) == 0 {
		return false
	}
	for _, t := range timers {
		if !t.IsPaid {
			return false
		}
	}
	return true
}

// SummarizeProject applies the project listing rule to one project.
func SummarizeProject(p model.ProjectTimers, now time.Time) model.ProjectSummary {
	return model.ProjectSummary{
		Project:   p.Project,
		TotalTime: FrozenTotal(p.Timers, now),
		IsPaid:    AllPaid(p.Timers),
	}
}
