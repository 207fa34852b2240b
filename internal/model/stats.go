package model

import "time"

// PaidFilter selects which timers a statistics project entry lists.
type PaidFilter string

const (
	PaidFilterAll    PaidFilter = "all"
	PaidFilterPaid   PaidFilter = "paid"
	PaidFilterUnpaid PaidFilter = "unpaid"
)

// Period is a statistics window ending now.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// TimerStat is one timer row of a statistics report.
type TimerStat struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Time      int64      `json:"time"`
	IsPaid    bool       `json:"isPaid"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

// ProjectStat aggregates the listed timers of one project.
type ProjectStat struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	TotalTime int64       `json:"totalTime"`
	IsPaid    bool        `json:"isPaid"`
	Timers    []TimerStat `json:"timers"`
}

// Statistics is the result of aggregating a user's timers over a period.
// The three global totals ignore the paid filter.
type Statistics struct {
	TotalTime       int64         `json:"totalTime"`
	TotalPaidTime   int64         `json:"totalPaidTime"`
	TotalUnpaidTime int64         `json:"totalUnpaidTime"`
	ProjectStats    []ProjectStat `json:"projectStats"`
}
