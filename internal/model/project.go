package model

import "time"

// User is an account owning categories, projects and timers.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Category groups projects.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CategorySummary is a category together with the number of its projects.
type CategorySummary struct {
	Category
	ProjectCount int `json:"projectCount"`
}

// Project is a unit of work that timers are tracked against.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CategoryID  *string   `json:"categoryId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProjectTimers is a project with a set of its timers, newest first.
type ProjectTimers struct {
	Project
	Timers []Timer `json:"timers"`
}

// ProjectSummary is the project listing row. TotalTime only counts
// stopped and paused timers.
type ProjectSummary struct {
	Project
	TotalTime int64 `json:"totalTime"`
	IsPaid    bool  `json:"isPaid"`
}
