// Package model defines the schedulable entities shown on the dashboard
// timeline and summarised by the roll-up widgets.
package model

import (
	"time"

	"ganttcal/internal/timeline"
)

// Kind distinguishes the entity families stored side by side.
type Kind string

const (
	KindProject   Kind = "project"
	KindTask      Kind = "task"
	KindSprint    Kind = "sprint"
	KindMilestone Kind = "milestone"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindProject, KindTask, KindSprint, KindMilestone:
		return true
	}
	return false
}

// Status is free-form so that project, task and sprint workflows can share
// one column. The known values are listed below.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusReview    Status = "review"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"

	StatusToDo       Status = "to_do"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"

	StatusUpcoming Status = "upcoming"
)

// Priority of a project or task.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Entity is a project, task, sprint or milestone. Dates and numeric fields
// are optional; nil means "not set", which is different from zero.
type Entity struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"kind"`
	ProjectID string   `json:"project_id,omitempty"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	Priority  Priority `json:"priority,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`

	Budget   *float64 `json:"budget,omitempty"`
	Spent    *float64 `json:"spent,omitempty"`
	Progress *float64 `json:"progress,omitempty"`

	// SourceID is set for entities imported from a calendar feed.
	SourceID string `json:"source_id,omitempty"`
}

// Schedule returns the timeline view of e.
func (e Entity) Schedule() timeline.Schedule {
	return timeline.Schedule{StartDate: e.StartDate, Deadline: e.Deadline}
}

// ScheduleUpdate is what the timeline hands to persistence after a drag.
type ScheduleUpdate struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"start_date"`
	Deadline  time.Time `json:"deadline"`
}

// UpdateFromDrag reshapes a drag result into persistence field names.
func UpdateFromDrag(id string, r timeline.DragResult) ScheduleUpdate {
	return ScheduleUpdate{ID: id, StartDate: r.NewStartDate, Deadline: r.NewEndDate}
}

// Float returns a pointer to v. Handy for literals of optional fields.
func Float(v float64) *float64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
