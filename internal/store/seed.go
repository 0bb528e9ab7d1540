package store

import (
	"context"
	"fmt"
	"time"

	"ganttcal/internal/model"
)

// Seed fills an empty store with a small demo portfolio whose dates are
// relative to now. It returns the number of inserted entities; a store that
// already holds data is left untouched.
func (s *Store) Seed(ctx context.Context, now time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	at := func(days int) *time.Time { return model.Time(today.AddDate(0, 0, days)) }

	entities := []model.Entity{
		{ID: "proj-website", Kind: model.KindProject, Name: "Website Redesign", Status: model.StatusActive,
			Priority: model.PriorityHigh, StartDate: at(-20), Deadline: at(25),
			Budget: model.Float(48000), Spent: model.Float(21500), Progress: model.Float(45)},
		{ID: "proj-mobile", Kind: model.KindProject, Name: "Mobile App Launch", Status: model.StatusPlanning,
			Priority: model.PriorityCritical, StartDate: at(10), Deadline: at(80),
			Budget: model.Float(120000), Progress: model.Float(5)},
		{ID: "proj-crm", Kind: model.KindProject, Name: "CRM Migration", Status: model.StatusOnHold,
			Priority: model.PriorityMedium, StartDate: at(-60), Deadline: at(-5),
			Budget: model.Float(30000), Spent: model.Float(27400), Progress: model.Float(70)},
		{ID: "task-mockups", Kind: model.KindTask, ProjectID: "proj-website", Name: "Design mockups",
			Status: model.StatusDone, Priority: model.PriorityHigh, StartDate: at(-18), Deadline: at(-8), Progress: model.Float(100)},
		{ID: "task-frontend", Kind: model.KindTask, ProjectID: "proj-website", Name: "Frontend build",
			Status: model.StatusInProgress, Priority: model.PriorityHigh, StartDate: at(-7), Deadline: at(12), Progress: model.Float(40)},
		{ID: "task-content", Kind: model.KindTask, ProjectID: "proj-website", Name: "Content migration",
			Status: model.StatusToDo, Priority: model.PriorityMedium, StartDate: at(5)},
		{ID: "task-qa", Kind: model.KindTask, ProjectID: "proj-website", Name: "QA pass",
			Status: model.StatusToDo, Priority: model.PriorityLow},
		{ID: "sprint-12", Kind: model.KindSprint, Name: "Sprint 12", Status: model.StatusActive,
			StartDate: at(-4), Deadline: at(10)},
		{ID: "ms-beta", Kind: model.KindMilestone, ProjectID: "proj-mobile", Name: "Public beta",
			Status: model.StatusUpcoming, StartDate: at(45), Deadline: at(45)},
	}

	for i := range entities {
		if err := s.CreateEntity(ctx, &entities[i]); err != nil {
			return i, fmt.Errorf("seed %s: %w", entities[i].ID, err)
		}
	}
	return len(entities), nil
}
