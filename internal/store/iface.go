package store

import (
	"context"
	"time"

	"ganttcal/internal/model"
)

// Interface is the set of store operations the HTTP layer and jobs need.
// Tests substitute it to simulate persistence failures.
type Interface interface {
	Close() error

	// ListEntities returns all entities, optionally restricted to kinds.
	ListEntities(ctx context.Context, kinds ...model.Kind) ([]model.Entity, error)

	// GetEntity returns ErrNotFound for unknown ids.
	GetEntity(ctx context.Context, id string) (*model.Entity, error)

	CreateEntity(ctx context.Context, e *model.Entity) error

	// UpdateSchedule commits the dates produced by a timeline drag.
	UpdateSchedule(ctx context.Context, u model.ScheduleUpdate) error

	UpdateStatus(ctx context.Context, id string, status model.Status) error

	DeleteEntity(ctx context.Context, id string) error

	// Seed inserts demo data into an empty store.
	Seed(ctx context.Context, now time.Time) (int, error)
}

var _ Interface = (*Store)(nil)
