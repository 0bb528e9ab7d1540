// Package aggregate computes the roll-up statistics shown by the summary
// widgets. Snapshots are always recomputed from the full entity list.
package aggregate

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ganttcal/internal/model"
)

// onTrackProgress is the progress (percent) from which a project counts as
// on track.
const onTrackProgress = 50

// Snapshot is a fully recomputed set of statistics over an entity list.
type Snapshot struct {
	Total int `json:"total"`

	// ByStatusCount only holds statuses that occur at least once.
	ByStatusCount map[model.Status]int `json:"by_status_count"`

	TotalBudget     float64 `json:"total_budget"`
	TotalSpent      float64 `json:"total_spent"`
	AverageProgress int     `json:"average_progress"`
	OverdueCount    int     `json:"overdue_count"`

	Active    int     `json:"active"`
	Completed int     `json:"completed"`
	OnTrack   int     `json:"on_track"`
	Remaining float64 `json:"remaining"`

	// Utilization is spent/budget in whole percent, 0 without a budget.
	Utilization int `json:"utilization"`
}

// Aggregate computes a Snapshot of entities as of now. Missing numeric
// fields count as zero. An entity is overdue when it has a deadline before
// now and is not completed.
func Aggregate(entities []model.Entity, now time.Time) Snapshot {
	snap := Snapshot{
		Total:         len(entities),
		ByStatusCount: make(map[model.Status]int),
	}

	budget := decimal.Zero
	spent := decimal.Zero
	progress := 0.0

	for _, e := range entities {
		snap.ByStatusCount[e.Status]++

		if e.Budget != nil {
			budget = budget.Add(decimal.NewFromFloat(*e.Budget))
		}
		if e.Spent != nil {
			spent = spent.Add(decimal.NewFromFloat(*e.Spent))
		}
		p := 0.0
		if e.Progress != nil {
			p = *e.Progress
		}
		progress += p

		switch e.Status {
		case model.StatusActive:
			snap.Active++
		case model.StatusCompleted:
			snap.Completed++
		}
		if p >= onTrackProgress && e.Status != model.StatusOnHold {
			snap.OnTrack++
		}
		if e.Deadline != nil && e.Deadline.Before(now) && e.Status != model.StatusCompleted {
			snap.OverdueCount++
		}
	}

	if snap.Total > 0 {
		snap.AverageProgress = int(math.Round(progress / float64(snap.Total)))
	}

	snap.TotalBudget = budget.InexactFloat64()
	snap.TotalSpent = spent.InexactFloat64()
	snap.Remaining = budget.Sub(spent).InexactFloat64()
	if budget.IsPositive() {
		snap.Utilization = int(spent.Div(budget).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}

	return snap
}

// GroupKey selects the field GroupBy partitions on.
type GroupKey string

const (
	GroupByStatus   GroupKey = "status"
	GroupByKind     GroupKey = "kind"
	GroupByPriority GroupKey = "priority"
	GroupByProject  GroupKey = "project"
)

// noGroup labels entities whose grouping field is empty.
const noGroup = "none"

// GroupBy partitions entities by key and aggregates each group with the
// same now.
func GroupBy(entities []model.Entity, key GroupKey, now time.Time) (map[string]Snapshot, error) {
	label, err := groupLabel(key)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]model.Entity)
	for _, e := range entities {
		k := label(e)
		if k == "" {
			k = noGroup
		}
		groups[k] = append(groups[k], e)
	}

	out := make(map[string]Snapshot, len(groups))
	for k, es := range groups {
		out[k] = Aggregate(es, now)
	}
	return out, nil
}

func groupLabel(key GroupKey) (func(model.Entity) string, error) {
	switch key {
	case GroupByStatus:
		return func(e model.Entity) string { return string(e.Status) }, nil
	case GroupByKind:
		return func(e model.Entity) string { return string(e.Kind) }, nil
	case GroupByPriority:
		return func(e model.Entity) string { return string(e.Priority) }, nil
	case GroupByProject:
		return func(e model.Entity) string {
			if e.Kind == model.KindProject {
				return e.ID
			}
			return e.ProjectID
		}, nil
	default:
		return nil, fmt.Errorf("aggregate: unknown group key %q", key)
	}
}
