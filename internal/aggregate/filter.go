package aggregate

import (
	"slices"
	"strings"

	"ganttcal/internal/model"
)

// Filter narrows an entity list before aggregation or layout. Empty fields
// do not constrain.
type Filter struct {
	Kinds      []model.Kind
	Statuses   []model.Status
	Priorities []model.Priority
	ProjectID  string
	// Search is matched case-insensitively against the name.
	Search string
}

// Match reports whether e passes every set criterion.
func (f Filter) Match(e model.Entity) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, e.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, e.Priority) {
		return false
	}
	if f.ProjectID != "" && e.ProjectID != f.ProjectID && e.ID != f.ProjectID {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(e.Name), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

// Apply returns the entities matching f, preserving order.
func (f Filter) Apply(entities []model.Entity) []model.Entity {
	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
