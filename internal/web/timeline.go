package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ganttcal/internal/aggregate"
	"ganttcal/internal/ics"
	appLog "ganttcal/internal/log"
	"ganttcal/internal/model"
	"ganttcal/internal/render"
	"ganttcal/internal/store"
	"ganttcal/internal/timeline"
)

// timelineResponse is the JSON shape of /api/timeline.
type timelineResponse struct {
	Mode          timeline.Mode   `json:"mode"`
	Window        timeline.Window `json:"window"`
	Now           time.Time       `json:"now"`
	Rows          []render.Row    `json:"rows"`
	Milestones    []render.Row    `json:"milestones"`
	TruncatedUIDs []string        `json:"truncated_uids,omitempty"`
}

// rescheduleRequest is the body of a drop on the timeline. Mode and Ref
// describe the window the drop fraction was measured in.
type rescheduleRequest struct {
	DropFraction float64 `json:"drop_fraction"`
	Mode         string  `json:"mode"`
	Ref          string  `json:"ref"`
}

// rescheduleResponse carries the entity and its bar. On failure Entity and
// Bar hold the original dates so the client can revert.
type rescheduleResponse struct {
	Entity model.Entity    `json:"entity"`
	Bar    timeline.Bar    `json:"bar"`
	Window timeline.Window `json:"window"`
	Error  string          `json:"error,omitempty"`
}

// resolveWindow reads mode and ref from q. Unknown modes fall back to
// month; ref is a YYYY-MM-DD date in the configured timezone and defaults
// to now.
func (s *Server) resolveWindow(q url.Values, now time.Time) (timeline.Mode, timeline.Window, error) {
	raw := q.Get("mode")
	if raw == "" {
		raw = s.cfg.DefaultView
	}
	mode, err := timeline.ParseMode(raw)
	if err != nil {
		mode = timeline.ModeMonth
	}

	loc := s.cfg.Location()
	ref := now.In(loc)
	if v := q.Get("ref"); v != "" {
		ref, err = time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return "", timeline.Window{}, fmt.Errorf("invalid ref %q, want YYYY-MM-DD", v)
		}
	}
	return mode, timeline.ResolveWeekStart(mode, ref, s.cfg.FirstWeekday()), nil
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.clock.Now()
	q := r.URL.Query()

	mode, win, err := s.resolveWindow(q, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		appLog.Error("api timeline: list entities failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load entities")
		return
	}
	f := filterFromQuery(q)
	entities = f.Apply(entities)

	milestones, truncated := s.Milestones(ctx, win)
	milestones = f.Apply(milestones)

	writeJSON(w, http.StatusOK, timelineResponse{
		Mode:          mode,
		Window:        win,
		Now:           now,
		Rows:          render.BuildRows(entities, win, now),
		Milestones:    render.BuildRows(milestones, win, now),
		TruncatedUIDs: truncated,
	})
}

func (s *Server) handleTimelineSVG(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.clock.Now()
	q := r.URL.Query()

	mode, win, err := s.resolveWindow(q, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		appLog.Error("api timeline.svg: list entities failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load entities")
		return
	}
	milestones, _ := s.Milestones(ctx, win)
	f := filterFromQuery(q)
	all := append(f.Apply(entities), f.Apply(milestones)...)

	title := fmt.Sprintf("%s view, %s", mode, win.Start.Format("January 2006"))
	svg := render.SVG(win, render.BuildRows(all, win, now), now, render.SVGOptions{Title: title})

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

// handleReschedule applies a timeline drop. The original dates are captured
// before the write; if persistence fails they are returned so the client
// reverts the bar.
func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.clock.Now()
	id := r.PathValue("id")

	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	q := url.Values{}
	if req.Mode != "" {
		q.Set("mode", req.Mode)
	}
	if req.Ref != "" {
		q.Set("ref", req.Ref)
	}
	_, win, err := s.resolveWindow(q, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	original, err := s.store.GetEntity(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		appLog.Error("api reschedule: get entity failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to load entity")
		return
	}

	result := timeline.Reschedule(req.DropFraction, win, original.StartDate, original.Deadline)
	if err := s.store.UpdateSchedule(ctx, model.UpdateFromDrag(id, result)); err != nil {
		appLog.Error("api reschedule: persist failed, reverting", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, rescheduleResponse{
			Entity: *original,
			Bar:    timeline.Position(original.Schedule(), win, now),
			Window: win,
			Error:  "failed to save new dates",
		})
		return
	}

	updated := *original
	updated.StartDate = model.Time(result.NewStartDate)
	updated.Deadline = model.Time(result.NewEndDate)
	appLog.Info("entity rescheduled", "id", id,
		"start", result.NewStartDate.Format(time.RFC3339),
		"deadline", result.NewEndDate.Format(time.RFC3339))

	writeJSON(w, http.StatusOK, rescheduleResponse{
		Entity: updated,
		Bar:    timeline.Position(updated.Schedule(), win, now),
		Window: win,
	})
}

// Milestones returns calendar feed events intersecting win as milestone
// entities. Feeds are fetched at most once per feedCacheTTL.
func (s *Server) Milestones(ctx context.Context, win timeline.Window) ([]model.Entity, []string) {
	if len(s.cfg.ICS) == 0 {
		return []model.Entity{}, nil
	}

	events, ok := s.cachedEvents()
	if !ok {
		// Requests that find the cache stale share one fetch. A caller
		// arriving just after that fetch finished sees the fresh cache.
		v, _, _ := s.refreshGroup.Do("feeds", func() (any, error) {
			if events, ok := s.cachedEvents(); ok {
				return events, nil
			}
			return s.refreshFeeds(ctx), nil
		})
		events = v.([]ics.ParsedEvent)
	}

	out, truncated := ics.ExpandMilestones(events, win, s.cfg.Location())
	if out == nil {
		out = []model.Entity{}
	}
	return out, truncated
}

// cachedEvents returns the cached feed events if they are younger than
// feedCacheTTL.
func (s *Server) cachedEvents() ([]ics.ParsedEvent, bool) {
	s.feedMu.RLock()
	defer s.feedMu.RUnlock()
	if s.feedCache == nil || s.clock.Now().Sub(s.feedCache.updatedAt) >= feedCacheTTL {
		return nil, false
	}
	return s.feedCache.events, true
}

// RefreshMilestones re-fetches every configured feed and replaces the
// cache. It returns the parsed events. Concurrent callers share one fetch.
func (s *Server) RefreshMilestones(ctx context.Context) []ics.ParsedEvent {
	v, _, _ := s.refreshGroup.Do("feeds", func() (any, error) {
		return s.refreshFeeds(ctx), nil
	})
	return v.([]ics.ParsedEvent)
}

func (s *Server) refreshFeeds(ctx context.Context) []ics.ParsedEvent {
	sources := s.sources()
	results, errs := s.fetcher.FetchAll(ctx, sources)
	if len(errs) > 0 {
		appLog.Error("one or more ICS fetches failed", errors.Join(errs...), "error_count", len(errs))
	}

	events := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		parsed, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("ICS parse failed for source", err, "id", res.Source.ID)
			continue
		}
		events = append(events, parsed...)
	}

	s.feedMu.Lock()
	s.feedCache = &feedCache{events: events, updatedAt: s.clock.Now()}
	s.feedMu.Unlock()

	appLog.Info("calendar feeds refreshed", "sources", len(sources), "events", len(events))
	return events
}

// sources builds fetcher sources from config. Feeds without an id use their
// name, then their URL.
func (s *Server) sources() []ics.Source {
	out := make([]ics.Source, 0, len(s.cfg.ICS))
	for _, c := range s.cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		if id == "" {
			id = c.URL
		}
		out = append(out, ics.Source{ID: id, URL: c.URL})
	}
	return out
}

// filterFromQuery reads kind, status, priority, project and q.
func filterFromQuery(q url.Values) aggregate.Filter {
	var f aggregate.Filter
	for _, k := range splitList(q.Get("kind")) {
		f.Kinds = append(f.Kinds, model.Kind(k))
	}
	for _, st := range splitList(q.Get("status")) {
		f.Statuses = append(f.Statuses, model.Status(st))
	}
	for _, p := range splitList(q.Get("priority")) {
		f.Priorities = append(f.Priorities, model.Priority(p))
	}
	f.ProjectID = q.Get("project")
	f.Search = q.Get("q")
	return f
}
