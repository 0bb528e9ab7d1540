package web

import (
	"errors"
	"net/http"

	"ganttcal/internal/aggregate"
	"ganttcal/internal/ics"
	appLog "ganttcal/internal/log"
	"ganttcal/internal/model"
	"ganttcal/internal/store"
)

// summaryResponse is the JSON shape of /api/summary. Groups is only set
// when group_by is given.
type summaryResponse struct {
	Summary aggregate.Snapshot            `json:"summary"`
	GroupBy aggregate.GroupKey            `json:"group_by,omitempty"`
	Groups  map[string]aggregate.Snapshot `json:"groups,omitempty"`
}

// handleSummary recomputes the roll-up over the filtered entity list.
//
// GET /api/summary?group_by=status&kind=project&status=active,review&q=web
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.clock.Now()
	q := r.URL.Query()

	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		appLog.Error("api summary: list entities failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load entities")
		return
	}
	entities = filterFromQuery(q).Apply(entities)

	resp := summaryResponse{Summary: aggregate.Aggregate(entities, now)}
	if key := q.Get("group_by"); key != "" {
		groups, err := aggregate.GroupBy(entities, aggregate.GroupKey(key), now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.GroupBy = aggregate.GroupKey(key)
		resp.Groups = groups
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		appLog.Error("api entities: list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load entities")
		return
	}
	entities = filterFromQuery(q).Apply(entities)
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var e model.Entity
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if e.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if e.Kind == "" {
		e.Kind = model.KindTask
	}
	if !e.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown kind "+string(e.Kind))
		return
	}

	if err := s.store.CreateEntity(r.Context(), &e); err != nil {
		appLog.Error("api entities: create failed", err, "name", e.Name)
		writeError(w, http.StatusInternalServerError, "failed to create entity")
		return
	}
	appLog.Info("entity created", "id", e.ID, "kind", e.Kind)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.store.GetEntity(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		appLog.Error("api entities: get failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to load entity")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteEntity(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		appLog.Error("api entities: delete failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete entity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Status model.Status `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil || body.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	err := s.store.UpdateStatus(r.Context(), id, body.Status)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		appLog.Error("api entities: status update failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	s.handleGetEntity(w, r)
}

// handleCalendar exports stored entities as an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	entities, err := s.store.ListEntities(r.Context(), model.KindProject, model.KindTask, model.KindSprint)
	if err != nil {
		appLog.Error("api calendar: list entities failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load entities")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics.ExportCalendar(entities, s.clock.Now())))
}
