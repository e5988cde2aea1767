package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

type clickRequest struct {
	X         *int              `json:"x"`
	Y         *int              `json:"y"`
	Selection *models.Selection `json:"selection,omitempty"`
}

type clickResponse struct {
	Created bool           `json:"created"`
	Reason  session.Reason `json:"reason,omitempty"`
	Record  *models.Record `json:"record,omitempty"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

type deleteResponse struct {
	Deleted  bool           `json:"deleted"`
	Rerender bool           `json:"rerender"`
	Record   *models.Record `json:"record,omitempty"`
}

type rowsResponse struct {
	Columns []string     `json:"columns"`
	Rows    []models.Row `json:"rows"`
}

// GetSession returns a snapshot of the caller's session
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)
	writeJSON(w, http.StatusOK, h.svc.Snapshot(sess))
}

// APISelect stores a selection sent as JSON
func (h *Handlers) APISelect(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	var sel models.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		logger.Warn("Failed to decode select request", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel, err := h.svc.Select(r.Context(), sess, sel)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// APIClick observes a click. Without a selection in the body the session's
// stored selection applies.
func (h *Handlers) APIClick(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	var req clickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("Failed to decode click request", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.X == nil || req.Y == nil {
		writeJSONError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	sel := sess.Selection()
	if req.Selection != nil {
		sel = *req.Selection
	}

	res, err := h.svc.Click(r.Context(), sess, models.Point{X: *req.X, Y: *req.Y}, sel)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := clickResponse{Created: res.Created, Reason: res.Reason}
	if res.Created {
		resp.Record = &res.Record
	}
	writeJSON(w, http.StatusOK, resp)
}

// APIDeleteRecord removes a record by id; unknown ids answer 404
func (h *Handlers) APIDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)

	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ID == "" {
		writeJSONError(w, http.StatusBadRequest, "id is required")
		return
	}

	res := h.svc.Delete(sess, req.ID)
	if !res.Deleted {
		writeJSON(w, http.StatusNotFound, deleteResponse{})
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, Rerender: res.Rerender, Record: &res.Record})
}

// APIClear drops every record of the session
func (h *Handlers) APIClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	h.svc.Clear(sess)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// APIRows returns the export rows; an empty session answers 409
func (h *Handlers) APIRows(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)

	rows, err := h.svc.Rows(sess)
	if errors.Is(err, session.ErrEmptyExport) {
		writeJSONError(w, http.StatusConflict, msgExportNotReady)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Columns: models.Columns(h.svc.Schema()), Rows: rows})
}

// ListTeams returns the team names known to the roster source
func (h *Handlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	src := h.svc.Roster()
	if src == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	teams, err := src.Teams(r.Context())
	if err != nil {
		logger.Error("Failed to list teams", "error", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if teams == nil {
		teams = []string{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// ListPlayers returns the roster of ?team=. Unreadable rosters answer 422
// with the message shown in the UI.
func (h *Handlers) ListPlayers(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	team := r.URL.Query().Get("team")
	if team == "" {
		writeJSONError(w, http.StatusBadRequest, "team is required")
		return
	}
	src := h.svc.Roster()
	if src == nil {
		writeJSONError(w, http.StatusNotFound, roster.ErrUnknownTeam.Error())
		return
	}

	players, err := src.Players(r.Context(), team)
	var parseErr *roster.ParseError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, players)
	case errors.Is(err, roster.ErrUnknownTeam):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &parseErr):
		logger.Warn("Roster could not be parsed", "error", err, "team", team)
		writeJSONError(w, http.StatusUnprocessableEntity, parseErr.Error())
	default:
		logger.Error("Failed to load roster", "error", err, "team", team)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// EventsSSE streams the caller's session events as Server-Sent Events
func (h *Handlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := h.pubsub.Subscribe()
	defer h.pubsub.Unsubscribe(events)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"session\":%q}\n\n", sess.ID)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Session != "" && event.Session != sess.ID {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected", "session", sess.ID)
			return
		}
	}
}
