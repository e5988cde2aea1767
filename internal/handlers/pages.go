package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/render"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

type vocabulary struct {
	OpponentTypes     []string
	PitcherHandedness []string
	RunnerStates      []string
	StrikeCounts      []int
	PitchCourses      []string
	PitchHeights      []string
	PitchTypes        []string
	HitTypes          []string
}

var formVocabulary = vocabulary{
	OpponentTypes:     models.OpponentTypes,
	PitcherHandedness: models.PitcherHandedness,
	RunnerStates:      models.RunnerStates,
	StrikeCounts:      models.StrikeCounts,
	PitchCourses:      models.PitchCourses,
	PitchHeights:      models.PitchHeights,
	PitchTypes:        models.PitchTypes,
	HitTypes:          models.HitTypes,
}

type pageData struct {
	Flash       *session.Flash
	Selection   models.Selection
	V2          bool
	Vocab       vocabulary
	Teams       []string
	TeamsError  string
	Players     []roster.Player
	RosterError string
	Records     []models.Record
	Suppressing bool
	ImageWidth  int
	ImageHeight int
	Version     string
}

// Index renders the annotation page
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	sess := h.session(w, r)
	snap := h.svc.Snapshot(sess)
	bounds := h.renderer.Bounds()

	data := pageData{
		Flash:       sess.TakeFlash(),
		Selection:   snap.Selection,
		V2:          snap.Schema != models.SchemaV1,
		Vocab:       formVocabulary,
		Records:     snap.Records,
		Suppressing: snap.SuppressingNextClick,
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
		Version:     strconv.FormatInt(time.Now().UnixNano(), 36),
	}
	h.loadRoster(r, &data)

	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, "base.html", data); err != nil {
		logger.Error("Failed to render page", "error", err, "session", sess.ID)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// loadRoster fills the team and player lists. Roster failures are shown on
// the page and leave the player list empty.
func (h *Handlers) loadRoster(r *http.Request, data *pageData) {
	src := h.svc.Roster()
	if src == nil {
		return
	}

	teams, err := src.Teams(r.Context())
	if err != nil {
		logger.Warn("Failed to list teams", "error", err)
		data.TeamsError = err.Error()
	}
	data.Teams = teams

	team := data.Selection.Team
	if team == "" {
		return
	}
	players, err := src.Players(r.Context(), team)
	switch {
	case err == nil:
		data.Players = players
	case errors.Is(err, roster.ErrUnknownTeam):
		data.RosterError = fmt.Sprintf("%s.csvが見つかりません。", team)
	default:
		logger.Warn("Failed to load roster", "error", err, "team", team)
		data.RosterError = err.Error()
	}
}

// FieldImage renders the field with the session's markers as PNG
func (h *Handlers) FieldImage(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	sess := h.session(w, r)
	markers := render.MarkersFor(h.svc.Snapshot(sess).Records)

	var buf bytes.Buffer
	if err := h.renderer.WritePNG(&buf, markers); err != nil {
		logger.Error("Failed to render field image", "error", err, "session", sess.ID)
		http.Error(w, "Failed to render image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
