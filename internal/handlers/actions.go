package handlers

import (
	"errors"
	"net/http"

	"github.com/Billy-Davies-2/hitchart-input/internal/annotate"
	"github.com/Billy-Davies-2/hitchart-input/internal/export"
	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

// formSelection parses a posted form and returns the selection it carries,
// falling back to the session's selection. It writes the error response and
// returns ok=false when the form is unusable.
func formSelection(w http.ResponseWriter, r *http.Request, sess *session.Session) (sel models.Selection, present, ok bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return models.Selection{}, false, false
	}
	sel, present, err := selectionFromForm(r, sess.Selection())
	if err != nil {
		logger.Warn("Rejected selection", "error", err, "session", sess.ID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.Selection{}, false, false
	}
	return sel, present, true
}

// applyFormSelection stores the selection carried by a form post, if any
func (h *Handlers) applyFormSelection(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	sel, present, ok := formSelection(w, r, sess)
	if !ok || !present {
		return ok
	}
	if _, err := h.svc.Select(r.Context(), sess, sel); err != nil {
		logger.Warn("Rejected selection", "error", err, "session", sess.ID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Select stores the form selection without recording anything
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	if !h.applyFormSelection(w, r, sess) {
		return
	}
	redirectHome(w, r)
}

// Click handles a click on the field image
func (h *Handlers) Click(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	sel, _, ok := formSelection(w, r, sess)
	if !ok {
		return
	}

	p, err := clickPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Click(r.Context(), sess, p, sel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if res.Reason == session.ReasonMissingSelection {
		sess.SetFlash(session.Flash{Level: session.FlashWarning, Message: msgMissingSelection})
	}
	redirectHome(w, r)
}

// DeleteRecord removes one record by id
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	if res := h.svc.Delete(sess, r.PostForm.Get("id")); !res.Deleted {
		sess.SetFlash(session.Flash{Level: session.FlashWarning, Message: msgRecordNotFound})
	}
	redirectHome(w, r)
}

// Clear drops every marker of the session
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	if !h.applyFormSelection(w, r, sess) {
		return
	}
	h.svc.Clear(sess)
	redirectHome(w, r)
}

// PrepareExport offers the CSV download once a team, a player and records exist
func (h *Handlers) PrepareExport(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := h.session(w, r)
	if !h.applyFormSelection(w, r, sess) {
		return
	}

	err := h.svc.PrepareExport(sess)
	switch {
	case err == nil:
		sess.SetFlash(session.Flash{Level: session.FlashSuccess, Message: msgExportReady, Download: true})
	case errors.Is(err, annotate.ErrExportNotReady):
		sess.SetFlash(session.Flash{Level: session.FlashWarning, Message: msgExportNotReady})
	default:
		logger.Error("Failed to prepare export", "error", err, "session", sess.ID)
		sess.SetFlash(session.Flash{Level: session.FlashError, Message: msgExportFailed})
	}
	redirectHome(w, r)
}

// DownloadCSV serves the session's records as hitting_data.csv
func (h *Handlers) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sess := h.session(w, r)

	rows, err := h.svc.Rows(sess)
	if errors.Is(err, session.ErrEmptyExport) {
		http.Error(w, msgExportNotReady, http.StatusConflict)
		return
	}
	if err != nil {
		logger.Error("Failed to collect export rows", "error", err, "session", sess.ID)
		http.Error(w, msgExportFailed, http.StatusInternalServerError)
		return
	}

	data, err := h.encoder.Encode(models.Columns(h.svc.Schema()), rows)
	if err != nil {
		logger.Error("Failed to encode export", "error", err, "session", sess.ID)
		http.Error(w, msgExportFailed+": "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	logger.Info("Export downloaded", "session", sess.ID, "rows", len(rows), "bytes", len(data))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Write(data)
}
