package handlers

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/Billy-Davies-2/hitchart-input/internal/annotate"
	"github.com/Billy-Davies-2/hitchart-input/internal/export"
	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/pubsub"
	"github.com/Billy-Davies-2/hitchart-input/internal/render"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionCookie carries the session id of a browser
const SessionCookie = "hitchart_session"

const maxBodyBytes = 1 << 20

// User-facing messages
const (
	msgExportReady      = "データ準備が完了しました！"
	msgExportNotReady   = "チームと選手を選択し、マーカーを追加してください。"
	msgMissingSelection = "チームと選手を選択してください。"
	msgRecordNotFound   = "指定された記録は既に削除されています。"
	msgExportFailed     = "CSVの作成に失敗しました"
)

// Options wires the handlers to the rest of the application
type Options struct {
	Service  *annotate.Service
	Renderer *render.Renderer
	Encoder  *export.Encoder
	PubSub   *pubsub.PubSub
	// SecureCookies marks the session cookie Secure; set behind TLS.
	SecureCookies bool
}

// Handlers serves the annotation UI and its JSON API
type Handlers struct {
	svc      *annotate.Service
	renderer *render.Renderer
	encoder  *export.Encoder
	pubsub   *pubsub.PubSub
	secure   bool
	pages    *template.Template
}

// New creates the handlers and parses the embedded page templates
func New(opts Options) (*Handlers, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Handlers{
		svc:      opts.Service,
		renderer: opts.Renderer,
		encoder:  opts.Encoder,
		pubsub:   opts.PubSub,
		secure:   opts.SecureCookies,
		pages:    pages,
	}, nil
}

// Register adds every UI and API route to mux
func (h *Handlers) Register(mux *http.ServeMux) {
	// Pages and form actions
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/field.png", h.FieldImage)
	mux.HandleFunc("/select", h.Select)
	mux.HandleFunc("/click", h.Click)
	mux.HandleFunc("/records/delete", h.DeleteRecord)
	mux.HandleFunc("/clear", h.Clear)
	mux.HandleFunc("/export/prepare", h.PrepareExport)
	mux.HandleFunc("/export/"+export.FileName, h.DownloadCSV)

	// JSON API
	mux.HandleFunc("/api/session", h.GetSession)
	mux.HandleFunc("/api/select", h.APISelect)
	mux.HandleFunc("/api/click", h.APIClick)
	mux.HandleFunc("/api/records/delete", h.APIDeleteRecord)
	mux.HandleFunc("/api/clear", h.APIClear)
	mux.HandleFunc("/api/rows", h.APIRows)
	mux.HandleFunc("/api/teams", h.ListTeams)
	mux.HandleFunc("/api/players", h.ListPlayers)

	// SSE for realtime updates
	mux.HandleFunc("/api/events", h.EventsSSE)
}

// session returns the caller's session, issuing a cookie when a new one starts
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess := h.svc.Session(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
