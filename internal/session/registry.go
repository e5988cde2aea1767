package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

// Flash levels
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next page render
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	// Download is set once an export has been prepared.
	Download bool `json:"download,omitempty"`
}

// Session is one browser's annotation session
type Session struct {
	ID string

	mu        sync.Mutex
	store     *Store
	selection models.Selection
	flash     *Flash
	lastSeen  time.Time
}

// Do runs fn with exclusive access to the session's store
func (s *Session) Do(fn func(st *Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// Selection returns the last form selection submitted in this session
func (s *Session) Selection() models.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SetSelection remembers the current form selection
func (s *Session) SetSelection(sel models.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// SetFlash replaces the pending flash message
func (s *Session) SetFlash(f Flash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = &f
}

// TakeFlash returns and clears the pending flash message
func (s *Session) TakeFlash() *Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flash
	s.flash = nil
	return f
}

// Registry owns every live session. Sessions never share state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a registry whose sessions use opts and expire after ttl of inactivity.
// A zero ttl disables expiry.
func NewRegistry(opts Options, ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns an existing session and marks it as seen
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	r.touch(sess)
	return sess, true
}

// Ensure returns the session with the given id, creating a fresh one when the id
// is empty or unknown. The returned session's ID may differ from id.
func (r *Registry) Ensure(id string) *Session {
	if id != "" {
		if sess, ok := r.Get(id); ok {
			return sess
		}
	}

	sess := &Session{
		ID:        uuid.NewString(),
		store:     NewStore(r.opts),
		selection: models.DefaultSelection(),
		lastSeen:  r.now(),
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	total := len(r.sessions)
	r.mu.Unlock()

	logger.Debug("Session started", "session", sess.ID, "total_sessions", total)
	return sess
}

// Remove discards a session
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the ttl and returns how many were removed
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				logger.Info("Expired idle sessions", "removed", n, "remaining", r.Len())
			}
		}
	}
}

func (r *Registry) touch(sess *Session) {
	sess.mu.Lock()
	sess.lastSeen = r.now()
	sess.mu.Unlock()
}
