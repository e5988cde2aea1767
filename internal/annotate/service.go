// Package annotate applies user actions to annotation sessions and announces
// the resulting changes. The HTTP and gRPC surfaces both go through it.
package annotate

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/pubsub"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

// Publisher receives change events
type Publisher interface {
	Publish(pubsub.Event)
}

// Snapshot is the observable state of one session
type Snapshot struct {
	Session              string           `json:"session"`
	Schema               models.Schema    `json:"schema"`
	Selection            models.Selection `json:"selection"`
	Records              []models.Record  `json:"records"`
	SuppressingNextClick bool             `json:"suppressingNextClick"`
}

// Service ties the session registry to the roster source and the event bus
type Service struct {
	sessions *session.Registry
	roster   roster.Source
	events   Publisher
	schema   models.Schema
}

// NewService creates a Service. roster and events may be nil.
func NewService(sessions *session.Registry, src roster.Source, events Publisher, schema models.Schema) *Service {
	if !schema.Valid() {
		schema = models.SchemaV2
	}
	return &Service{
		sessions: sessions,
		roster:   src,
		events:   events,
		schema:   schema,
	}
}

// Schema returns the record schema of every session
func (s *Service) Schema() models.Schema {
	return s.schema
}

// Roster returns the roster source, which may be nil
func (s *Service) Roster() roster.Source {
	return s.roster
}

// Session returns the session for id, starting a new one when id is empty or unknown
func (s *Service) Session(id string) *session.Session {
	return s.sessions.Ensure(id)
}

// Lookup returns an existing session
func (s *Service) Lookup(id string) (*session.Session, bool) {
	return s.sessions.Get(id)
}

// Select validates and stores the form selection of a session
func (s *Service) Select(ctx context.Context, sess *session.Session, sel models.Selection) (models.Selection, error) {
	if err := sel.Validate(s.schema); err != nil {
		return models.Selection{}, err
	}
	sel = roster.Resolve(ctx, s.roster, sel)
	sess.SetSelection(sel)
	s.publish(pubsub.SelectionChanged(sess.ID, sel))
	return sel, nil
}

// Click observes a click at p made with sel in effect. Only an invalid
// selection is an error; ignored clicks are reported through the result.
// A click missing its team or player is ignored before the other fields are checked.
func (s *Service) Click(ctx context.Context, sess *session.Session, p models.Point, sel models.Selection) (session.ClickResult, error) {
	if !sel.Complete() {
		if sel.Validate(s.schema) == nil {
			sess.SetSelection(sel)
		}
		logger.Debug("Click ignored", "session", sess.ID, "x", p.X, "y", p.Y, "reason", session.ReasonMissingSelection)
		return session.ClickResult{Reason: session.ReasonMissingSelection}, nil
	}
	if err := sel.Validate(s.schema); err != nil {
		return session.ClickResult{}, err
	}
	// A player from another team's roster comes back without a player, so
	// the store ignores the click and the page offers the right roster.
	sel = roster.Resolve(ctx, s.roster, sel)
	sess.SetSelection(sel)

	var res session.ClickResult
	sess.Do(func(st *session.Store) {
		res = st.ObserveClick(p, sel)
	})

	if !res.Created {
		logger.Debug("Click ignored", "session", sess.ID, "x", p.X, "y", p.Y, "reason", res.Reason)
		return res, nil
	}

	logger.Info("Record created", "session", sess.ID, "record_id", res.Record.ID, "x", p.X, "y", p.Y)
	s.publish(pubsub.RecordCreated(sess.ID, res.Record))
	return res, nil
}

// Delete removes a record by id
func (s *Service) Delete(sess *session.Session, id string) session.DeleteResult {
	var res session.DeleteResult
	sess.Do(func(st *session.Store) {
		res = st.Delete(id)
	})

	if !res.Deleted {
		logger.Debug("Delete of unknown record", "session", sess.ID, "record_id", id)
		return res
	}

	logger.Info("Record deleted", "session", sess.ID, "record_id", id)
	s.publish(pubsub.RecordDeleted(sess.ID, id))
	return res
}

// Clear drops every record of the session
func (s *Service) Clear(sess *session.Session) {
	sess.Do(func(st *session.Store) {
		st.Clear()
	})
	logger.Info("Markers cleared", "session", sess.ID)
	s.publish(pubsub.MarkersCleared(sess.ID))
}

// Rows returns the export rows of the session
func (s *Service) Rows(sess *session.Session) ([]models.Row, error) {
	var (
		rows []models.Row
		err  error
	)
	sess.Do(func(st *session.Store) {
		rows, err = st.ExportRows()
	})
	return rows, err
}

// PrepareExport checks that an export can be offered: a team and a player are
// selected and at least one record exists.
func (s *Service) PrepareExport(sess *session.Session) error {
	if !sess.Selection().Complete() {
		return ErrExportNotReady
	}
	if _, err := s.Rows(sess); err != nil {
		if errors.Is(err, session.ErrEmptyExport) {
			return ErrExportNotReady
		}
		return err
	}
	return nil
}

// Snapshot returns a consistent view of the session
func (s *Service) Snapshot(sess *session.Session) Snapshot {
	snap := Snapshot{
		Session:   sess.ID,
		Schema:    s.schema,
		Selection: sess.Selection(),
	}
	sess.Do(func(st *session.Store) {
		snap.Records = st.Records()
		snap.SuppressingNextClick = st.SuppressingNextClick()
	})
	if snap.Records == nil {
		snap.Records = []models.Record{}
	}
	return snap
}

func (s *Service) publish(e pubsub.Event) {
	if s.events != nil {
		s.events.Publish(e)
	}
}
