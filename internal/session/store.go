package session

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

// ErrEmptyExport is returned by ExportRows when there is nothing to export.
var ErrEmptyExport = errors.New("no records to export")

// Reason explains why a click did not produce a record
type Reason string

const (
	ReasonMissingSelection Reason = "missing selection"
	ReasonSuppressed       Reason = "post-delete suppression"
	ReasonDuplicate        Reason = "duplicate coordinate"
	ReasonOutOfBounds      Reason = "out of bounds"
)

// ClickResult is the outcome of ObserveClick. Record is only set when Created is true.
type ClickResult struct {
	Created bool
	Record  models.Record
	Reason  Reason
}

// DeleteResult is the outcome of Delete. Rerender is true whenever a record was removed.
type DeleteResult struct {
	Deleted  bool
	Record   models.Record
	Rerender bool
}

// Options configures a Store
type Options struct {
	Schema models.Schema
	// Width and Height bound accepted clicks to [0,Width) x [0,Height). Zero disables the check.
	Width  int
	Height int
	// NewID generates record ids. Defaults to random UUIDs.
	NewID func() string
}

// Store holds the annotation records of one session together with the
// bookkeeping that makes click handling idempotent and delete-safe.
// A Store is not safe for concurrent use; Session serializes access.
type Store struct {
	opts    Options
	records []models.Record

	// used is derived from records and rebuilt after every removal.
	used         map[models.Point]struct{}
	last         *models.Point
	suppressNext bool
}

// NewStore creates an empty store
func NewStore(opts Options) *Store {
	if !opts.Schema.Valid() {
		opts.Schema = models.SchemaV2
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{
		opts: opts,
		used: make(map[models.Point]struct{}),
	}
}

// Schema returns the record schema the store was created with
func (s *Store) Schema() models.Schema {
	return s.opts.Schema
}

// ObserveClick decides whether a click on the field image becomes a new record.
func (s *Store) ObserveClick(p models.Point, sel models.Selection) ClickResult {
	if !sel.Complete() {
		return ClickResult{Reason: ReasonMissingSelection}
	}

	// The flag swallows exactly one observed click, recorded or not.
	if s.suppressNext {
		s.suppressNext = false
		return ClickResult{Reason: ReasonSuppressed}
	}

	if !s.inBounds(p) {
		return ClickResult{Reason: ReasonOutOfBounds}
	}

	if s.isDuplicate(p) {
		return ClickResult{Reason: ReasonDuplicate}
	}

	rec := models.Record{
		ID:        s.opts.NewID(),
		Selection: sel,
		Point:     p,
	}
	if s.opts.Schema == models.SchemaV1 {
		rec.PlayerHandedness = ""
		rec.PitchCourse = ""
		rec.PitchHeight = ""
	}

	s.records = append(s.records, rec)
	s.used[p] = struct{}{}
	last := p
	s.last = &last

	return ClickResult{Created: true, Record: rec}
}

// Delete removes the record with the given id and arms post-delete suppression.
func (s *Store) Delete(id string) DeleteResult {
	idx := slices.IndexFunc(s.records, func(r models.Record) bool { return r.ID == id })
	if idx < 0 {
		return DeleteResult{}
	}

	removed := s.records[idx]
	s.records = slices.Delete(s.records, idx, idx+1)
	s.rebuild()
	s.suppressNext = true

	return DeleteResult{Deleted: true, Record: removed, Rerender: true}
}

// Clear drops every record and resets all bookkeeping to its initial state
func (s *Store) Clear() {
	s.records = nil
	s.used = make(map[models.Point]struct{})
	s.last = nil
	s.suppressNext = false
}

// ExportRows returns the records in insertion order as export rows without ids
func (s *Store) ExportRows() ([]models.Row, error) {
	if len(s.records) == 0 {
		return nil, ErrEmptyExport
	}
	rows := make([]models.Row, 0, len(s.records))
	for _, r := range s.records {
		rows = append(rows, r.Row(s.opts.Schema))
	}
	return rows, nil
}

// Records returns a copy of the records in insertion order
func (s *Store) Records() []models.Record {
	return slices.Clone(s.records)
}

// Len returns the number of live records
func (s *Store) Len() int {
	return len(s.records)
}

// SuppressingNextClick reports whether the next observed click will be swallowed
func (s *Store) SuppressingNextClick() bool {
	return s.suppressNext
}

func (s *Store) inBounds(p models.Point) bool {
	if p.X < 0 || p.Y < 0 {
		return false
	}
	if s.opts.Width > 0 && p.X >= s.opts.Width {
		return false
	}
	if s.opts.Height > 0 && p.Y >= s.opts.Height {
		return false
	}
	return true
}

// isDuplicate applies the schema's duplicate rule: v1 only compares with the
// last recorded point, v2 with every live record.
func (s *Store) isDuplicate(p models.Point) bool {
	if s.opts.Schema == models.SchemaV1 {
		return s.last != nil && *s.last == p
	}
	_, ok := s.used[p]
	return ok
}

func (s *Store) rebuild() {
	s.used = make(map[models.Point]struct{}, len(s.records))
	for _, r := range s.records {
		s.used[r.Point] = struct{}{}
	}
	s.last = nil
	if n := len(s.records); n > 0 {
		last := s.records[n-1].Point
		s.last = &last
	}
}
