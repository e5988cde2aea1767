package models

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// ErrInvalidSelection is returned when a categorical value is outside its vocabulary.
var ErrInvalidSelection = errors.New("invalid selection")

// Schema identifies the record layout of one app version
type Schema int

const (
	// SchemaV1 is the original layout without batter handedness or pitch location.
	SchemaV1 Schema = 1
	// SchemaV2 adds batter handedness, pitch course and pitch height.
	SchemaV2 Schema = 2
)

// Valid reports whether s is a known schema version
func (s Schema) Valid() bool {
	return s == SchemaV1 || s == SchemaV2
}

// Point is a pixel coordinate on the field image
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Selection is the form context in effect when the field image is clicked
type Selection struct {
	Team              string `json:"team"`
	Player            string `json:"player"`
	PlayerHandedness  string `json:"playerHandedness,omitempty"`
	OpponentType      string `json:"opponentType"`
	PitcherHandedness string `json:"pitcherHandedness"`
	RunnerState       string `json:"runnerState"`
	StrikeCount       int    `json:"strikeCount"`
	PitchCourse       string `json:"pitchCourse,omitempty"`
	PitchHeight       string `json:"pitchHeight,omitempty"`
	PitchType         string `json:"pitchType"`
	HitType           string `json:"hitType"`
}

// Record is one labeled click. Records are never mutated after creation.
type Record struct {
	ID string `json:"id"`
	Selection
	Point
}

// Row is an export row keyed by column name
type Row map[string]string

var (
	columnsV1 = []string{
		"team_name", "player_name", "opponents", "pitcherLR", "runners",
		"strikes", "pitch_type", "hit_type", "x_coord", "y_coord",
	}
	columnsV2 = []string{
		"team_name", "player_name", "batter_LR", "opponents", "pitcherLR", "runners",
		"strikes", "pitch_course", "pitch_height", "pitch_type", "hit_type", "x_coord", "y_coord",
	}
)

// Columns returns the export header for a schema, in output order
func Columns(s Schema) []string {
	if s == SchemaV1 {
		return slices.Clone(columnsV1)
	}
	return slices.Clone(columnsV2)
}

// Row flattens the record into export columns. The id is never exported.
func (r Record) Row(s Schema) Row {
	row := Row{
		"team_name":   r.Team,
		"player_name": r.Player,
		"opponents":   r.OpponentType,
		"pitcherLR":   r.PitcherHandedness,
		"runners":     r.RunnerState,
		"strikes":     strconv.Itoa(r.StrikeCount),
		"pitch_type":  r.PitchType,
		"hit_type":    r.HitType,
		"x_coord":     strconv.Itoa(r.X),
		"y_coord":     strconv.Itoa(r.Y),
	}
	if s != SchemaV1 {
		row["batter_LR"] = r.PlayerHandedness
		row["pitch_course"] = r.PitchCourse
		row["pitch_height"] = r.PitchHeight
	}
	return row
}

// Complete reports whether both team and player are chosen
func (s Selection) Complete() bool {
	return s.Team != "" && s.Player != ""
}

type vocabCheck struct {
	field string
	value string
	vocab []string
}

// Validate checks every categorical field against its vocabulary.
// Team and player are free text and are not checked here.
func (s Selection) Validate(schema Schema) error {
	checks := []vocabCheck{
		{"opponentType", s.OpponentType, OpponentTypes},
		{"pitcherHandedness", s.PitcherHandedness, PitcherHandedness},
		{"runnerState", s.RunnerState, RunnerStates},
		{"pitchType", s.PitchType, PitchTypes},
		{"hitType", s.HitType, HitTypes},
	}
	if schema != SchemaV1 {
		checks = append(checks,
			vocabCheck{"pitchCourse", s.PitchCourse, PitchCourses},
			vocabCheck{"pitchHeight", s.PitchHeight, PitchHeights},
		)
		if s.PlayerHandedness != "" {
			checks = append(checks, vocabCheck{"playerHandedness", s.PlayerHandedness, BatterHandedness})
		}
	}

	for _, c := range checks {
		if !slices.Contains(c.vocab, c.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidSelection, c.field, c.value)
		}
	}
	if !slices.Contains(StrikeCounts, s.StrikeCount) {
		return fmt.Errorf("%w: strikeCount %d", ErrInvalidSelection, s.StrikeCount)
	}
	return nil
}
