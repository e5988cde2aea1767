package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

// Form field names follow the export column names.
const (
	fieldTeam        = "team_name"
	fieldPlayer      = "player_name"
	fieldOpponents   = "opponents"
	fieldPitcherLR   = "pitcherLR"
	fieldRunners     = "runners"
	fieldStrikes     = "strikes"
	fieldPitchCourse = "pitch_course"
	fieldPitchHeight = "pitch_height"
	fieldPitchType   = "pitch_type"
	fieldHitType     = "hit_type"
)

// selectionFromForm reads the selection controls of a posted form. Controls
// absent from the form keep their value from current. ok is false when the
// form carries no selection at all.
func selectionFromForm(r *http.Request, current models.Selection) (sel models.Selection, ok bool, err error) {
	form := r.PostForm
	if !form.Has(fieldTeam) && !form.Has(fieldOpponents) {
		return current, false, nil
	}

	value := func(key, fallback string) string {
		if !form.Has(key) {
			return fallback
		}
		return strings.TrimSpace(form.Get(key))
	}

	sel = current
	sel.Team = value(fieldTeam, current.Team)
	sel.Player = value(fieldPlayer, current.Player)
	sel.OpponentType = value(fieldOpponents, current.OpponentType)
	sel.PitcherHandedness = value(fieldPitcherLR, current.PitcherHandedness)
	sel.RunnerState = value(fieldRunners, current.RunnerState)
	sel.PitchCourse = value(fieldPitchCourse, current.PitchCourse)
	sel.PitchHeight = value(fieldPitchHeight, current.PitchHeight)
	sel.PitchType = value(fieldPitchType, current.PitchType)
	sel.HitType = value(fieldHitType, current.HitType)

	if sel.Team != current.Team || sel.Player != current.Player {
		sel.PlayerHandedness = ""
	}

	if form.Has(fieldStrikes) {
		n, err := strconv.Atoi(strings.TrimSpace(form.Get(fieldStrikes)))
		if err != nil {
			return current, true, fmt.Errorf("%w: strikes %q", models.ErrInvalidSelection, form.Get(fieldStrikes))
		}
		sel.StrikeCount = n
	}
	return sel, true, nil
}

// clickPoint reads the coordinates an <input type="image" name="field"> submits
func clickPoint(r *http.Request) (models.Point, error) {
	x, err := strconv.Atoi(r.PostForm.Get("field.x"))
	if err != nil {
		return models.Point{}, fmt.Errorf("invalid x coordinate: %w", err)
	}
	y, err := strconv.Atoi(r.PostForm.Get("field.y"))
	if err != nil {
		return models.Point{}, fmt.Errorf("invalid y coordinate: %w", err)
	}
	return models.Point{X: x, Y: y}, nil
}
