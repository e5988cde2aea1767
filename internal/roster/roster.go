package roster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

// ErrUnknownTeam is returned when a team has no roster in the source
var ErrUnknownTeam = errors.New("unknown team")

// Player is one roster entry
type Player struct {
	Name       string `json:"name"`
	Handedness string `json:"handedness,omitempty"`
}

// Source lists teams and their players
type Source interface {
	Teams(ctx context.Context) ([]string, error)
	Players(ctx context.Context, team string) ([]Player, error)
}

// ParseError reports a roster that could not be read. Its message is meant to be
// shown to the user as is.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%sの読み込みに失敗しました: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("%sの読み込みに失敗しました: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Find returns the named player from a roster
func Find(players []Player, name string) (Player, bool) {
	i := slices.IndexFunc(players, func(p Player) bool { return p.Name == name })
	if i < 0 {
		return Player{}, false
	}
	return players[i], true
}

func normalizeHandedness(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" || slices.Contains(models.BatterHandedness, h) {
		return h, nil
	}
	return "", fmt.Errorf("unknown handedness %q", h)
}

// Resolve fills the selection's player handedness from the roster. A player
// missing from a roster that loads is dropped from the selection, leaving it
// incomplete. Rosters that fail to load leave sel unchanged.
func Resolve(ctx context.Context, src Source, sel models.Selection) models.Selection {
	if src == nil || !sel.Complete() {
		return sel
	}
	players, err := src.Players(ctx, sel.Team)
	if err != nil {
		return sel
	}
	p, ok := Find(players, sel.Player)
	if !ok {
		sel.Player = ""
		sel.PlayerHandedness = ""
		return sel
	}
	sel.PlayerHandedness = p.Handedness
	return sel
}
