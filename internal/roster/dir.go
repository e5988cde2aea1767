package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
)

// exportSuffix marks files written by the exporter; they are never rosters.
const exportSuffix = "_data.csv"

// DirSource reads one headerless CSV roster per team from a directory.
// The team name is the file name without ".csv".
type DirSource struct {
	dir string
	enc encoding.Encoding
}

// NewDirSource creates a directory roster source decoding files with enc
func NewDirSource(dir string, enc encoding.Encoding) *DirSource {
	return &DirSource{dir: dir, enc: enc}
}

// Teams lists roster files, sorted by name
func (d *DirSource) Teams(ctx context.Context) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(d.dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list roster files: %w", err)
	}

	teams := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		if strings.HasSuffix(base, exportSuffix) {
			continue
		}
		teams = append(teams, strings.TrimSuffix(base, ".csv"))
	}
	sort.Strings(teams)
	return teams, nil
}

// Players parses the roster file of a team
func (d *DirSource) Players(ctx context.Context, team string) ([]Player, error) {
	if team == "" || strings.ContainsAny(team, `/\`) || team != filepath.Base(team) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	name := team + ".csv"
	if strings.HasSuffix(name, exportSuffix) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}

	f, err := os.Open(filepath.Join(d.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	if err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	defer f.Close()

	players, err := parseCSV(transform.NewReader(f, d.enc.NewDecoder()), name)
	if err != nil {
		logger.Warn("Roster parse failed", "file", name, "error", err)
		return nil, err
	}
	logger.Debug("Roster loaded", "file", name, "players", len(players))
	return players, nil
}

// parseCSV reads name[,handedness] rows. Blank rows are skipped.
func parseCSV(r io.Reader, source string) ([]Player, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var players []Player
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.ParseError already carries the line number.
			return nil, &ParseError{Source: source, Err: err}
		}
		line, _ := cr.FieldPos(0)

		name := strings.TrimSpace(rec[0])
		if name == "" {
			continue
		}
		p := Player{Name: name}
		if len(rec) > 1 {
			h, err := normalizeHandedness(rec[1])
			if err != nil {
				return nil, &ParseError{Source: source, Line: line, Err: err}
			}
			p.Handedness = h
		}
		players = append(players, p)
	}

	if len(players) == 0 {
		return nil, &ParseError{Source: source, Err: errors.New("no players")}
	}
	return players, nil
}
