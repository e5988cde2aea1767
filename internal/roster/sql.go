package roster

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
)

const rosterSchema = `
CREATE TABLE IF NOT EXISTS roster_players (
	team TEXT NOT NULL,
	name TEXT NOT NULL,
	handedness TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (team, name)
)`

// SQLSource serves rosters from a roster_players table in SQLite or Postgres
type SQLSource struct {
	db     *sql.DB
	driver string
}

// NewSQLiteSource opens (and if needed creates) a SQLite roster database
func NewSQLiteSource(path string) (*SQLSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; keep imports from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLSource{db: db, driver: "sqlite3"}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresSource connects to Postgres, retrying the initial ping a few times
// to ride out DNS and startup delays.
func NewPostgresSource(connString string) (*SQLSource, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	const maxRetries = 5
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			break
		}
		logger.Warn("Postgres not reachable yet", "attempt", i+1, "error", lastErr)
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	s := &SQLSource{db: db, driver: "postgres"}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLSource) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, rosterSchema); err != nil {
		return fmt.Errorf("failed to create roster schema: %w", err)
	}
	return nil
}

// ph returns the n-th (1-based) bind placeholder for the driver
func (s *SQLSource) ph(n int) string {
	if s.driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Teams lists distinct team names in order
func (s *SQLSource) Teams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT team FROM roster_players ORDER BY team`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []string{}
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// Players returns a team's roster in position order
func (s *SQLSource) Players(ctx context.Context, team string) ([]Player, error) {
	query := fmt.Sprintf(`SELECT name, handedness FROM roster_players WHERE team = %s ORDER BY position, name`, s.ph(1))
	rows, err := s.db.QueryContext(ctx, query, team)
	if err != nil {
		return nil, &ParseError{Source: team, Err: err}
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.Name, &p.Handedness); err != nil {
			return nil, &ParseError{Source: team, Err: err}
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &ParseError{Source: team, Err: err}
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	return players, nil
}

// ReplaceTeam overwrites a team's roster with players, keeping their order
func (s *SQLSource) ReplaceTeam(ctx context.Context, team string, players []Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del := fmt.Sprintf(`DELETE FROM roster_players WHERE team = %s`, s.ph(1))
	if _, err := tx.ExecContext(ctx, del, team); err != nil {
		return fmt.Errorf("failed to clear roster for %s: %w", team, err)
	}

	ins := fmt.Sprintf(`INSERT INTO roster_players (team, name, handedness, position) VALUES (%s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	for i, p := range players {
		h, err := normalizeHandedness(p.Handedness)
		if err != nil {
			return fmt.Errorf("player %s: %w", p.Name, err)
		}
		if _, err := tx.ExecContext(ctx, ins, team, p.Name, h, i); err != nil {
			return fmt.Errorf("failed to insert player %s: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// Ping checks database connectivity
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Import copies every team from src into dst. Teams whose roster fails to parse
// are skipped and reported in the returned error list.
func Import(ctx context.Context, dst *SQLSource, src Source) (int, []error) {
	teams, err := src.Teams(ctx)
	if err != nil {
		return 0, []error{err}
	}

	var errs []error
	imported := 0
	for _, team := range teams {
		players, err := src.Players(ctx, team)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := dst.ReplaceTeam(ctx, team, players); err != nil {
			errs = append(errs, err)
			continue
		}
		imported++
		logger.Info("Imported roster", "team", team, "players", len(players))
	}
	return imported, errs
}
