package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Billy-Davies-2/hitchart-input/internal/charset"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

// Roster drivers
const (
	RosterDir      = "dir"
	RosterSQLite   = "sqlite"
	RosterPostgres = "postgres"
)

// Config holds process configuration read from the environment
type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"50051"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	FieldImage    string `env:"FIELD_IMAGE" envDefault:"baseballfield.jpg"`
	ImageSize     int    `env:"IMAGE_SIZE" envDefault:"750"`
	MarkerSize    int    `env:"MARKER_SIZE" envDefault:"20"`
	SchemaVersion int    `env:"SCHEMA_VERSION" envDefault:"2"`

	RosterDriver    string `env:"ROSTER_DRIVER" envDefault:"dir"`
	RosterDir       string `env:"ROSTER_DIR" envDefault:"."`
	RosterEncoding  string `env:"ROSTER_ENCODING" envDefault:"windows-31j"`
	RosterImportDir string `env:"ROSTER_IMPORT_DIR"`
	SQLiteFile      string `env:"SQLITE_FILE" envDefault:"rosters.sqlite"`
	DatabaseURL     string `env:"DATABASE_URL"`

	ExportEncoding string `env:"EXPORT_ENCODING" envDefault:"windows-31j"`

	NATSURL     string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"hitchart.events"`

	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
}

// Load reads the process environment
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process environment
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Development reports whether the process runs with local, in-process infrastructure
func (c Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Schema returns the configured record schema
func (c Config) Schema() models.Schema {
	return models.Schema(c.SchemaVersion)
}

// Validate rejects configurations the service cannot start with
func (c Config) Validate() error {
	var errs []error

	if c.ImageSize <= 0 {
		errs = append(errs, fmt.Errorf("IMAGE_SIZE must be positive, got %d", c.ImageSize))
	}
	if c.MarkerSize <= 0 || c.MarkerSize > c.ImageSize {
		errs = append(errs, fmt.Errorf("MARKER_SIZE must be in (0, IMAGE_SIZE], got %d", c.MarkerSize))
	}
	if !c.Schema().Valid() {
		errs = append(errs, fmt.Errorf("SCHEMA_VERSION must be 1 or 2, got %d", c.SchemaVersion))
	}

	switch c.RosterDriver {
	case RosterDir, RosterSQLite:
	case RosterPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres roster driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ROSTER_DRIVER %q (valid: dir, sqlite, postgres)", c.RosterDriver))
	}

	if _, err := charset.Lookup(c.RosterEncoding); err != nil {
		errs = append(errs, fmt.Errorf("ROSTER_ENCODING: %w", err))
	}
	if _, err := charset.Lookup(c.ExportEncoding); err != nil {
		errs = append(errs, fmt.Errorf("EXPORT_ENCODING: %w", err))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}
