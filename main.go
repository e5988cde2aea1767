package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/hitchart-input/internal/annotate"
	"github.com/Billy-Davies-2/hitchart-input/internal/charset"
	"github.com/Billy-Davies-2/hitchart-input/internal/config"
	"github.com/Billy-Davies-2/hitchart-input/internal/export"
	grpcserver "github.com/Billy-Davies-2/hitchart-input/internal/grpc"
	"github.com/Billy-Davies-2/hitchart-input/internal/handlers"
	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/pubsub"
	"github.com/Billy-Davies-2/hitchart-input/internal/render"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

var (
	cfg          config.Config
	rosterSource roster.Source
	registry     *session.Registry
	natsStatus   interface{ Connected() bool }
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger first
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting hit chart input service", "environment", cfg.Environment, "schema", cfg.SchemaVersion)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The field image is required; without it nothing can be annotated.
	field, err := render.LoadField(cfg.FieldImage, cfg.ImageSize)
	if err != nil {
		var missing *render.MissingAssetError
		if errors.As(err, &missing) {
			logger.Error(missing.Error(), "path", missing.Path)
			log.Fatal(missing.Error())
		}
		logger.Error("Failed to load field image", "error", err, "path", cfg.FieldImage)
		log.Fatalf("Failed to load field image: %v", err)
	}
	renderer := render.NewRenderer(field, cfg.MarkerSize)
	logger.Info("Field image loaded", "path", cfg.FieldImage, "size", cfg.ImageSize)

	rosterSource, err = openRoster(ctx)
	if err != nil {
		logger.Error("Failed to initialize roster source", "error", err, "driver", cfg.RosterDriver)
		log.Fatalf("Failed to initialize roster source: %v", err)
	}
	if c, ok := rosterSource.(io.Closer); ok {
		defer c.Close()
	}

	exportEncoding, err := charset.Lookup(cfg.ExportEncoding)
	if err != nil {
		log.Fatalf("Invalid EXPORT_ENCODING: %v", err)
	}
	encoder := export.NewEncoder(exportEncoding)

	// Initialize pub/sub (NATS JetStream or Embedded NATS for local development)
	stream := pubsub.DefaultStreamOptions()
	stream.Subject = cfg.NATSSubject

	var upstream pubsub.Upstream
	if cfg.Development() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Stream.Subject = cfg.NATSSubject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		defer embedded.Close()
		upstream, natsStatus = embedded, embedded
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
	} else {
		logger.Info("Using NATS JetStream", "url", cfg.NATSURL)
		remote, err := pubsub.NewNATSPubSub(cfg.NATSURL, stream)
		if err != nil {
			logger.Error("Failed to initialize NATS", "error", err)
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		defer remote.Close()
		upstream, natsStatus = remote, remote
		logger.Info("Connected to NATS", "url", cfg.NATSURL)
	}
	bus := pubsub.NewWithUpstream(upstream)

	registry = session.NewRegistry(session.Options{
		Schema: cfg.Schema(),
		Width:  cfg.ImageSize,
		Height: cfg.ImageSize,
	}, cfg.SessionTTL)
	go registry.Run(ctx, cfg.SessionSweepInterval)

	svc := annotate.NewService(registry, rosterSource, bus, cfg.Schema())

	// Start gRPC server in a goroutine
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.UnaryLogger))
	grpcserver.Register(grpcServer, grpcserver.NewServer(svc, encoder, bus))
	go func() {
		addr := "0.0.0.0:" + cfg.GRPCPort
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}
		logger.Info("gRPC server starting", "address", addr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Set up HTTP routes
	mux := http.NewServeMux()

	h, err := handlers.New(handlers.Options{
		Service:       svc,
		Renderer:      renderer,
		Encoder:       encoder,
		PubSub:        bus,
		SecureCookies: !cfg.Development(),
	})
	if err != nil {
		logger.Error("Failed to initialize handlers", "error", err)
		log.Fatalf("Failed to initialize handlers: %v", err)
	}
	h.Register(mux)

	// Health check endpoints
	mux.HandleFunc("/api/health", healthHandler)
	mux.HandleFunc("/healthz", livenessHandler) // Kubernetes liveness probe
	mux.HandleFunc("/readyz", readinessHandler) // Kubernetes readiness probe

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcServer.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
	}()

	logger.Info("Server starting", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		log.Fatal(err)
	}
}

// openRoster builds the roster source selected by ROSTER_DRIVER. SQL sources
// can be seeded from a directory of roster CSV files with ROSTER_IMPORT_DIR.
func openRoster(ctx context.Context) (roster.Source, error) {
	enc, err := charset.Lookup(cfg.RosterEncoding)
	if err != nil {
		return nil, err
	}

	var sqlSource *roster.SQLSource
	switch cfg.RosterDriver {
	case config.RosterDir:
		logger.Info("Reading rosters from directory", "dir", cfg.RosterDir, "encoding", cfg.RosterEncoding)
		return roster.NewDirSource(cfg.RosterDir, enc), nil
	case config.RosterSQLite:
		sqlSource, err = roster.NewSQLiteSource(cfg.SQLiteFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to SQLite roster database", "file", cfg.SQLiteFile)
	case config.RosterPostgres:
		sqlSource, err = roster.NewPostgresSource(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Postgres roster database")
	}

	if cfg.RosterImportDir != "" {
		n, errs := roster.Import(ctx, sqlSource, roster.NewDirSource(cfg.RosterImportDir, enc))
		for _, err := range errs {
			logger.Warn("Roster import skipped a team", "error", err)
		}
		logger.Info("Imported rosters", "dir", cfg.RosterImportDir, "teams", n)
	}
	return sqlSource, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// checkRoster verifies the roster source answers
func checkRoster(ctx context.Context) error {
	if p, ok := rosterSource.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := rosterSource.Teams(ctx)
	return err
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := checkRoster(ctx); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks["roster"] = map[string]any{"status": "unhealthy", "driver": cfg.RosterDriver, "error": err.Error()}
	} else {
		checks["roster"] = map[string]any{"status": "healthy", "driver": cfg.RosterDriver}
	}

	if natsStatus != nil && natsStatus.Connected() {
		checks["nats"] = map[string]any{"status": "healthy"}
	} else {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks["nats"] = map[string]any{"status": "unhealthy"}
	}

	checks["sessions"] = map[string]any{"active": registry.Len()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// livenessHandler handles Kubernetes liveness probes
func livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// readinessHandler reports ready once the roster source answers
func readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := checkRoster(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "not_ready",
			"reason":    "roster_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
