package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
)

// EmbeddedNATSPubSub runs a NATS server with JetStream inside the process
// and publishes session events through it. Used in development so the
// NATS code path runs without external infrastructure.
type EmbeddedNATSPubSub struct {
	*NATSPubSub
	server *server.Server
}

// EmbeddedNATSOptions configures the embedded NATS server
type EmbeddedNATSOptions struct {
	Port     int    // 0 or -1 picks a random free port
	StoreDir string // JetStream storage directory; empty keeps events in memory
	Stream   StreamOptions
}

// DefaultEmbeddedNATSOptions returns development defaults
func DefaultEmbeddedNATSOptions() EmbeddedNATSOptions {
	stream := DefaultStreamOptions()
	stream.MaxAge = time.Hour
	return EmbeddedNATSOptions{
		Port:   -1,
		Stream: stream,
	}
}

// NewEmbeddedNATSPubSub starts the embedded server and connects to it
func NewEmbeddedNATSPubSub(opts EmbeddedNATSOptions) (*EmbeddedNATSPubSub, error) {
	port := opts.Port
	if port == 0 {
		port = -1
	}

	serverOpts := &server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		NoSigs:    true,
	}
	storage := nats.MemoryStorage
	if opts.StoreDir != "" {
		serverOpts.StoreDir = opts.StoreDir
		storage = nats.FileStorage
	}

	ns, err := server.NewServer(serverOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
	}
	logger.Info("Embedded NATS server started", "url", ns.ClientURL())

	nc, err := nats.Connect(ns.ClientURL(), nats.Name("hitchart-input-embedded"))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	inner, err := newJetStreamPubSub(nc, opts.Stream, storage)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	return &EmbeddedNATSPubSub{NATSPubSub: inner, server: ns}, nil
}

// ServerURL returns the client URL of the embedded server
func (p *EmbeddedNATSPubSub) ServerURL() string {
	return p.server.ClientURL()
}

// Close disconnects and shuts the embedded server down
func (p *EmbeddedNATSPubSub) Close() {
	logger.Info("Shutting down embedded NATS server")
	p.NATSPubSub.Close()
	if p.server != nil {
		p.server.Shutdown()
		p.server.WaitForShutdown()
	}
}

// natsLogger routes embedded server logs to the application logger
type natsLogger struct{}

func (natsLogger) Noticef(format string, v ...any) {
	logger.Info(fmt.Sprintf(format, v...), "component", "nats")
}

func (natsLogger) Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf(format, v...), "component", "nats")
}

func (natsLogger) Fatalf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "nats", "fatal", true)
}

func (natsLogger) Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "nats")
}

func (natsLogger) Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "nats")
}

func (natsLogger) Tracef(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "nats", "trace", true)
}
