package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
)

// StreamOptions describes the JetStream stream carrying session events
type StreamOptions struct {
	// Subject is the prefix; events go to <Subject>.<session id>.
	Subject    string
	StreamName string
	MaxAge     time.Duration
}

// DefaultStreamOptions returns the production stream settings
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		Subject:    "hitchart.events",
		StreamName: "HITCHART_EVENTS",
		MaxAge:     24 * time.Hour,
	}
}

// NATSPubSub implements Upstream on top of NATS JetStream
type NATSPubSub struct {
	broadcaster
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
}

// NewNATSPubSub connects to a NATS server and binds to the session event stream
func NewNATSPubSub(natsURL string, opts StreamOptions) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("hitchart-input"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	ps, err := newJetStreamPubSub(nc, opts, nats.FileStorage)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return ps, nil
}

func newJetStreamPubSub(nc *nats.Conn, opts StreamOptions, storage nats.StorageType) (*NATSPubSub, error) {
	if opts.Subject == "" {
		opts.Subject = DefaultStreamOptions().Subject
	}
	if opts.StreamName == "" {
		opts.StreamName = DefaultStreamOptions().StreamName
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(opts.StreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     opts.StreamName,
			Subjects: []string{opts.Subject + ".>"},
			Storage:  storage,
			MaxAge:   opts.MaxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", opts.StreamName, err)
		}
		logger.Info("JetStream stream created", "stream", opts.StreamName, "subject", opts.Subject+".>")
	}

	ps := &NATSPubSub{
		broadcaster: broadcaster{buffer: 100},
		nc:          nc,
		js:          js,
		subject:     opts.Subject,
	}

	ps.sub, err = js.Subscribe(opts.Subject+".>", ps.handle, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", opts.Subject, err)
	}
	return ps, nil
}

func (p *NATSPubSub) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err, "subject", msg.Subject)
		msg.Term()
		return
	}
	if dropped := p.send(event); dropped > 0 {
		logger.Warn("NATS: skipped slow subscribers", "event_type", event.Type, "dropped", dropped)
	}
	msg.Ack()
}

// subjectFor maps a session to its subject; events without a session go to "global"
func (p *NATSPubSub) subjectFor(session string) string {
	if session == "" {
		return p.subject + ".global"
	}
	return p.subject + "." + session
}

// Publish publishes an event to JetStream. Local subscribers receive it
// through the stream subscription, like every other instance.
func (p *NATSPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	subject := p.subjectFor(event.Session)
	if _, err := p.js.Publish(subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", subject, "event_type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", subject)
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	return p.add()
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	p.remove(ch)
}

// SubscriberCount returns the number of active local subscribers
func (p *NATSPubSub) SubscriberCount() int {
	return p.count()
}

// Connected reports whether the NATS connection is up
func (p *NATSPubSub) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains the stream subscription and closes the connection
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		if err := p.sub.Unsubscribe(); err != nil {
			logger.Debug("NATS unsubscribe failed", "error", err)
		}
	}
	p.closeAll()
	if p.nc != nil {
		p.nc.Close()
	}
}
