// Package nats publishes memory events to NATS JetStream, one subject per
// event type under a common prefix.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/logger"
)

const (
	// DefaultStream is the JetStream stream that captures memory events.
	DefaultStream = "RECALL_MEMORIES"

	// DefaultSubjectPrefix prefixes every subject.
	DefaultSubjectPrefix = "recall.memories"
)

// Config holds configuration for the NATS publisher.
type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
}

// streamPublisher is the subset of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher publishes memory events to JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     streamPublisher
	prefix string
}

// NewPublisher connects to NATS and ensures the memory event stream exists.
func NewPublisher(ctx context.Context, cfg Config, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}

	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating stream %s: %w", cfg.Stream, err)
	}

	log.Info("connected to NATS", "url", cfg.URL, "stream", cfg.Stream)
	return &Publisher{conn: nc, js: js, prefix: cfg.SubjectPrefix}, nil
}

// NewPublisherWithJetStream creates a publisher over an existing JetStream
// handle. Close does not close the underlying connection.
func NewPublisherWithJetStream(js streamPublisher, subjectPrefix string) *Publisher {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &Publisher{js: js, prefix: subjectPrefix}
}

// Subject returns the subject an event is published on.
func (p *Publisher) Subject(event *eventstream.MemoryEvent) string {
	return fmt.Sprintf("%s.%s", p.prefix, event.Suffix())
}

// PublishMemoryEvent publishes event and waits for the stream ack.
func (p *Publisher) PublishMemoryEvent(ctx context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	subject := p.Subject(event)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}

	// The event ID doubles as the JetStream dedupe key.
	if _, err := p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(event.EventID)); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection when the publisher owns it.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

var _ eventstream.Publisher = (*Publisher)(nil)
