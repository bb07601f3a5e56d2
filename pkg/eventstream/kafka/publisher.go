// Package kafka publishes memory events to a Kafka topic. Messages are keyed
// by owner so one owner's events stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is a comma separated list of host:port pairs.
	Brokers string
	Topic   string
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes memory events as JSON messages.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a Kafka publisher. The writer connects lazily on the
// first publish.
func NewPublisher(cfg Config) (*Publisher, error) {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}

	return &Publisher{writer: w, topic: cfg.Topic}, nil
}

// NewPublisherWithWriter creates a publisher over an existing writer.
func NewPublisherWithWriter(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishMemoryEvent writes event synchronously.
func (p *Publisher) PublishMemoryEvent(ctx context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.EventType, err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.OwnerID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

var _ eventstream.Publisher = (*Publisher)(nil)
