package kafka

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = NewPublisherWithWriter(w, "recall.memories")
	})

	It("writes a JSON message keyed by owner", func() {
		event := eventstream.NewMemoryCreated(&memory.Memory{ID: "m1", OwnerID: "alice", Content: "c"})
		Expect(p.PublishMemoryEvent(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("alice"))
		Expect(w.msgs[0].Headers[0].Key).To(Equal("event_type"))
		Expect(string(w.msgs[0].Headers[0].Value)).To(Equal(eventstream.EventTypeMemoryCreated))

		var decoded eventstream.MemoryEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.Memory.ID).To(Equal("m1"))
	})

	It("rejects nil events", func() {
		Expect(p.PublishMemoryEvent(context.Background(), nil)).To(MatchError(eventstream.ErrNilMemoryEvent))
	})

	It("wraps writer errors with the topic", func() {
		w.err = errors.New("leader not available")
		event := eventstream.NewMemoryRetired("alice", memory.RetirementEvent{MemoryID: "m1"})

		err := p.PublishMemoryEvent(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("recall.memories")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("validates configuration", func() {
		_, err := NewPublisher(Config{Brokers: " , ", Topic: "t"})
		Expect(err).To(HaveOccurred())
		_, err = NewPublisher(Config{Brokers: "localhost:9092"})
		Expect(err).To(HaveOccurred())

		real, err := NewPublisher(Config{Brokers: "localhost:9092, localhost:9093", Topic: "t"})
		Expect(err).NotTo(HaveOccurred())
		Expect(real.Close()).To(Succeed())
	})

	It("splits broker lists", func() {
		Expect(splitBrokers("a:1, b:2,,")).To(Equal([]string{"a:1", "b:2"}))
	})
})
