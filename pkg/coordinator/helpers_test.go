package coordinator_test

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
	"github.com/papercomputeco/recall/pkg/vector"
)

const dims = testutils.DefaultMockDimensions

var errUnavailable = errors.New("model unavailable")

// scriptedUnderstander serves queued decisions and deterministic vectors.
type scriptedUnderstander struct {
	mu sync.Mutex

	decisions []*memory.Decision
	decideErr error
	recent    [][]string

	intent    memory.Intent
	intentErr error

	vectors   map[string][]float32
	embedFail map[string]bool
	embedErr  error

	synthReply string
	synthErr   error
	synthCalls int

	generalReply string
	generalErr   error

	pingErr error
}

func newScripted() *scriptedUnderstander {
	return &scriptedUnderstander{
		vectors:   make(map[string][]float32),
		embedFail: make(map[string]bool),
		intent:    memory.IntentMemoryQuestion,
	}
}

func (s *scriptedUnderstander) queue(d ...*memory.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d...)
}

func (s *scriptedUnderstander) Decide(_ context.Context, _ string, recent []string) (*memory.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, recent)
	if s.decideErr != nil {
		return nil, &memory.DependencyError{Op: "decide", Err: s.decideErr}
	}
	if len(s.decisions) == 0 {
		return nil, &memory.DependencyError{Op: "decide", Err: errors.New("no decision scripted")}
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func (s *scriptedUnderstander) ClassifyIntent(_ context.Context, _ string) (memory.Intent, error) {
	return s.intent, s.intentErr
}

func (s *scriptedUnderstander) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embed(text)
}

func (s *scriptedUnderstander) embed(text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	if s.embedFail[text] {
		return nil, &memory.DependencyError{Op: "embed", Err: vector.ErrEmbedding}
	}
	if v, ok := s.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	return testutils.BagOfWords(text, dims), nil
}

func (s *scriptedUnderstander) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.embed(t)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out, nil
}

func (s *scriptedUnderstander) Synthesize(_ context.Context, _ string, contents []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.synthCalls++
	if s.synthErr != nil {
		return "", s.synthErr
	}
	if s.synthReply != "" {
		return s.synthReply, nil
	}
	return "You told me: " + contents[0], nil
}

func (s *scriptedUnderstander) GeneralResponse(_ context.Context, _ string) (string, error) {
	return s.generalReply, s.generalErr
}

func (s *scriptedUnderstander) Ping(_ context.Context) error {
	return s.pingErr
}

// axis returns the unit vector along dimension i.
func axis(i int) []float32 {
	v := make([]float32, dims)
	v[i] = 1
	return v
}

// blend returns a normalized mix of two axes weighted a and b.
func blend(i int, a float32, j int, b float32) []float32 {
	v := make([]float32, dims)
	v[i] = a
	v[j] = b
	n := float32(math.Sqrt(float64(a*a + b*b)))
	v[i] /= n
	v[j] /= n
	return v
}

func add(content, category string) *memory.Decision {
	return &memory.Decision{
		Action: memory.ActionAdd,
		Candidate: &memory.Candidate{
			Content:    content,
			Category:   category,
			Confidence: 0.9,
			Tags:       []string{category},
		},
		Reasoning: "new fact",
	}
}

func update(content, category, hint string) *memory.Decision {
	d := add(content, category)
	d.Action = memory.ActionUpdate
	d.OldContentHint = hint
	d.Reasoning = "user changed tools"
	return d
}

func ignore() *memory.Decision {
	return &memory.Decision{Action: memory.ActionIgnore, Reasoning: "small talk"}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishMemoryEvent(_ context.Context, e *eventstream.MemoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

var storageAll = storage.ListOptions{}
