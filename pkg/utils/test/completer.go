package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/recall/pkg/llm"
)

// MockCompleter is a scripted llm.Completer. Replies are served in order;
// when they run out, Default is returned.
type MockCompleter struct {
	mu sync.Mutex

	Replies []string
	Default string

	// Err, when set, fails every Complete call.
	Err error

	// PingErr is returned by Ping.
	PingErr error

	// Requests records every request received.
	Requests []*llm.ChatRequest
}

func NewMockCompleter(replies ...string) *MockCompleter {
	return &MockCompleter{Replies: replies}
}

func (m *MockCompleter) Name() string {
	return "mock"
}

func (m *MockCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}

	text := m.Default
	if len(m.Replies) > 0 {
		text = m.Replies[0]
		m.Replies = m.Replies[1:]
	}
	if text == "" {
		return nil, llm.ErrEmptyCompletion
	}

	return &llm.ChatResponse{
		Model:   "mock",
		Message: llm.NewTextMessage(llm.RoleAssistant, text),
	}, nil
}

func (m *MockCompleter) Ping(_ context.Context) error {
	return m.PingErr
}

// LastRequest returns the most recent request, or nil.
func (m *MockCompleter) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

// ErrMockUnavailable is a convenient failure for MockCompleter.Err.
var ErrMockUnavailable = errors.New("mock llm unavailable")
