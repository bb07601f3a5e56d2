package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/recall/pkg/vector"
)

// ErrInjected is returned by the faulty drivers when a failure is switched on.
var ErrInjected = errors.New("injected failure")

// FaultyVectorDriver wraps a real vector.Driver and fails selected calls.
type FaultyVectorDriver struct {
	vector.Driver

	mu sync.Mutex

	FailAdd    bool
	FailDelete bool
	FailQuery  bool
	FailCount  bool
	FailPing   bool

	// Added and Deleted record the IDs of successful calls.
	Added   []string
	Deleted []string
}

func NewFaultyVectorDriver(inner vector.Driver) *FaultyVectorDriver {
	return &FaultyVectorDriver{Driver: inner}
}

func (f *FaultyVectorDriver) Add(ctx context.Context, docs []vector.Document) error {
	f.mu.Lock()
	fail := f.FailAdd
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}

	if err := f.Driver.Add(ctx, docs); err != nil {
		return err
	}

	f.mu.Lock()
	for _, d := range docs {
		f.Added = append(f.Added, d.ID)
	}
	f.mu.Unlock()
	return nil
}

func (f *FaultyVectorDriver) Delete(ctx context.Context, id, owner string) error {
	f.mu.Lock()
	fail := f.FailDelete
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}

	if err := f.Driver.Delete(ctx, id, owner); err != nil {
		return err
	}

	f.mu.Lock()
	f.Deleted = append(f.Deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *FaultyVectorDriver) Query(ctx context.Context, owner string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if f.FailQuery {
		return nil, ErrInjected
	}
	return f.Driver.Query(ctx, owner, embedding, topK)
}

func (f *FaultyVectorDriver) Count(ctx context.Context, owner string) (int, error) {
	if f.FailCount {
		return 0, ErrInjected
	}
	return f.Driver.Count(ctx, owner)
}

func (f *FaultyVectorDriver) Ping(ctx context.Context) error {
	if f.FailPing {
		return ErrInjected
	}
	return f.Driver.Ping(ctx)
}
