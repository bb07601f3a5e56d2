// Package ownerlock serializes mutations per owner.
//
// The engine runs without locking by default. A Locker is an opt-in guard
// around the ingest and delete paths so two concurrent UPDATEs for the same
// owner can't both retire and replace the same record.
package ownerlock

import (
	"context"
	"fmt"
	"sync"
)

// Unlock releases a lock obtained from a Locker. It is safe to call once.
type Unlock func()

// Locker hands out per-owner exclusive locks.
type Locker interface {
	// Lock blocks until owner's lock is held or ctx is done.
	Lock(ctx context.Context, owner string) (Unlock, error)
}

// Nop never blocks.
type Nop struct{}

func (Nop) Lock(context.Context, string) (Unlock, error) {
	return func() {}, nil
}

// Local is an in-process Locker. Entries are reference counted so idle
// owners don't accumulate.
type Local struct {
	mu    sync.Mutex
	locks map[string]*ownerEntry
}

type ownerEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*ownerEntry)}
}

// Lock acquires owner's lock, honoring ctx while waiting.
func (l *Local) Lock(ctx context.Context, owner string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.locks[owner]
	if !ok {
		e = &ownerEntry{ch: make(chan struct{}, 1)}
		l.locks[owner] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(owner, e)
		return nil, fmt.Errorf("waiting for owner lock %q: %w", owner, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(owner, e)
		})
	}, nil
}

func (l *Local) release(owner string, e *ownerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, owner)
	}
}

// Len reports how many owners currently have waiters or holders.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var (
	_ Locker = Nop{}
	_ Locker = (*Local)(nil)
)
