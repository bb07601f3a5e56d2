package testutils

import (
	"context"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

// FaultyStore wraps a real storage.Driver and fails selected calls.
type FaultyStore struct {
	storage.Driver

	FailSave   bool
	FailRetire bool
	FailList   bool
	FailPing   bool

	// FailGet lists IDs whose Get fails with a StorageError.
	FailGet map[string]bool

	// Saves counts successful Save calls.
	Saves int
}

func NewFaultyStore(inner storage.Driver) *FaultyStore {
	return &FaultyStore{Driver: inner, FailGet: make(map[string]bool)}
}

func (f *FaultyStore) Save(ctx context.Context, m *memory.Memory) error {
	if f.FailSave {
		return storage.Wrap("save", ErrInjected)
	}
	if err := f.Driver.Save(ctx, m); err != nil {
		return err
	}
	f.Saves++
	return nil
}

func (f *FaultyStore) Get(ctx context.Context, id, owner string) (*memory.Memory, error) {
	if f.FailGet[id] {
		return nil, storage.Wrap("get", ErrInjected)
	}
	return f.Driver.Get(ctx, id, owner)
}

func (f *FaultyStore) List(ctx context.Context, owner string, opts storage.ListOptions) ([]*memory.Memory, error) {
	if f.FailList {
		return nil, storage.Wrap("list", ErrInjected)
	}
	return f.Driver.List(ctx, owner, opts)
}

func (f *FaultyStore) Retire(ctx context.Context, id, owner string, opts storage.RetireOptions) error {
	if f.FailRetire {
		return storage.Wrap("retire", ErrInjected)
	}
	return f.Driver.Retire(ctx, id, owner, opts)
}

func (f *FaultyStore) Ping(ctx context.Context) error {
	if f.FailPing {
		return storage.Wrap("ping", ErrInjected)
	}
	return f.Driver.Ping(ctx)
}
