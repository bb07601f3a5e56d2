package storage

import (
	"github.com/papercomputeco/recall/pkg/memory"
)

// NotFound returns the error drivers report for an absent, foreign or
// inactive record.
func NotFound(owner, id string) error {
	return &memory.NotFoundError{OwnerID: owner, Target: id}
}

// Wrap tags a backend failure with the operation that produced it.
// A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &memory.StorageError{Op: op, Err: err}
}
