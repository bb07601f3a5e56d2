package memory

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when an operation needs a collaborator that
// was never wired in.
var ErrNotConfigured = errors.New("memory engine not configured")

// ValidationError reports a candidate that can't be persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DependencyError reports that language understanding was unavailable or
// returned a payload that couldn't be decoded.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// StorageError reports that a store was unavailable or a write failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that a retire or delete target doesn't exist for
// the owner. An owner mismatch is reported the same way as absence.
type NotFoundError struct {
	OwnerID string
	Target  string
}

func (e *NotFoundError) Error() string {
	if e.Target == "" {
		return "memory not found"
	}
	return fmt.Sprintf("memory not found: %s", e.Target)
}

// DriftWarning is informational: the structured store and the similarity
// index disagree on how many records an owner has.
type DriftWarning struct {
	OwnerID         string
	StructuredCount int
	IndexCount      int
}

func (e *DriftWarning) Error() string {
	return fmt.Sprintf("stores out of sync for owner %s: structured=%d index=%d",
		e.OwnerID, e.StructuredCount, e.IndexCount)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
