// Package core provides the embetter estimator client: label-driven pair
// generation, similarity training and embedding lookup.
package core

import (
	"errors"
	"fmt"

	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFitted indicates an operation that needs a trained model or
	// a known label vocabulary.
	ErrNotFitted = errors.New("estimator not fitted")

	// ErrNoCheckpointStore indicates a persistence call on a client without a store.
	ErrNoCheckpointStore = errors.New("no checkpoint store configured")

	// ErrNoEmbedder indicates a text call on a client without an embedding provider.
	ErrNoEmbedder = errors.New("no embedder configured")

	// ErrCheckpointMismatch indicates a checkpoint incompatible with the client settings.
	ErrCheckpointMismatch = errors.New("checkpoint does not match estimator")

	// ErrCheckpointNotFound is returned by Load, LoadLatest and DeleteCheckpoint
	// when the store has no matching checkpoint.
	ErrCheckpointNotFound = storage.ErrNotFound
)

// EmbetterError wraps errors with operation context.
//
// Example:
//
//	err := &EmbetterError{
//	    Op:  "Fit",
//	    Err: ErrInvalidInput,
//	}
//	// Error() returns: "embetter: Fit: invalid input"
type EmbetterError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "embetter: <Op>: <Err>"
func (e *EmbetterError) Error() string {
	return fmt.Sprintf("embetter: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EmbetterError) Unwrap() error {
	return e.Err
}

// NewEmbetterError creates a new EmbetterError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	return NewEmbetterError("Fit", err)
func NewEmbetterError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EmbetterError{
		Op:  op,
		Err: err,
	}
}
