// Package storage provides interfaces and types for checkpoint storage backends.
//
// It defines the CheckpointStore interface that all storage implementations
// must satisfy, along with the checkpoint record and listing options.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultTableName is the table used when a backend config leaves it empty.
const DefaultTableName = "embetter_checkpoints"

// ErrNotFound is returned when no checkpoint matches a lookup.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a saved snapshot of a trained estimator.
type Checkpoint struct {
	// ID is the unique identifier of the checkpoint.
	ID int64

	// Name groups successive checkpoints of the same estimator.
	Name string

	// Size is the embedding width.
	Size int

	// InputDim is the width of the model input (features plus classes).
	InputDim int

	// Classes is the label vocabulary the model was trained on, in column order.
	Classes []string

	// Epochs is the total number of epochs trained so far.
	Epochs int

	// Loss is the per-epoch training loss history.
	Loss []float64

	// State is the encoded model snapshot.
	State []byte

	// Hash is the MD5 checksum of State, filled in by Save.
	Hash string

	// Metadata contains the estimator settings and any caller data.
	Metadata map[string]interface{}

	// CreatedAt is when the checkpoint was saved.
	CreatedAt time.Time
}

// ListOptions contains options for List operations.
type ListOptions struct {
	// Name filters results to one estimator name. Empty lists all.
	Name string

	// Limit sets the maximum number of results to return. Zero means no limit.
	Limit int

	// Offset sets the number of results to skip (for pagination).
	Offset int
}

// CheckpointStore defines the interface for checkpoint storage backends.
//
// All storage implementations (SQLite, PostgreSQL, OceanBase) must implement this interface.
type CheckpointStore interface {
	// Save inserts a checkpoint. The ID must be set by the caller.
	Save(ctx context.Context, cp *Checkpoint) error

	// Get retrieves a checkpoint by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*Checkpoint, error)

	// Latest retrieves the most recent checkpoint with the given name.
	// Returns ErrNotFound if there is none.
	Latest(ctx context.Context, name string) (*Checkpoint, error)

	// List returns checkpoints newest first. State is not loaded.
	List(ctx context.Context, opts *ListOptions) ([]*Checkpoint, error)

	// Delete deletes a checkpoint by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error

	// Close closes the store and releases resources.
	Close() error
}

// Checksum returns the hex MD5 digest of an encoded model state.
func Checksum(state []byte) string {
	sum := md5.Sum(state)
	return hex.EncodeToString(sum[:])
}

// Prepare validates a checkpoint before insertion and fills in Hash and
// CreatedAt.
func Prepare(cp *Checkpoint) error {
	if cp == nil {
		return errors.New("nil checkpoint")
	}
	if cp.ID == 0 {
		return errors.New("checkpoint ID is required")
	}
	if cp.Name == "" {
		return errors.New("checkpoint name is required")
	}
	if len(cp.State) == 0 {
		return errors.New("checkpoint state is empty")
	}
	cp.Hash = Checksum(cp.State)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Verify reports whether a loaded checkpoint's state matches its checksum.
func Verify(cp *Checkpoint) error {
	if cp.Hash != "" && Checksum(cp.State) != cp.Hash {
		return fmt.Errorf("checkpoint %d: state checksum mismatch", cp.ID)
	}
	return nil
}

// Columns holds the JSON-encoded fields of a checkpoint as stored in TEXT columns.
type Columns struct {
	Classes  string
	Loss     string
	Metadata string
}

// EncodeColumns encodes the structured checkpoint fields.
func EncodeColumns(cp *Checkpoint) (*Columns, error) {
	classes, err := json.Marshal(nonNilStrings(cp.Classes))
	if err != nil {
		return nil, fmt.Errorf("encode classes: %w", err)
	}
	loss, err := json.Marshal(nonNilFloats(cp.Loss))
	if err != nil {
		return nil, fmt.Errorf("encode loss: %w", err)
	}
	metadata, err := json.Marshal(cp.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return &Columns{Classes: string(classes), Loss: string(loss), Metadata: string(metadata)}, nil
}

// DecodeColumns decodes stored fields into cp.
func DecodeColumns(cols *Columns, cp *Checkpoint) error {
	if cols.Classes != "" {
		if err := json.Unmarshal([]byte(cols.Classes), &cp.Classes); err != nil {
			return fmt.Errorf("parse classes: %w", err)
		}
	}
	if cols.Loss != "" {
		if err := json.Unmarshal([]byte(cols.Loss), &cp.Loss); err != nil {
			return fmt.Errorf("parse loss: %w", err)
		}
	}
	if cols.Metadata != "" && cols.Metadata != "null" {
		if err := json.Unmarshal([]byte(cols.Metadata), &cp.Metadata); err != nil {
			return fmt.Errorf("parse metadata: %w", err)
		}
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFloats(f []float64) []float64 {
	if f == nil {
		return []float64{}
	}
	return f
}
