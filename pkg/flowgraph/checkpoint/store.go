// Package checkpoint provides persistent, versioned session snapshots.
//
// A Store keeps every saved version of a session; Load returns the newest.
// Stores hold opaque bytes; Snapshot is the envelope callers put in them.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists session snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save appends a new version for the session.
	// Sequence numbers start at 1 and grow by one per Save.
	Save(ctx context.Context, sessionID string, data []byte) error

	// Load retrieves the latest version.
	// Returns ErrNotFound if the session has no versions.
	Load(ctx context.Context, sessionID string) ([]byte, error)

	// List returns metadata for every version, ordered by sequence.
	// Returns empty slice (not error) if the session has no versions.
	List(ctx context.Context, sessionID string) ([]Info, error)

	// Delete removes every version of the session.
	// Returns nil if the session has no versions.
	Delete(ctx context.Context, sessionID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	SessionID string    `json:"session_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a session has no stored versions.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrVersionMismatch indicates a snapshot was written in an incompatible format.
	ErrVersionMismatch = errors.New("checkpoint version mismatch")

	// ErrInvalidSnapshot indicates stored bytes are not a snapshot.
	ErrInvalidSnapshot = errors.New("invalid checkpoint snapshot")
)
