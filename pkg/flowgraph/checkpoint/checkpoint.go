package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Version is the current snapshot format version.
// Increment when making breaking changes to snapshot structure.
const Version = 1

// Snapshot is the persisted state of a session after a completed run.
type Snapshot struct {
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Task      string    `json:"task"`
	Timestamp time.Time `json:"timestamp"`

	// State is the graph state, already encoded by the graph's schema.
	State json.RawMessage `json:"state"`
}

// New creates a snapshot for the session. State must already be encoded.
func New(sessionID, task string, state []byte) *Snapshot {
	return &Snapshot{
		Version:   Version,
		SessionID: sessionID,
		Task:      task,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}

// Marshal serializes a snapshot to JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return sonic.Marshal(s)
}

// Unmarshal deserializes a snapshot and checks its format version.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrVersionMismatch, s.Version, Version)
	}
	return &s, nil
}
