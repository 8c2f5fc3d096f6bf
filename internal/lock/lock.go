// Package lock implements the persisted admission lock that guarantees at
// most one in-flight generation per project, shared by every server instance
// and every UI surface observing the same project. All state transitions go
// through atomic compare-and-swap on the shared store; the lock is never
// read-then-written.
package lock

import (
	"encoding/json"
	"time"
)

// the persisted lock state for one project
type Lock struct {
	// request key of the last admitted generation
	LastKey string `json:"last_key,omitempty"`

	// true only between admission and release of one request
	InProgress bool `json:"in_progress"`

	// refreshed on every state transition
	Timestamp time.Time `json:"timestamp"`
}

// encodes the lock for storage; nil input encodes the absent state
func encode(l *Lock) []byte {
	if l == nil {
		return nil
	}

	data, err := json.Marshal(l)
	if err != nil {
		// Lock contains only marshalable fields
		panic(err)
	}

	return data
}

// decodes stored bytes; nil bytes decode to the absent state
func decode(data []byte) (*Lock, error) {
	if data == nil {
		return nil, nil
	}

	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}

	return &l, nil
}
