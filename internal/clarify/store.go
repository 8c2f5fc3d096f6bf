// Package clarify persists the pending clarification question/answer pair per
// project, so that the next user message carries full context no matter which
// UI instance sends it, and no matter how many reloads happened in between.
package clarify

import (
	"context"
	"encoding/json"
	"fmt"

	"codeberg.org/sajtmaskin/server/internal/kv"
)

const keyPrefix = "clarify:"

// the pending multi-turn disambiguation state for a project
type Context struct {
	OriginalPrompt  string `json:"original_prompt"`
	ClarifyQuestion string `json:"clarify_question"`
}

// Store reads and writes the clarify context in the shared key-value store.
type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Get returns the pending context for a project, or nil when there is none.
func (s *Store) Get(ctx context.Context, projectID string) (*Context, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read clarify context: %w", err)
	}

	if raw == nil {
		return nil, nil
	}

	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode clarify context: %w", err)
	}

	return &c, nil
}

// Set stores the pending context, replacing any previous one.
func (s *Store) Set(ctx context.Context, projectID string, c Context) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode clarify context: %w", err)
	}

	if err := s.kv.Set(ctx, keyPrefix+projectID, data); err != nil {
		return fmt.Errorf("failed to store clarify context: %w", err)
	}

	return nil
}

// Clear removes the pending context. Clearing when none exists is not an
// error: any non-clarify result clears unconditionally.
func (s *Store) Clear(ctx context.Context, projectID string) error {
	if err := s.kv.Delete(ctx, keyPrefix+projectID); err != nil {
		return fmt.Errorf("failed to clear clarify context: %w", err)
	}

	return nil
}
