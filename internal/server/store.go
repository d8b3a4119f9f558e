package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coinduel/dueljack/internal/game"
)

// Store persists match state between actions. Save is a compare-and-swap on
// the version the caller loaded: a concurrent writer who got there first
// makes the save fail with game.ErrConcurrentModification, and the caller
// reloads and retries. Creation passes expected 0.
type Store interface {
	Load(ctx context.Context, id string) (*game.Match, error)
	Save(ctx context.Context, m *game.Match, expected uint64) error
	Delete(ctx context.Context, id string) error
	ActiveIDs(ctx context.Context) ([]string, error)
}

// MemoryStore is the in-process Store used for tests and single-node
// deployments without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	states   map[string][]byte
	versions map[string]uint64
	active   map[string]bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:   make(map[string][]byte),
		versions: make(map[string]uint64),
		active:   make(map[string]bool),
	}
}

// Load returns a private copy of the stored match
func (s *MemoryStore) Load(ctx context.Context, id string) (*game.Match, error) {
	s.mu.RLock()
	raw, ok := s.states[id]
	s.mu.RUnlock()
	if !ok {
		return nil, game.ErrUnknownMatch
	}
	var m game.Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding match %s: %w", id, err)
	}
	return &m, nil
}

// Save stores the match if the persisted version still matches expected
func (s *MemoryStore) Save(ctx context.Context, m *game.Match, expected uint64) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding match %s: %w", m.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.versions[m.ID]
	if exists && current != expected {
		return game.ErrConcurrentModification
	}
	if !exists && expected != 0 {
		return game.ErrUnknownMatch
	}
	s.states[m.ID] = raw
	s.versions[m.ID] = m.Version
	s.active[m.ID] = !m.Completed && !m.Faulted
	return nil
}

// Delete removes the match
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	delete(s.versions, id)
	delete(s.active, id)
	return nil
}

// ActiveIDs lists matches still awaiting decisions, for the timeout sweep
func (s *MemoryStore) ActiveIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.active))
	for id, active := range s.active {
		if active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
