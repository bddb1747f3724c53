// Package storage provides in-memory thread storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"
)

// InMemoryStore implements ThreadStore using an in-memory map.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]ThreadState
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		threads: make(map[string]ThreadState),
	}
}

// Load loads the state for a thread.
// Returns a zero state if the thread doesn't exist.
func (s *InMemoryStore) Load(ctx context.Context, threadID string) (ThreadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.threads[threadID]
	if !ok {
		return ThreadState{}, nil
	}
	return state.Clone(), nil
}

// Merge atomically applies a delta to the thread. The whole delta is applied
// under one lock acquisition, so concurrent readers see either the state
// before the turn or after it, never a partial merge.
func (s *InMemoryStore) Merge(ctx context.Context, threadID string, delta Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[threadID] = delta.Apply(s.threads[threadID])
	return nil
}

// Delete removes all state for a thread.
func (s *InMemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, threadID)
	return nil
}

// ListThreads lists all known thread IDs.
func (s *InMemoryStore) ListThreads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]string, 0, len(s.threads))
	for threadID := range s.threads {
		threads = append(threads, threadID)
	}
	return threads, nil
}

// Verify InMemoryStore implements ThreadStore
var _ ThreadStore = (*InMemoryStore)(nil)
