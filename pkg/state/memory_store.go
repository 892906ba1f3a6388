package state

import (
	"context"
	"sync"
)

// MemoryStore is a minimal in-memory SnapshotStore intended for tests and
// short-lived processes. It uses Ref.Identifier() as its deterministic key.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]T
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]T{}}
}

func (s *MemoryStore[T]) Load(_ context.Context, ref Ref) (T, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, false, err
	}

	s.mu.RLock()
	value, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}
	return value, true, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, ref Ref, value T) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[key] = value
	s.mu.Unlock()
	return nil
}
