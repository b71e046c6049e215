package store

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// MemoryStore keeps encoded collections in process memory. Values are
// round-tripped through JSON so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[Collection][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[Collection][]byte)}
}

func (s *MemoryStore) ReadAll(_ context.Context, c Collection, dst any) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	s.mu.RLock()
	doc, ok := s.docs[c]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", c, err)
	}
	return nil
}

func (s *MemoryStore) WriteAll(_ context.Context, c Collection, v any) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c, err)
	}
	s.mu.Lock()
	s.docs[c] = doc
	s.mu.Unlock()
	return nil
}
