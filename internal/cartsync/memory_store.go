package cartsync

import (
	"context"
	"sync"
)

// MemoryStore is a LocalStore held in process memory
type MemoryStore struct {
	mu    sync.Mutex
	items []Item
}

func NewMemoryStore(items ...Item) *MemoryStore {
	return &MemoryStore{items: append([]Item{}, items...)}
}

func (s *MemoryStore) Load(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item{}, s.items...), nil
}

func (s *MemoryStore) Save(ctx context.Context, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item{}, items...)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}
