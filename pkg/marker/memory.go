package marker

import "sync"

// MemoryStore is an in-memory Store. It provides the Store contract without
// durability and backs tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.Mutex
	markers map[Key]int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: map[Key]int64{}}
}

func (s *MemoryStore) Get(key Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[key], nil
}

func (s *MemoryStore) Set(key Key, editedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[key] = editedAt
	return nil
}

func (s *MemoryStore) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, key)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
