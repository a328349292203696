package store

import (
	"context"
	"sync"
)

// MemoryStore keeps encoded values in process memory. Values are stored as
// JSON so callers observe the same round-trip behaviour as the SQLite store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, profileID, key string, dst any) (bool, error) {
	if err := checkScope(profileID, key); err != nil {
		return false, err
	}

	s.mu.RLock()
	raw, ok := s.data[profileID][key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := decode(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Save(_ context.Context, profileID, key string, value any) error {
	if err := checkScope(profileID, key); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[profileID]
	if !ok {
		bucket = make(map[string][]byte)
		s.data[profileID] = bucket
	}
	bucket[key] = raw
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, profileID, key string) error {
	if err := checkScope(profileID, key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data[profileID], key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
