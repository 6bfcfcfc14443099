package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. A positive quota caps the total
// number of stored bytes.
type MemoryStore struct {
	mu     sync.Mutex
	quota  int
	values map[string][]byte
}

func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{quota: quota, values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := len(value)
		for k, v := range m.values {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
