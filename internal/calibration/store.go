// Package calibration persists the altimeter's sea-level pressure baseline
// in a small typed key-value store and applies the baseline expiration
// policy on top of it.
package calibration

import (
	"context"
	"sync"
	"time"
)

// Store is a persisted mapping from string keys to float or timestamp
// values. Reads return found=false for missing keys. Each call is atomic at
// key granularity; no cross-key transactions are offered.
type Store interface {
	GetFloat(ctx context.Context, key string) (value float64, found bool, err error)
	PutFloat(ctx context.Context, key string, value float64) error
	GetTime(ctx context.Context, key string) (value time.Time, found bool, err error)
	PutTime(ctx context.Context, key string, value time.Time) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// MemoryStore is an in-process Store. It does not survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	floats map[string]float64
	times  map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		floats: make(map[string]float64),
		times:  make(map[string]time.Time),
	}
}

func (m *MemoryStore) GetFloat(_ context.Context, key string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.floats[key]
	return v, ok, nil
}

func (m *MemoryStore) PutFloat(_ context.Context, key string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floats[key] = value
	return nil
}

func (m *MemoryStore) GetTime(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.times[key]
	return v, ok, nil
}

func (m *MemoryStore) PutTime(_ context.Context, key string, value time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.floats, key)
	delete(m.times, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
