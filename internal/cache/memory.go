package cache

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

type memEntry struct {
	value []byte
	meta  Meta
}

// MemoryStore is a process-local Store for tests and single-node setups.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	now     timeutil.Clock
	closed  bool
}

func NewMemoryStore(clock timeutil.Clock) *MemoryStore {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &MemoryStore{entries: map[string]*memEntry{}, now: clock}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.meta.ExpiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	e.meta.HitCount++
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, meta Meta, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := m.now()
	meta.CreatedAt = now
	meta.ExpiresAt = now.Add(ttl)
	meta.HitCount = 0
	buf := make([]byte, len(value))
	copy(buf, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries[key] = &memEntry{value: buf, meta: meta}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	n := 0
	now := m.now()
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			if now.Before(e.meta.ExpiresAt) {
				n++
			}
			delete(m.entries, k)
		}
	}
	return n, nil
}

func (m *MemoryStore) UserKeys(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	now := m.now()
	var out []string
	for k, e := range m.entries {
		if e.meta.UserID != userID || !now.Before(e.meta.ExpiresAt) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (m *MemoryStore) Meta(ctx context.Context, key string) (*Meta, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.meta.ExpiresAt) {
		return nil, false, nil
	}
	meta := e.meta
	return &meta, true, nil
}

// CleanupOrphans sweeps expired entries; metadata cannot outlive its value here.
func (m *MemoryStore) CleanupOrphans(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.meta.ExpiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = map[string]*memEntry{}
	return nil
}
