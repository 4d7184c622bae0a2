package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache là counter store trong process, dùng khi chạy không có Redis
// (DB_DRIVER=memory) và trong tests.
type MemoryCache struct {
	mu        sync.Mutex
	now       func() time.Time
	entries   map[string]memoryEntry
	nextPrune time.Time
}

// pruneInterval: rate limit keys đổi theo từng phút, key cũ không bao giờ được đọc lại
const pruneInterval = time.Minute

type memoryEntry struct {
	value     int64
	expiresAt time.Time // zero = không hết hạn
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()

	e := m.live(key)
	e.value++
	m.entries[key] = e
	return e.value, nil
}

func (m *MemoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.expiresAt = m.now().Add(ttl)
		m.entries[key] = e
	}
	return nil
}

func (m *MemoryCache) Ping(context.Context) error { return nil }

// live trả về entry hiện tại, entry đã hết hạn bị xóa và coi như chưa tồn tại
func (m *MemoryCache) live(key string) memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return memoryEntry{}
	}
	return e
}

// pruneLocked xóa mọi entry hết hạn, tối đa một lần mỗi pruneInterval
func (m *MemoryCache) pruneLocked() {
	now := m.now()
	if now.Before(m.nextPrune) {
		return
	}
	m.nextPrune = now.Add(pruneInterval)

	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
}

// Len trả về số key đang được giữ, kể cả key hết hạn chưa bị prune
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
