package session

import (
	"sync"
	"time"
)

// memoryStore is the in-process session map. It serves as the authoritative
// backend in fallback mode and as the emergency target for individual
// operations that fail against the persistent backend.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record

	maxSessions int
	timeout     time.Duration
	nowFunc     func() time.Time
}

func newMemoryStore(maxSessions int, timeout time.Duration, nowFunc func() time.Time) *memoryStore {
	return &memoryStore{
		records:     make(map[string]*Record),
		maxSessions: maxSessions,
		timeout:     timeout,
		nowFunc:     nowFunc,
	}
}

// put inserts a record, evicting the least recently accessed one first if
// the map is at capacity. It returns the ID of the evicted record, if any.
func (m *memoryStore) put(rec *Record) (evicted string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.SessionID]; !exists && len(m.records) >= m.maxSessions {
		var lru *Record
		for _, r := range m.records {
			if lru == nil || r.LastAccessedAt.Before(lru.LastAccessedAt) {
				lru = r
			}
		}
		if lru != nil {
			delete(m.records, lru.SessionID)
			evicted = lru.SessionID
		}
	}

	m.records[rec.SessionID] = rec
	return evicted
}

// get returns the record for id after a lazy expiry check, refreshing its
// LastAccessedAt on success. An expired record is deleted on sight.
func (m *memoryStore) get(id string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, false
	}

	now := m.nowFunc()
	if now.Sub(rec.LastAccessedAt) > m.timeout {
		delete(m.records, id)
		return nil, false
	}

	rec.LastAccessedAt = now
	return rec, true
}

// delete removes a record, reporting whether it existed.
func (m *memoryStore) delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[id]
	delete(m.records, id)
	return ok
}

// sweep removes all expired records and returns how many were removed.
func (m *memoryStore) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	removed := 0
	for id, rec := range m.records {
		if now.Sub(rec.LastAccessedAt) > m.timeout {
			delete(m.records, id)
			removed++
		}
	}
	return removed
}

// list returns summaries of all unexpired records.
func (m *memoryStore) list() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	out := make([]Summary, 0, len(m.records))
	for _, rec := range m.records {
		age := now.Sub(rec.LastAccessedAt)
		if age > m.timeout {
			continue
		}
		out = append(out, Summary{
			SessionID:      rec.SessionID,
			CreatedAt:      rec.CreatedAt,
			LastAccessedAt: rec.LastAccessedAt,
			ExpiresIn:      m.timeout - age,
		})
	}
	return out
}

func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
