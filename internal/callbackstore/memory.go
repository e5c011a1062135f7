package callbackstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

// Memory - хранилище в памяти процесса с TTL
type Memory struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	entries  map[string]memoryEntry
	consumed map[string]time.Time
}

// NewMemory создаёт хранилище в памяти
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]memoryEntry),
		consumed: make(map[string]time.Time),
	}
}

// WithClock подменяет часы (для тестов)
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Save(_ context.Context, batch string, data []byte) (string, error) {
	key := NewKey()
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		entry:   Entry{Batch: batch, Data: stored},
		expires: m.now().Add(m.ttl),
	}
	return key, nil
}

func (m *Memory) Load(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		return Entry{}, ErrNotFound
	}
	return e.entry, nil
}

func (m *Memory) Consume(_ context.Context, batch string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expires, ok := m.consumed[batch]; ok && m.now().Before(expires) {
		return false, nil
	}
	m.consumed[batch] = m.now().Add(m.ttl)
	return true, nil
}

// Sweep удаляет просроченные записи и возвращает их количество
func (m *Memory) Sweep(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, key)
			removed++
		}
	}
	for batch, expires := range m.consumed {
		if !now.Before(expires) {
			delete(m.consumed, batch)
			removed++
		}
	}
	return removed
}

// Len возвращает число живых записей
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
