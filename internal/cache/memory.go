package cache

import (
	"container/list"
	"context"
	"sync"
)

// Memory is a bounded in-process cache with LRU eviction. Reads and
// writes both refresh recency.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type memoryEntry struct {
	key   string
	value []byte
}

var _ ChunkCache = (*Memory)(nil)

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &Memory{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryEntry).value, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value.(*memoryEntry).value = value
		m.order.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, value: value})
	if m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.order.Remove(el)
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
