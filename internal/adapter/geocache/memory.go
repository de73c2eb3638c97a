package geocache

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// MemoryBackend is a thread-safe, size-bounded LRU kept in process.
type MemoryBackend struct {
	maxEntries int

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type memoryEntry struct {
	key   string
	value domain.GeocodeResponse
}

// NewMemoryBackend creates an LRU backend holding at most maxEntries responses.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryBackend{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Get(_ context.Context, key string) (domain.GeocodeResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return domain.GeocodeResponse{}, false, nil
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoryEntry).value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, resp domain.GeocodeResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value.(*memoryEntry).value = resp
		m.order.MoveToFront(el)
		return nil
	}

	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, value: resp})
	if m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Len returns the number of cached responses.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
