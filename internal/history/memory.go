package history

import (
	"context"
	"sync"

	"playground/internal/domain"
)

// Memory keeps the log in process memory. It is the default backend and is
// lost on restart.
type Memory[T Record] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
}

func NewMemory[T Record](capacity int) *Memory[T] {
	capacity = normalizeCapacity(capacity)
	return &Memory[T]{items: make([]T, 0, capacity), capacity: capacity}
}

func (m *Memory[T]) Push(_ context.Context, item T) error {
	id := item.RecordID()
	if id == "" {
		return ErrMissingID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]T, 0, m.capacity)
	next = append(next, item)
	for _, existing := range m.items {
		if len(next) == m.capacity {
			break
		}
		if existing.RecordID() == id {
			continue
		}
		next = append(next, existing)
	}
	m.items = next
	return nil
}

func (m *Memory[T]) List(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.RecordID() == id {
			m.items = append(m.items[:i:i], m.items[i+1:]...)
			return nil
		}
	}
	return notFound(id)
}

func (m *Memory[T]) Clear(_ context.Context) error {
	m.mu.Lock()
	m.items = make([]T, 0, m.capacity)
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) Capacity() int { return m.capacity }

var _ Log[domain.HistoryItem] = (*Memory[domain.HistoryItem])(nil)
