package store

import (
	"context"
	"sync"
	"time"

	"mediahub/internal/util"
	"mediahub/pkg/domain"
)

// MemoryStore keeps media in-process. Used by tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	media  map[string]domain.MediaItem
	orders []string
	now    func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		media: make(map[string]domain.MediaItem),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) ListMedia(ctx context.Context) ([]domain.MediaItem, error) {
	return m.list(func(domain.MediaItem) bool { return true }), nil
}

func (m *MemoryStore) ListByType(ctx context.Context, mediaType domain.MediaType) ([]domain.MediaItem, error) {
	return m.list(func(item domain.MediaItem) bool { return item.MediaType == mediaType }), nil
}

// list walks insertion order backwards so equal timestamps keep newest-first order.
func (m *MemoryStore) list(keep func(domain.MediaItem) bool) []domain.MediaItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.MediaItem, 0, len(m.orders))
	for i := len(m.orders) - 1; i >= 0; i-- {
		if item, ok := m.media[m.orders[i]]; ok && keep(item) {
			res = append(res, item)
		}
	}
	sortNewestFirst(res)
	return res
}

func (m *MemoryStore) GetMedia(ctx context.Context, id string) (domain.MediaItem, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.media[id]
	return item, ok, nil
}

func (m *MemoryStore) CreateMedia(ctx context.Context, item domain.MediaItem) (domain.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = util.NewID()
	stampTimes(&item, m.now())
	m.media[item.ID] = item
	m.orders = append(m.orders, item.ID)
	return item, nil
}

func (m *MemoryStore) SaveMedia(ctx context.Context, item domain.MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.media[item.ID]; !ok {
		m.orders = append(m.orders, item.ID)
	}
	m.media[item.ID] = item
	return nil
}

func (m *MemoryStore) DeleteMedia(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.media[id]; !ok {
		return false, nil
	}
	delete(m.media, id)
	for i, existing := range m.orders {
		if existing == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryStore) InsertMany(ctx context.Context, items []domain.MediaItem) (int, error) {
	inserted := 0
	for _, item := range items {
		if _, err := m.CreateMedia(ctx, item); err == nil {
			inserted++
		}
	}
	return inserted, nil
}

func (m *MemoryStore) Close(ctx context.Context) error { return nil }
