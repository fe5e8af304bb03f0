package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"adluc/discovery-service/internal/model"
)

// MemoryStore is an in-process ListingStore with the same uniqueness rule as
// the Postgres schema: at most one listing per external link.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	listings []model.Listing
	byLink   map[string]int
	now      func() time.Time

	// FailInsert, when set, is returned by InsertListings without writing.
	FailInsert error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byLink: make(map[string]int), now: time.Now}
}

var _ ListingStore = (*MemoryStore)(nil)

// FindByExternalLink implements ListingStore.
func (m *MemoryStore) FindByExternalLink(_ context.Context, link string) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byLink[link]
	if !ok {
		return nil, ErrNotFound
	}
	l := m.listings[idx]
	return &l, nil
}

// InsertListings implements ListingStore. The whole batch is applied under one
// lock, so it is atomic with respect to other callers.
func (m *MemoryStore) InsertListings(ctx context.Context, batch []model.Listing) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInsert != nil {
		return 0, m.FailInsert
	}

	inserted := 0
	for _, l := range batch {
		if l.ExternalLink != nil {
			if _, dup := m.byLink[*l.ExternalLink]; dup {
				continue
			}
		}
		m.nextID++
		l.ID = m.nextID
		l.CreatedAt = m.now()
		m.listings = append(m.listings, l)
		if l.ExternalLink != nil {
			m.byLink[*l.ExternalLink] = len(m.listings) - 1
		}
		inserted++
	}
	return inserted, nil
}

// ListRecent implements ListingStore.
func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Listing, len(m.listings))
	copy(out, m.listings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many listings are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listings)
}

// All returns a copy of every stored listing in insertion order.
func (m *MemoryStore) All() []model.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Listing, len(m.listings))
	copy(out, m.listings)
	return out
}
