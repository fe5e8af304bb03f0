package scraper

import (
	"context"
	"errors"
	"fmt"

	"adluc/discovery-service/internal/db"
)

// Deduplicator decides whether a candidate link is new. It checks the store
// and every link already staged in the current batch, so overlapping feeds
// that point at the same page stage it once. One Deduplicator serves one
// ingestion cycle.
type Deduplicator struct {
	store  db.ListingStore
	staged map[string]struct{}
}

// NewDeduplicator returns a Deduplicator with an empty staging set.
func NewDeduplicator(store db.ListingStore) *Deduplicator {
	return &Deduplicator{store: store, staged: make(map[string]struct{})}
}

// Admit reports whether link is unique. A unique link is recorded as staged,
// so a second Admit for it returns false.
func (d *Deduplicator) Admit(ctx context.Context, link string) (bool, error) {
	if _, ok := d.staged[link]; ok {
		return false, nil
	}

	_, err := d.store.FindByExternalLink(ctx, link)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, db.ErrNotFound):
		d.staged[link] = struct{}{}
		return true, nil
	default:
		return false, fmt.Errorf("lookup %s: %w", link, err)
	}
}

// Staged reports how many links have been admitted.
func (d *Deduplicator) Staged() int { return len(d.staged) }
