package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adluc/discovery-service/internal/model"
)

// ErrNotFound is returned when no listing matches a lookup.
var ErrNotFound = errors.New("listing not found")

// ListingStore is the persistence capability the ingestion pipeline and the
// browse endpoints depend on.
type ListingStore interface {
	// FindByExternalLink returns ErrNotFound when no listing has link.
	FindByExternalLink(ctx context.Context, link string) (*model.Listing, error)
	// InsertListings commits batch in one transaction and returns how many
	// rows were actually written. Rows whose external link already exists are
	// skipped, not reported as errors.
	InsertListings(ctx context.Context, batch []model.Listing) (int, error)
	// ListRecent returns up to limit listings, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Listing, error)
}

const listingColumns = `id, title, description, category, work_schedule, listing_kind, city,
	       is_external, external_link, external_image, owner_id, created_at`

// PostgresStore is the pgx-backed ListingStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ ListingStore = (*PostgresStore)(nil)

// FindByExternalLink looks a listing up by its external link.
func (s *PostgresStore) FindByExternalLink(ctx context.Context, link string) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+`
		 FROM listings
		 WHERE external_link = $1`,
		link,
	)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("findByExternalLink: %w", err)
	}
	return l, nil
}

// InsertListings writes batch inside a single transaction. Conflicts on
// external_link are the race-free dedup signal and count as skipped rows.
func (s *PostgresStore) InsertListings(ctx context.Context, batch []model.Listing) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	b := &pgx.Batch{}
	for _, l := range batch {
		b.Queue(
			`INSERT INTO listings (title, description, category, work_schedule, listing_kind, city,
			                       is_external, external_link, external_image, owner_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (external_link) DO NOTHING`,
			l.Title, l.Description, l.Category, l.WorkSchedule, l.ListingKind, l.City,
			l.IsExternal, l.ExternalLink, l.ExternalImage, l.OwnerID,
		)
	}

	br := tx.SendBatch(ctx, b)
	inserted := 0
	for range batch {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("insert listing: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// ListRecent returns the newest listings first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+listingColumns+`
		 FROM listings
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listRecent query: %w", err)
	}
	defer rows.Close()

	listings := make([]model.Listing, 0, limit)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("listRecent scan: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Category, &l.WorkSchedule, &l.ListingKind, &l.City,
		&l.IsExternal, &l.ExternalLink, &l.ExternalImage, &l.OwnerID, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
