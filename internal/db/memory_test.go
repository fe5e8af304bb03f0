package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adluc/discovery-service/internal/db"
	"adluc/discovery-service/internal/model"
)

func external(title, link string) model.Listing {
	return model.Listing{Title: title, Description: title, IsExternal: true, ExternalLink: model.StringPtr(link)}
}

func TestMemoryStore_InsertSkipsDuplicateLinks(t *testing.T) {
	ctx := context.Background()
	s := db.NewMemoryStore()

	n, err := s.InsertListings(ctx, []model.Listing{
		external("a", "https://x.example/1"),
		external("b", "https://x.example/2"),
		external("a again", "https://x.example/1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InsertListings(ctx, []model.Listing{external("b again", "https://x.example/2")})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_LocalListingsHaveNoLinkConstraint(t *testing.T) {
	ctx := context.Background()
	s := db.NewMemoryStore()
	owner := int64(7)

	local := model.Listing{Title: "Estágio", Description: "Estágio de verão", OwnerID: &owner}
	n, err := s.InsertListings(ctx, []model.Listing{local, local})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryStore_FindByExternalLink(t *testing.T) {
	ctx := context.Background()
	s := db.NewMemoryStore()
	_, err := s.InsertListings(ctx, []model.Listing{external("a", "https://x.example/1")})
	require.NoError(t, err)

	got, err := s.FindByExternalLink(ctx, "https://x.example/1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
	assert.NotZero(t, got.ID)

	_, err = s.FindByExternalLink(ctx, "https://x.example/missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMemoryStore_ListRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := db.NewMemoryStore()
	_, err := s.InsertListings(ctx, []model.Listing{
		external("first", "https://x.example/1"),
		external("second", "https://x.example/2"),
		external("third", "https://x.example/3"),
	})
	require.NoError(t, err)

	got, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Title)
	assert.Equal(t, "second", got[1].Title)
}

func TestMemoryStore_FailInsert(t *testing.T) {
	s := db.NewMemoryStore()
	s.FailInsert = errors.New("connection refused")

	_, err := s.InsertListings(context.Background(), []model.Listing{external("a", "https://x.example/1")})
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}
