package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adluc/discovery-service/internal/scraper"
)

func TestSeedListings(t *testing.T) {
	seeds := scraper.SeedListings()
	require.Len(t, seeds, 3)

	links := make(map[string]bool)
	for _, s := range seeds {
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Description)
		assert.True(t, s.IsExternal)
		require.NotNil(t, s.ExternalLink)
		require.NotNil(t, s.Category)
		require.NotNil(t, s.ListingKind)
		links[*s.ExternalLink] = true
	}
	assert.Len(t, links, 3, "seed links must be distinct")

	// callers get copies
	*seeds[0].ExternalLink = "mutated"
	assert.NotEqual(t, "mutated", *scraper.SeedListings()[0].ExternalLink)
}
