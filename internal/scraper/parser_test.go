package scraper_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adluc/discovery-service/internal/scraper"
)

func TestParse_RSSWithMedia(t *testing.T) {
	entries, err := scraper.NewFeedParser().Parse([]byte(mediaFeed))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "https://www.fct.pt/bolsas/1", first.Link)
	assert.Contains(t, first.Title, "Bolsa")
	assert.Equal(t, []string{"https://www.fct.pt/img/1.jpg"}, first.MediaURLs)
	assert.Equal(t, []string{"https://www.fct.pt/img/1-enc.jpg"}, first.Enclosures)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2025, first.PublishedAt.Year())

	img := scraper.ExtractImage(first)
	require.NotNil(t, img)
	assert.Equal(t, "https://www.fct.pt/img/1.jpg", *img)

	img = scraper.ExtractImage(entries[1])
	require.NotNil(t, img)
	assert.Equal(t, "https://www.fct.pt/img/2.jpg", *img)

	assert.Equal(t, []string{"https://www.fct.pt/img/3.jpg"}, entries[2].MediaURLs)
}

func TestParse_KeepsFeedOrder(t *testing.T) {
	entries, err := scraper.NewFeedParser().Parse([]byte(rssFeed("https://www.itjobs.pt/oferta", 5)))
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("https://www.itjobs.pt/oferta/%d", i), e.Link)
	}
}

func TestParse_Atom(t *testing.T) {
	entries, err := scraper.NewFeedParser().Parse([]byte(atomFeed))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "https://euraxess.ec.europa.eu/jobs/42", e.Link)
	assert.Contains(t, e.Summary, "Two year position.")
	require.NotNil(t, e.PublishedAt)
}

func TestParse_Malformed(t *testing.T) {
	_, err := scraper.NewFeedParser().Parse([]byte("this is not a feed"))
	assert.Error(t, err)
}
