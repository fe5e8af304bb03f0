package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"adluc/discovery-service/internal/model"
)

// FeedParser decodes RSS, Atom and JSON Feed documents into FeedEntry values.
type FeedParser struct{}

// NewFeedParser returns a FeedParser.
func NewFeedParser() *FeedParser { return &FeedParser{} }

// Parse decodes body. Entries keep feed order. A document gofeed cannot make
// sense of is an error; callers count it as a source with zero entries.
func (p *FeedParser) Parse(body []byte) ([]model.FeedEntry, error) {
	// gofeed parsers carry decoder state, so each call gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]model.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toEntry(item))
	}
	return entries, nil
}

func toEntry(item *gofeed.Item) model.FeedEntry {
	e := model.FeedEntry{
		Title:   item.Title,
		Summary: item.Description,
		Link:    strings.TrimSpace(item.Link),
	}

	if strings.TrimSpace(e.Summary) == "" {
		e.Summary = item.Content
	}
	if e.Link == "" {
		for _, l := range item.Links {
			if l = strings.TrimSpace(l); l != "" {
				e.Link = l
				break
			}
		}
	}

	if item.PublishedParsed != nil {
		e.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		e.PublishedAt = item.UpdatedParsed
	}

	e.MediaURLs = mediaURLs(item)
	for _, enc := range item.Enclosures {
		if enc != nil && strings.TrimSpace(enc.URL) != "" {
			e.Enclosures = append(e.Enclosures, strings.TrimSpace(enc.URL))
		}
	}
	return e
}

// mediaURLs collects Media RSS content urls, both top-level <media:content>
// and those nested in <media:group>.
func mediaURLs(item *gofeed.Item) []string {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}

	var urls []string
	for _, c := range media["content"] {
		if u := strings.TrimSpace(c.Attrs["url"]); u != "" {
			urls = append(urls, u)
		}
	}
	for _, g := range media["group"] {
		for _, c := range g.Children["content"] {
			if u := strings.TrimSpace(c.Attrs["url"]); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}
