package scraper

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"adluc/discovery-service/internal/model"
)

// Storage limits of the listings table.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
	maxURLLen         = 500
)

// ErrInvalidEntry marks a feed entry that cannot become a listing.
var ErrInvalidEntry = errors.New("entry has no usable title or link")

// Candidate is a normalised feed entry, ready for dedup and staging.
type Candidate struct {
	Title       string
	Description string
	Link        string
	Image       *string
}

// NormalizeEntry strips markup, applies the title fallback for an empty
// summary, truncates to storage limits and picks the image. Truncation runs
// last so the stored text is an exact prefix of the cleaned text.
func NormalizeEntry(e model.FeedEntry) (Candidate, error) {
	link := strings.TrimSpace(e.Link)
	title := StripMarkup(e.Title)
	if link == "" || title == "" || len(link) > maxURLLen {
		return Candidate{}, ErrInvalidEntry
	}

	desc := StripMarkup(e.Summary)
	if desc == "" {
		desc = title
	}

	return Candidate{
		Title:       Truncate(title, MaxTitleLen),
		Description: Truncate(desc, MaxDescriptionLen),
		Link:        link,
		Image:       ExtractImage(e),
	}, nil
}

// blockTags separate words when removed; inline tags do not.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true, "table": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "blockquote": true,
}

// StripMarkup removes HTML tags and comments, decodes entities, drops
// script/style bodies and collapses whitespace runs to single spaces.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var (
		b    strings.Builder
		skip int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n characters without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ExtractImage returns the first media:content url, else the first
// enclosure url, else nil.
func ExtractImage(e model.FeedEntry) *string {
	for _, candidates := range [][]string{e.MediaURLs, e.Enclosures} {
		for _, u := range candidates {
			if u = strings.TrimSpace(u); u != "" && len(u) <= maxURLLen {
				return &u
			}
		}
	}
	return nil
}

// classificationRule maps host patterns to a classification. Rules are
// evaluated in order; the first match wins.
type classificationRule struct {
	patterns []string
	class    model.Classification
}

var classificationRules = []classificationRule{
	{
		patterns: []string{"net-empregos", "itjobs", "indeed", "linkedin", "expressoemprego", "careerjet", "sapo.pt"},
		class:    model.Classification{Category: "job", Kind: "job"},
	},
	{
		patterns: []string{"euraxess"},
		class:    model.Classification{Category: "job", Kind: "research"},
	},
	{
		patterns: []string{"fct.pt"},
		class:    model.Classification{Category: "grant", Kind: "grant"},
	},
}

var defaultClassification = model.Classification{Category: "job/news", Kind: "job"}

// Classify infers the default classification of every entry of a source from
// the source URL's host.
func Classify(sourceURL string) model.Classification {
	host := sourceURL
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)

	for _, rule := range classificationRules {
		for _, p := range rule.patterns {
			if strings.Contains(host, p) {
				return rule.class
			}
		}
	}
	return defaultClassification
}
