// Package model defines shared data structures for the discovery service.
package model

import "time"

// Listing mirrors a row of the listings table.
// External listings always carry ExternalLink and never an OwnerID;
// locally authored listings are the reverse.
type Listing struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      *string   `json:"category,omitempty"`
	WorkSchedule  *string   `json:"workSchedule,omitempty"`
	ListingKind   *string   `json:"listingKind,omitempty"`
	City          *string   `json:"city,omitempty"`
	IsExternal    bool      `json:"isExternal"`
	ExternalLink  *string   `json:"externalLink,omitempty"`
	ExternalImage *string   `json:"externalImage,omitempty"`
	OwnerID       *int64    `json:"ownerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FeedEntry is one item decoded from a syndicated feed, before normalisation.
// Optional fields are filled by the parser using ordered fallbacks so the rest
// of the pipeline never has to inspect the raw feed shape.
type FeedEntry struct {
	Title       string
	Summary     string
	Link        string
	MediaURLs   []string // media:content urls, in document order
	Enclosures  []string // enclosure urls, in document order
	PublishedAt *time.Time
}

// Classification is the (category, kind) pair inferred for a source.
type Classification struct {
	Category string
	Kind     string
}

// IngestReport summarises one ingestion cycle.
type IngestReport struct {
	RunID         string        `json:"runId"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
	Sources       int           `json:"sources"`
	SourcesFailed int           `json:"sourcesFailed"`
	RawEntries    int           `json:"rawEntries"`
	Rejected      int           `json:"rejected"`
	Filtered      int           `json:"filtered"`
	Duplicates    int           `json:"duplicates"`
	Staged        int           `json:"staged"`
	Inserted      int           `json:"inserted"`
	FallbackUsed  bool          `json:"fallbackUsed"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
