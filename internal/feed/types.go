// internal/feed/types.go
package feed

import (
	"time"
)

// Source is a curated RSS/Atom feed registered by an admin.
type Source struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	LastFetched time.Time `json:"lastFetched"`
}

// Entry is one article pulled from a source.
type Entry struct {
	ID          int64     `json:"id"`
	SourceID    int64     `json:"sourceId"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	GUID        string    `json:"guid"`
	ImageURL    string    `json:"imageURL,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// FetchResult carries everything learned from one fetch of one source.
type FetchResult struct {
	Source       Source
	SourceTitle  string
	Entries      []Entry
	LastModified string
	ETag         string
	Error        error
}
