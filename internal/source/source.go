// Package source lists completed auction listings from a marketplace,
// either through its JSON results API or by rendering the results page in
// a headless browser.
package source

import (
	"context"
	"net/url"
	"strings"
)

// Candidate is a raw listing as found on the marketplace, before
// enrichment. SoldText is plain text with any HTML stripped.
type Candidate struct {
	SourceListingID string
	Title           string
	Excerpt         string
	URL             string
	SoldText        string
	SoldDateText    string
	TimestampEnd    int64
}

// Source enumerates listing candidates page by page.
type Source interface {
	// Name identifies the marketplace, e.g. "bat". It is the first half
	// of the natural key records are persisted under.
	Name() string
	// Page returns the candidates on a 1-based results page. An empty
	// slice signals the end of pagination.
	Page(ctx context.Context, page int) ([]Candidate, error)
}

// slugFromURL derives a stable listing identifier from a listing URL,
// using the last non-empty path segment. Used where the marketplace does
// not expose a numeric id.
func slugFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
