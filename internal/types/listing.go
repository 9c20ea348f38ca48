// Package types defines the shared data structures for auction listing records.
package types

import "time"

// ListingRecord is one auction listing as it flows through the enrichment
// pipeline. The natural key is (Source, SourceListingID); it must be unique
// across repeated ingestion passes.
//
// Deterministic fields (Title, Year, URL, OriginalOwner, Excerpt) are always
// populated before a record reaches the pipeline. Enrichment fields are
// pointers: nil means the value was never observed, while a non-nil pointer
// to a zero value means the value was observed to be zero. The persistence
// layer's coalesce merge depends on this distinction.
type ListingRecord struct {
	Source          string `json:"source"`
	SourceListingID string `json:"source_listing_id"`

	URL           string `json:"url"`
	Title         string `json:"title"`
	Year          int    `json:"year"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	OriginalOwner bool   `json:"original_owner"`
	Excerpt       string `json:"excerpt"`

	Mileage   *int       `json:"mileage,omitempty"`
	SoldPrice *int       `json:"sold_price,omitempty"`
	SoldDate  *time.Time `json:"sold_date,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Manual    *bool      `json:"manual,omitempty"`
}

// Complete reports whether the record carries the fields required for
// persistence. Records without a year or make/model are non-vehicle
// listings (wheels, hardtops, literature) and are dropped upstream.
func (r *ListingRecord) Complete() bool {
	return r.Year != 0 && r.Make != "" && r.Model != ""
}

// IntPtr returns a pointer to v. Convenience for building records with
// observed zero values.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// TimePtr returns a pointer to v.
func TimePtr(v time.Time) *time.Time { return &v }
