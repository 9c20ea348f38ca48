package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/auction-tracker/internal/fetch"
	"github.com/jonathan/auction-tracker/internal/parsing"
)

// DefaultAPIURL is the completed-listings filter endpoint.
const DefaultAPIURL = "https://bringatrailer.com/wp-json/bringatrailer/1.0/data/listings-filter"

// DefaultPerPage is the page size requested from the listings API.
const DefaultPerPage = 60

// APISource lists completed auctions through the marketplace JSON API.
type APISource struct {
	name    string
	baseURL string
	perPage int
	client  *http.Client
}

// NewAPISource creates an API-backed source. baseURL may be empty for the
// default endpoint.
func NewAPISource(name, baseURL string) *APISource {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &APISource{
		name:    name,
		baseURL: baseURL,
		perPage: DefaultPerPage,
		client:  &http.Client{Timeout: fetch.DefaultTimeout},
	}
}

// Name returns the marketplace identifier.
func (s *APISource) Name() string {
	return s.name
}

// Page fetches one page of completed listings, most recently ended first.
func (s *APISource) Page(ctx context.Context, page int) ([]Candidate, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", s.baseURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(s.perPage))
	q.Set("get_items", "1")
	q.Set("get_stats", "0")
	q.Set("sort", "td")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listings API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listings API returned HTTP %d for page %d", resp.StatusCode, page)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings API response: %w", err)
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode listings API response: %w", err)
	}

	candidates := make([]Candidate, 0, len(payload.Items))
	for _, item := range payload.Items {
		c, ok := item.toCandidate()
		if !ok {
			fmt.Printf("Skipping listing with no id: %q\n", item.Title)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

type apiResponse struct {
	Items []apiItem `json:"items"`
}

// flexID accepts the listing id as either a JSON number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexID(str)
		return nil
	}
	*f = flexID(s)
	return nil
}

type apiItem struct {
	ID           flexID      `json:"id"`
	Title        string      `json:"title"`
	Excerpt      string      `json:"excerpt"`
	Permalink    string      `json:"permalink"`
	URL          string      `json:"url"`
	SoldText     string      `json:"sold_text"`
	TimestampEnd json.Number `json:"timestamp_end"`
}

// toCandidate converts an API item, stripping HTML from the sold text.
// Items without an id cannot form a natural key and are rejected.
func (it apiItem) toCandidate() (Candidate, bool) {
	id := string(it.ID)
	if id == "" {
		return Candidate{}, false
	}

	listingURL := it.Permalink
	if listingURL == "" {
		listingURL = it.URL
	}

	var ts int64
	if v, err := it.TimestampEnd.Int64(); err == nil {
		ts = v
	} else if v, err := it.TimestampEnd.Float64(); err == nil {
		ts = int64(v)
	}

	return Candidate{
		SourceListingID: id,
		Title:           strings.TrimSpace(it.Title),
		Excerpt:         strings.TrimSpace(it.Excerpt),
		URL:             listingURL,
		SoldText:        strings.TrimSpace(parsing.StripHTML(it.SoldText)),
		TimestampEnd:    ts,
	}, true
}
