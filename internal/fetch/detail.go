package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/auction-tracker/internal/observability"
	"github.com/jonathan/auction-tracker/internal/parsing"
)

// DefaultMaxRetries bounds attempts for one detail page.
const DefaultMaxRetries = 3

// DefaultBackoffBase is the exponent base, in seconds, for retry delays.
const DefaultBackoffBase = 1.8

// statusRetryCap caps delays after a retryable HTTP status.
const statusRetryCap = 10 * time.Second

// errorRetryCap caps delays after timeouts and transport errors.
const errorRetryCap = 8 * time.Second

// DetailFetcher retrieves listing detail pages and extracts mileage from
// the "Listing Details" section. Failures are absorbed: a page that cannot
// be fetched or carries no mileage yields nil rather than an error, so one
// bad listing never stops a run.
type DetailFetcher struct {
	opts        *Options
	maxRetries  int
	backoffBase float64
	perf        *observability.Recorder

	sleep  func(context.Context, time.Duration) error
	jitter func() time.Duration
}

// NewDetailFetcher creates a detail-page fetcher. opts may be nil for
// defaults; perf may be nil to disable timing.
func NewDetailFetcher(opts *Options, perf *observability.Recorder) *DetailFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &DetailFetcher{
		opts:        opts,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		perf:        perf,
		sleep:       sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Float64() * 0.5 * float64(time.Second))
		},
	}
}

// Tune overrides the retry budget and backoff base; zero values keep the
// defaults.
func (f *DetailFetcher) Tune(maxRetries int, backoffBase float64) {
	if maxRetries > 0 {
		f.maxRetries = maxRetries
	}
	if backoffBase > 1 {
		f.backoffBase = backoffBase
	}
}

// Mileage fetches a listing detail page and extracts the mileage from its
// "Listing Details" section. Returns (nil, nil) when the page could not be
// fetched within the retry budget or carries no mileage entry; the only
// error returned is context cancellation.
func (f *DetailFetcher) Mileage(ctx context.Context, urlStr string) (*int, error) {
	if f.perf != nil {
		defer f.perf.Start("detail.fetch")()
	}

	var html string
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		res, err := URL(ctx, urlStr, f.opts)
		if err == nil {
			html = res.HTML
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrTooManyRedirects) {
			fmt.Printf("Skipping detail page due to redirect loop: %s\n", urlStr)
			return nil, nil
		}

		last := attempt == f.maxRetries-1
		switch {
		case res != nil && retryableStatus(res.StatusCode):
			if last {
				fmt.Printf("Skipping detail page due to HTTP %d: %s\n", res.StatusCode, urlStr)
				return nil, nil
			}
			if err := f.sleep(ctx, f.backoff(attempt, statusRetryCap)+f.jitter()); err != nil {
				return nil, err
			}
		case res != nil && res.StatusCode == 403:
			// Might be a temporary block; short delay then retry.
			if last {
				fmt.Printf("Skipping detail page due to HTTP 403: %s\n", urlStr)
				return nil, nil
			}
			if err := f.sleep(ctx, time.Duration(2+attempt)*time.Second); err != nil {
				return nil, err
			}
		default:
			if last {
				fmt.Printf("Skipping detail page due to fetch error: %v\n", err)
				return nil, nil
			}
			if err := f.sleep(ctx, f.backoff(attempt, errorRetryCap)); err != nil {
				return nil, err
			}
		}
	}
	if html == "" {
		return nil, nil
	}

	return ParseListingDetailsMileage(html), nil
}

// backoff computes base^attempt seconds, capped at limit.
func (f *DetailFetcher) backoff(attempt int, limit time.Duration) time.Duration {
	d := time.Duration(math.Pow(f.backoffBase, float64(attempt)) * float64(time.Second))
	if d > limit {
		return limit
	}
	return d
}

// retryableStatus reports whether an HTTP status indicates a transient
// server condition worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// ParseListingDetailsMileage extracts mileage from the "Listing Details"
// section of a detail page: the first list item that mentions miles and
// parses to a value wins.
func ParseListingDetailsMileage(html string) *int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var section *goquery.Selection
	doc.Find("div.item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Find("strong").First().Text(), "Listing Details") {
			section = s
			return false
		}
		return true
	})
	if section == nil {
		return nil
	}

	var mileage *int
	section.Find("ul li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := strings.TrimSpace(li.Text())
		if !strings.Contains(strings.ToLower(text), "mile") {
			return true
		}
		if m := parsing.ExtractMileage(text); m != nil {
			mileage = m
			return false
		}
		return true
	})
	return mileage
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
