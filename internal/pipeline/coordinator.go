// Package pipeline orchestrates the enrichment run: listing candidates
// flow from a source through deterministic parsing, classifier fallback,
// and detail-page lookup into the persistence layer. Work is bounded by a
// worker limit and every listing is isolated, so one failure never aborts
// a batch.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/auction-tracker/internal/classify"
	"github.com/jonathan/auction-tracker/internal/fetch"
	"github.com/jonathan/auction-tracker/internal/observability"
	"github.com/jonathan/auction-tracker/internal/parsing"
	"github.com/jonathan/auction-tracker/internal/source"
	"github.com/jonathan/auction-tracker/internal/types"
)

// Concurrency suggestion bounds.
const (
	minSuggested = 8
	maxSuggested = 128
)

// SuggestConcurrency picks a worker count from the classifier RPM budget:
// roughly requests-per-second times an expected 250ms call latency, with
// 1.5x overprovision, clamped to [minSuggested, maxSuggested].
func SuggestConcurrency(rpm int) int {
	rps := float64(rpm) / 60.0
	c := int(rps * 0.25 * 1.5)
	if c < minSuggested {
		return minSuggested
	}
	if c > maxSuggested {
		return maxSuggested
	}
	return c
}

// ListingStore persists enriched listings.
type ListingStore interface {
	UpsertListing(ctx context.Context, r types.ListingRecord) error
}

// Options tunes one pipeline run.
type Options struct {
	Concurrency int
	PageStart   int
	PageLimit   int
	DryRun      bool
	Verbose     bool
}

// Coordinator drives enrichment runs against one listing source and one
// store. It owns the run-scoped classifier state; Reset on the enricher
// happens in NewCoordinator so reused components start clean.
type Coordinator struct {
	store    ListingStore
	enricher *classify.Enricher
	detail   *fetch.DetailFetcher
	perf     *observability.Recorder
	opts     Options
}

// NewCoordinator creates a coordinator for one run.
func NewCoordinator(store ListingStore, enricher *classify.Enricher, detail *fetch.DetailFetcher, perf *observability.Recorder, opts Options) *Coordinator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PageStart < 1 {
		opts.PageStart = 1
	}
	if opts.PageLimit < opts.PageStart {
		opts.PageLimit = opts.PageStart
	}
	if perf == nil {
		perf = observability.NewRecorder()
	}
	enricher.Reset()
	return &Coordinator{
		store:    store,
		enricher: enricher,
		detail:   detail,
		perf:     perf,
		opts:     opts,
	}
}

// Run walks the source page by page, enriches every candidate with a
// bounded worker pool, and persists each page batch. Enrichment and
// persistence failures are counted, not propagated; only a source failure
// or context cancellation aborts the run.
func (c *Coordinator) Run(ctx context.Context, src source.Source) (*observability.RunSummary, error) {
	summary := &observability.RunSummary{RunID: uuid.New().String()}
	var processed, updated, skipped, failed atomic.Int64

	finish := func() *observability.RunSummary {
		summary.Processed = processed.Load()
		summary.Updated = updated.Load()
		summary.Skipped = skipped.Load()
		summary.Failed = failed.Load()
		summary.FallbackCalls = c.enricher.FallbackCalls()
		return summary
	}

	for page := c.opts.PageStart; page <= c.opts.PageLimit; page++ {
		stop := c.perf.Start("source.page")
		candidates, err := src.Page(ctx, page)
		stop()
		if err != nil {
			return finish(), fmt.Errorf("failed to list page %d: %w", page, err)
		}
		if len(candidates) == 0 {
			fmt.Printf("No listings on page %d; stopping.\n", page)
			break
		}

		records := c.enrichBatch(ctx, src.Name(), candidates, &processed, &skipped, &failed)
		if ctx.Err() != nil {
			return finish(), ctx.Err()
		}

		for _, rec := range records {
			if c.opts.DryRun {
				if c.opts.Verbose {
					fmt.Printf("DRY-RUN: would upsert %s/%s %q\n", rec.Source, rec.SourceListingID, rec.Title)
				}
				updated.Add(1)
				continue
			}
			stopUpsert := c.perf.Start("db.upsert")
			err := c.store.UpsertListing(ctx, rec)
			stopUpsert()
			if err != nil {
				failed.Add(1)
				fmt.Printf("Warning: failed to persist %s/%s: %v\n", rec.Source, rec.SourceListingID, err)
				continue
			}
			updated.Add(1)
		}

		fmt.Printf("Page %d: fetched %d items, %d records persisted so far\n",
			page, len(candidates), updated.Load())
	}

	return finish(), nil
}

// enrichBatch enriches one page of candidates with at most Concurrency
// workers. A panic in one worker is absorbed and counted as a failure.
func (c *Coordinator) enrichBatch(ctx context.Context, sourceName string, candidates []source.Candidate, processed, skipped, failed *atomic.Int64) []types.ListingRecord {
	records := make([]types.ListingRecord, 0, len(candidates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					fmt.Printf("Warning: enrichment panicked for %q: %v\n", cand.Title, r)
				}
			}()
			processed.Add(1)

			rec, ok := c.enrich(gctx, sourceName, cand)
			if !ok {
				skipped.Add(1)
				return nil
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// enrich turns one candidate into a persistable record. Returns ok=false
// for listings that are not identifiable vehicles: no year in the title,
// or make/model unresolved after classifier fallback (wheels, hardtops,
// literature).
func (c *Coordinator) enrich(ctx context.Context, sourceName string, cand source.Candidate) (types.ListingRecord, bool) {
	if c.perf != nil {
		defer c.perf.Start("enrich.listing")()
	}

	year := parsing.ExtractYear(cand.Title)
	if year == 0 {
		return types.ListingRecord{}, false
	}

	mm := c.enricher.SplitMakeModel(ctx, cand.Title)
	if !mm.Known() {
		return types.ListingRecord{}, false
	}

	// Mileage priority: title, then excerpt, then the detail page.
	mileage := parsing.ExtractMileage(cand.Title)
	if mileage == nil {
		mileage = parsing.ExtractMileage(cand.Excerpt)
	}
	if mileage == nil && cand.URL != "" && c.detail != nil {
		m, err := c.detail.Mileage(ctx, cand.URL)
		if err == nil {
			mileage = m
		}
	}

	price, status := parsing.ExtractPriceAndStatus(cand.SoldText)
	soldDate := c.resolveSoldDate(cand)

	return types.ListingRecord{
		Source:          sourceName,
		SourceListingID: cand.SourceListingID,
		URL:             cand.URL,
		Title:           cand.Title,
		Year:            year,
		Make:            mm.Make,
		Model:           mm.Model,
		OriginalOwner:   parsing.IsOriginalOwner(cand.Title),
		Excerpt:         cand.Excerpt,
		Mileage:         mileage,
		SoldPrice:       price,
		SoldDate:        soldDate,
		Status:          status,
	}, true
}

// resolveSoldDate prefers an explicit result date, then a date embedded in
// the sold text, then the auction end timestamp.
func (c *Coordinator) resolveSoldDate(cand source.Candidate) *time.Time {
	if cand.SoldDateText != "" {
		if d := parsing.ParseSoldDate(cand.SoldDateText); d != nil {
			return d
		}
	}
	if text := parsing.ExtractSoldDateText(cand.SoldText); text != "" {
		if d := parsing.ParseSoldDate(text); d != nil {
			return d
		}
	}
	if cand.TimestampEnd > 0 {
		t := time.Unix(cand.TimestampEnd, 0).UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	}
	return nil
}
