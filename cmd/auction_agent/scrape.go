package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/auction-tracker/internal/config"
	"github.com/jonathan/auction-tracker/internal/db"
	"github.com/jonathan/auction-tracker/internal/pipeline"
	"github.com/jonathan/auction-tracker/internal/source"
	"github.com/jonathan/auction-tracker/internal/types"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape completed auction listings and persist enriched records",
	Long:  "Walks the completed-auctions source page by page, enriches every listing (year, make/model, mileage, price, status, sold date), and upserts records by their (source, source_listing_id) natural key.",
	RunE:  runScrape,
}

var (
	scrapeConfigFile  string
	scrapeSource      string
	scrapeAPIURL      string
	scrapeBrowserURL  string
	scrapeUseBrowser  bool
	scrapeMaxClicks   int
	scrapePageStart   int
	scrapePageLimit   int
	scrapeConcurrency int
	scrapeRPM         int
	scrapeAPIKey      string
	scrapeDatabaseURL string
	scrapeDryRun      bool
	scrapeVerbose     bool
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeConfigFile, "config", "", "Path to JSON config file")
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "", "Marketplace identifier (default \"bat\")")
	scrapeCmd.Flags().StringVar(&scrapeAPIURL, "api-url", "", "Listings API endpoint (default built-in)")
	scrapeCmd.Flags().StringVar(&scrapeBrowserURL, "browser-url", "", "Results page URL for browser scraping")
	scrapeCmd.Flags().BoolVar(&scrapeUseBrowser, "use-browser", false, "Render the results page in a headless browser instead of using the API")
	scrapeCmd.Flags().IntVar(&scrapeMaxClicks, "max-clicks", 0, "Max 'Show More' clicks in browser mode")
	scrapeCmd.Flags().IntVar(&scrapePageStart, "page-start", 0, "First API page to fetch")
	scrapeCmd.Flags().IntVar(&scrapePageLimit, "page-limit", 0, "Last API page to fetch")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 0, "Concurrent enrichment workers (default auto)")
	scrapeCmd.Flags().IntVar(&scrapeRPM, "rpm", 0, "Classifier requests per minute")
	scrapeCmd.Flags().StringVar(&scrapeAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	scrapeCmd.Flags().StringVar(&scrapeDatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL env var)")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "Enrich but do not write to the database")
	scrapeCmd.Flags().BoolVar(&scrapeVerbose, "verbose", false, "Print detailed progress")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(_ *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(scrapeConfigFile, config.Config{
		Source:            scrapeSource,
		APIURL:            scrapeAPIURL,
		BrowserURL:        scrapeBrowserURL,
		UseBrowser:        scrapeUseBrowser,
		MaxClicks:         scrapeMaxClicks,
		PageStart:         scrapePageStart,
		PageLimit:         scrapePageLimit,
		Concurrency:       scrapeConcurrency,
		RequestsPerMinute: scrapeRPM,
		APIKey:            scrapeAPIKey,
		DatabaseURL:       scrapeDatabaseURL,
		DryRun:            scrapeDryRun,
		Verbose:           scrapeVerbose,
	})
	if err != nil {
		return err
	}
	if cfg.UseBrowser && cfg.BrowserURL == "" {
		return fmt.Errorf("browser mode requires --browser-url (or browser_url in the config file)")
	}
	if !cfg.DryRun && cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or use --database-url); use --dry-run to skip persistence")
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = pipeline.SuggestConcurrency(cfg.RequestsPerMinute)
		fmt.Printf("Auto concurrency set to %d based on rate limit of %d req/min\n",
			concurrency, cfg.RequestsPerMinute)
	}

	ctx := context.Background()
	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.close()

	comps.printHealth(cfg, db.Target(cfg.DatabaseURL))

	var store pipeline.ListingStore
	if cfg.DryRun {
		store = discardStore{}
	} else {
		database, err := db.Connect(ctx, cfg.DatabaseURL, concurrency)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	}

	var src source.Source
	if cfg.UseBrowser {
		src = source.NewBrowserSource(cfg.Source, cfg.BrowserURL, cfg.MaxClicks, cfg.Verbose)
	} else {
		src = source.NewAPISource(cfg.Source, cfg.APIURL)
	}

	coordinator := pipeline.NewCoordinator(store, comps.enricher, comps.detail, comps.perf, pipeline.Options{
		Concurrency: concurrency,
		PageStart:   cfg.PageStart,
		PageLimit:   cfg.PageLimit,
		DryRun:      cfg.DryRun,
		Verbose:     cfg.Verbose,
	})

	summary, err := coordinator.Run(ctx, src)
	if summary != nil {
		comps.printer.PrintRunSummary(summary)
		comps.perf.WriteSummary(os.Stdout)
	}
	return err
}

// discardStore backs dry runs; the coordinator never reaches it because
// dry-run records are counted before persistence.
type discardStore struct{}

func (discardStore) UpsertListing(context.Context, types.ListingRecord) error { return nil }
