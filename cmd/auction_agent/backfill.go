package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/auction-tracker/internal/config"
	"github.com/jonathan/auction-tracker/internal/db"
	"github.com/jonathan/auction-tracker/internal/pipeline"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Classify transmissions for stored listings where unknown",
	Long:  "Selects stored listings whose transmission is still unknown, classifies each as manual or automatic from its title and excerpt, and writes the result back. Undecided listings stay unknown for a later pass.",
	RunE:  runBackfill,
}

var (
	backfillConfigFile  string
	backfillSource      string
	backfillLimit       int
	backfillConcurrency int
	backfillRPM         int
	backfillAPIKey      string
	backfillDatabaseURL string
	backfillDryRun      bool
	backfillVerbose     bool
)

func init() {
	backfillCmd.Flags().StringVar(&backfillConfigFile, "config", "", "Path to JSON config file")
	backfillCmd.Flags().StringVar(&backfillSource, "source", "", "Filter by marketplace (e.g. 'bat')")
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "Max rows to process (0 = all)")
	backfillCmd.Flags().IntVar(&backfillConcurrency, "concurrency", 0, "Concurrent classifier calls (default auto)")
	backfillCmd.Flags().IntVar(&backfillRPM, "rpm", 0, "Classifier requests per minute")
	backfillCmd.Flags().StringVar(&backfillAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	backfillCmd.Flags().StringVar(&backfillDatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL env var)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Classify but do not write to the database")
	backfillCmd.Flags().BoolVar(&backfillVerbose, "verbose", false, "Print detailed progress")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(_ *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(backfillConfigFile, config.Config{
		Concurrency:       backfillConcurrency,
		RequestsPerMinute: backfillRPM,
		APIKey:            backfillAPIKey,
		DatabaseURL:       backfillDatabaseURL,
		DryRun:            backfillDryRun,
		Verbose:           backfillVerbose,
	})
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or use --database-url)")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("backfill needs a classifier; set GEMINI_API_KEY or use --api-key")
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

	database, err := db.Connect(ctx, cfg.DatabaseURL, concurrency)
	if err != nil {
		return err
	}
	defer database.Close()

	coordinator := pipeline.NewCoordinator(database, comps.enricher, comps.detail, comps.perf, pipeline.Options{
		Concurrency: concurrency,
		Verbose:     cfg.Verbose,
	})

	if _, _, err := coordinator.Backfill(ctx, database, pipeline.BackfillOptions{
		Source: backfillSource,
		Limit:  backfillLimit,
		DryRun: cfg.DryRun,
	}); err != nil {
		return err
	}

	fmt.Printf("Classifier fallback used %d times\n", comps.enricher.FallbackCalls())
	comps.perf.WriteSummary(os.Stdout)
	return nil
}
