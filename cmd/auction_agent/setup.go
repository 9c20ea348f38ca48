package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/auction-tracker/internal/classify"
	"github.com/jonathan/auction-tracker/internal/config"
	"github.com/jonathan/auction-tracker/internal/fetch"
	"github.com/jonathan/auction-tracker/internal/llm"
	"github.com/jonathan/auction-tracker/internal/observability"
	"github.com/jonathan/auction-tracker/internal/ratelimit"
)

// resolveConfig merges flag values over an optional config file, then the
// environment, then package defaults, and validates the result.
func resolveConfig(configFile string, flags config.Config) (*config.Config, error) {
	cfg := flags
	if configFile != "" {
		fileCfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// components holds the run-scoped pieces every command assembles.
type components struct {
	enricher *classify.Enricher
	detail   *fetch.DetailFetcher
	perf     *observability.Recorder
	printer  *observability.Printer
	client   llm.Client
}

// buildComponents wires the classifier, rate limiter, detail fetcher, and
// perf recorder from the resolved config. A missing API key is not an
// error: the enricher degrades to deterministic parsing only.
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	var client llm.Client
	if cfg.APIKey != "" {
		c, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create classifier client: %w", err)
		}
		client = c
	} else {
		fmt.Println("Warning: no API key configured; classifier fallback disabled")
	}

	limiter := ratelimit.PerMinute(cfg.RequestsPerMinute)
	perf := observability.NewRecorder()
	enricher := classify.NewEnricher(client, limiter, perf)

	opts := fetch.DefaultOptions()
	opts.Timeout = time.Duration(cfg.FetchTimeoutSecs) * time.Second
	detail := fetch.NewDetailFetcher(opts, perf)
	detail.Tune(cfg.DetailMaxRetries, cfg.DetailBackoffBase)

	return &components{
		enricher: enricher,
		detail:   detail,
		perf:     perf,
		printer:  observability.NewPrinter(os.Stdout),
		client:   client,
	}, nil
}

// close releases the classifier client, if any.
func (c *components) close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

// printHealth prints the startup health check for one run.
func (c *components) printHealth(cfg *config.Config, dbTarget string) {
	interval := ratelimit.PerMinute(cfg.RequestsPerMinute).Interval().Seconds()
	c.printer.PrintHealthCheck(c.enricher.Configured(), cfg.RequestsPerMinute, interval, dbTarget)
}
