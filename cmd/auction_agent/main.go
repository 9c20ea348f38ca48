// Package main provides the auction_agent CLI for scraping, enriching, and
// persisting completed auction listings.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "auction_agent",
	Short: "Auction listing enrichment pipeline",
	Long:  "auction_agent ingests completed auction listings, enriches them with deterministic parsing and AI classification, and persists them to PostgreSQL keyed by (source, source_listing_id).",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
