// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Default tuning values. Each can be overridden by the config file, an
// environment variable, or a CLI flag.
const (
	DefaultSource            = "bat"
	DefaultRequestsPerMinute = 1200
	DefaultPageStart         = 1
	DefaultPageLimit         = 200
	DefaultDetailMaxRetries  = 3
	DefaultDetailBackoffBase = 1.8
	DefaultFetchTimeoutSecs  = 20
)

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Persistence
	DatabaseURL string `json:"database_url,omitempty" validate:"omitempty,uri"`

	// Classifier
	APIKey            string `json:"api_key,omitempty"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty" validate:"omitempty,min=1"`

	// Listing source
	Source     string `json:"source,omitempty"`
	APIURL     string `json:"api_url,omitempty" validate:"omitempty,uri"`
	PageStart  int    `json:"page_start,omitempty" validate:"omitempty,min=1"`
	PageLimit  int    `json:"page_limit,omitempty" validate:"omitempty,min=1"`
	UseBrowser bool   `json:"use_browser,omitempty"`
	BrowserURL string `json:"browser_url,omitempty" validate:"omitempty,uri"`
	MaxClicks  int    `json:"max_clicks,omitempty" validate:"omitempty,min=1"`

	// Detail page fetching
	DetailMaxRetries  int     `json:"detail_max_retries,omitempty" validate:"omitempty,min=1"`
	DetailBackoffBase float64 `json:"detail_backoff_base,omitempty" validate:"omitempty,gt=1"`
	FetchTimeoutSecs  int     `json:"fetch_timeout_seconds,omitempty" validate:"omitempty,min=1"`

	// Behavior
	Concurrency int  `json:"concurrency,omitempty" validate:"omitempty,min=1"`
	Verbose     bool `json:"verbose,omitempty"`
	DryRun      bool `json:"dry_run,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks value ranges. Required fields are enforced later, after
// flag and environment merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("config error: field %q fails %q validation", e.Field(), e.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// ApplyEnv fills unset fields from environment variables:
// DATABASE_URL, GEMINI_API_KEY, and GEMINI_RATE_LIMIT_RPM.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.RequestsPerMinute == 0 {
		if rpm, err := strconv.Atoi(os.Getenv("GEMINI_RATE_LIMIT_RPM")); err == nil && rpm > 0 {
			c.RequestsPerMinute = rpm
		}
	}
}

// ApplyDefaults fills remaining zero fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.Source == "" {
		c.Source = DefaultSource
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.PageStart == 0 {
		c.PageStart = DefaultPageStart
	}
	if c.PageLimit == 0 {
		c.PageLimit = DefaultPageLimit
	}
	if c.DetailMaxRetries == 0 {
		c.DetailMaxRetries = DefaultDetailMaxRetries
	}
	if c.DetailBackoffBase == 0 {
		c.DetailBackoffBase = DefaultDetailBackoffBase
	}
	if c.FetchTimeoutSecs == 0 {
		c.FetchTimeoutSecs = DefaultFetchTimeoutSecs
	}
}

// MergeWithDefaults returns a new Config with zero fields filled from
// defaults. Used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Source == "" {
		result.Source = defaults.Source
	}
	if result.APIURL == "" {
		result.APIURL = defaults.APIURL
	}
	if result.BrowserURL == "" {
		result.BrowserURL = defaults.BrowserURL
	}
	if result.RequestsPerMinute == 0 {
		result.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if result.PageStart == 0 {
		result.PageStart = defaults.PageStart
	}
	if result.PageLimit == 0 {
		result.PageLimit = defaults.PageLimit
	}
	if result.MaxClicks == 0 {
		result.MaxClicks = defaults.MaxClicks
	}
	if result.DetailMaxRetries == 0 {
		result.DetailMaxRetries = defaults.DetailMaxRetries
	}
	if result.DetailBackoffBase == 0 {
		result.DetailBackoffBase = defaults.DetailBackoffBase
	}
	if result.FetchTimeoutSecs == 0 {
		result.FetchTimeoutSecs = defaults.FetchTimeoutSecs
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if !result.UseBrowser {
		result.UseBrowser = defaults.UseBrowser
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}
	if !result.DryRun {
		result.DryRun = defaults.DryRun
	}

	return result
}
