package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/auction-tracker/internal/config"
)

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"source": "file-src",
		"requests_per_minute": 600,
		"database_url": "postgres://file-host:5432/auctions"
	}`), 0o644))

	cfg, err := resolveConfig(path, config.Config{Source: "flag-src"})
	require.NoError(t, err)

	assert.Equal(t, "flag-src", cfg.Source, "flag wins over config file")
	assert.Equal(t, 600, cfg.RequestsPerMinute, "file fills unset flags")
	assert.Equal(t, "postgres://file-host:5432/auctions", cfg.DatabaseURL)
	assert.Equal(t, config.DefaultPageLimit, cfg.PageLimit, "defaults fill the rest")
}

func TestResolveConfig_NoFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_RATE_LIMIT_RPM", "")

	cfg, err := resolveConfig("", config.Config{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSource, cfg.Source)
	assert.Equal(t, config.DefaultRequestsPerMinute, cfg.RequestsPerMinute)
}

func TestResolveConfig_InvalidValues(t *testing.T) {
	_, err := resolveConfig("", config.Config{RequestsPerMinute: -1})
	assert.Error(t, err)
}

func TestResolveConfig_MissingFile(t *testing.T) {
	_, err := resolveConfig(filepath.Join(t.TempDir(), "absent.json"), config.Config{})
	assert.Error(t, err)
}
