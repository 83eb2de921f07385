package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Discovery.MaxConcurrent != 4 {
		t.Errorf("Expected default discovery concurrency to be 4, got %d", config.Discovery.MaxConcurrent)
	}

	if config.Download.MaxConcurrent != 8 {
		t.Errorf("Expected default download concurrency to be 8, got %d", config.Download.MaxConcurrent)
	}

	if config.Discovery.LinkCap != 200 {
		t.Errorf("Expected default link cap to be 200, got %d", config.Discovery.LinkCap)
	}

	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CATALOGSCRAPER_DISCOVERY_CONCURRENT", "2")
	t.Setenv("CATALOGSCRAPER_DOWNLOAD_CONCURRENT", "16")
	t.Setenv("CATALOGSCRAPER_OUTPUT_DIR", "/tmp/assets")
	t.Setenv("CATALOGSCRAPER_LINKS_FILE", "links.json")
	t.Setenv("CATALOGSCRAPER_TIMEOUT", "15s")
	t.Setenv("CATALOGSCRAPER_SKIP_ATTEMPTED", "true")
	t.Setenv("CATALOGSCRAPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, 2, config.Discovery.MaxConcurrent)
	assert.Equal(t, 16, config.Download.MaxConcurrent)
	assert.Equal(t, "/tmp/assets", config.Download.OutputDir)
	assert.Equal(t, "links.json", config.Discovery.OutputFile)
	assert.Equal(t, "links.json", config.Download.LinksFile)
	assert.Equal(t, 15*time.Second, config.Fetcher.Timeout)
	assert.True(t, config.Download.SkipAttempted)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvInvalidTimeout(t *testing.T) {
	t.Setenv("CATALOGSCRAPER_TIMEOUT", "soon")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"colly engine", func(c *Config) { c.Fetcher.Engine = "colly" }, false},
		{"unknown engine", func(c *Config) { c.Fetcher.Engine = "chromium" }, true},
		{"zero discovery concurrency", func(c *Config) { c.Discovery.MaxConcurrent = 0 }, true},
		{"zero download concurrency", func(c *Config) { c.Download.MaxConcurrent = 0 }, true},
		{"zero link cap", func(c *Config) { c.Discovery.LinkCap = 0 }, true},
		{"missing output dir", func(c *Config) { c.Download.OutputDir = "" }, true},
		{"unknown rate strategy", func(c *Config) { c.RateLimit.Strategy = "leaky" }, true},
		{"sliding window", func(c *Config) { c.RateLimit.Strategy = "window" }, false},
		{"no rate limit", func(c *Config) { c.RateLimit.Strategy = "none"; c.RateLimit.RequestsPerMinute = 0 }, false},
		{"mongo backend", func(c *Config) { c.Checkpoint.Backend = "mongo" }, false},
		{"unknown backend", func(c *Config) { c.Checkpoint.Backend = "sqlite" }, true},
		{"redis scraped log", func(c *Config) { c.Checkpoint.ScrapedLogBackend = "redis" }, false},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogscraper.yaml")
	content := `
fetcher:
  engine: colly
  timeout: 20s
discovery:
  max_concurrent: 6
  link_cap: 50
download:
  output_dir: ./assets
checkpoint:
  backend: mongo
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "colly", config.Fetcher.Engine)
	assert.Equal(t, 20*time.Second, config.Fetcher.Timeout)
	assert.Equal(t, 6, config.Discovery.MaxConcurrent)
	assert.Equal(t, 50, config.Discovery.LinkCap)
	assert.Equal(t, "./assets", config.Download.OutputDir)
	assert.Equal(t, "mongo", config.Checkpoint.Backend)
	// untouched keys keep their defaults
	assert.Equal(t, 8, config.Download.MaxConcurrent)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discovery:\n  max_concurrent: 3\n  link_cap: 10\n"), 0644))

	t.Setenv("CATALOGSCRAPER_DISCOVERY_CONCURRENT", "5")

	cfg, err := Load(path, map[string]interface{}{"link-cap": 25})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Discovery.MaxConcurrent)
	assert.Equal(t, 25, cfg.Discovery.LinkCap)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: chatty\n"), 0644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Download.Brand = "Massimo"
	require.NoError(t, config.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "Massimo", loaded.Download.Brand)
}
