package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the scraper reads
const EnvPrefix = "CATALOGSCRAPER_"

// Config holds all configuration options for the catalog scraper
type Config struct {
	// Page fetching capability
	Fetcher FetcherConfig `yaml:"fetcher" json:"fetcher"`

	// Category → product link discovery stage
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Product → image download stage
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration for transient fetch failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Checkpoint persistence
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// FetcherConfig selects and tunes the page-fetching engine
type FetcherConfig struct {
	Engine        string        `yaml:"engine" json:"engine"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	Referer       string        `yaml:"referer" json:"referer"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RespectRobots bool          `yaml:"respect_robots" json:"respect_robots"`
}

// DiscoveryConfig holds link discovery settings
type DiscoveryConfig struct {
	CategoriesFile string `yaml:"categories_file" json:"categories_file"`
	OutputFile     string `yaml:"output_file" json:"output_file"`
	MaxConcurrent  int    `yaml:"max_concurrent" json:"max_concurrent"`
	LinkCap        int    `yaml:"link_cap" json:"link_cap"`
	LinkPrefix     string `yaml:"link_prefix" json:"link_prefix"`
	ProductMarker  string `yaml:"product_marker" json:"product_marker"`
}

// DownloadConfig holds image download settings
type DownloadConfig struct {
	LinksFile      string `yaml:"links_file" json:"links_file"`
	OutputDir      string `yaml:"output_dir" json:"output_dir"`
	MaxConcurrent  int    `yaml:"max_concurrent" json:"max_concurrent"`
	ScrapedLogFile string `yaml:"scraped_log_file" json:"scraped_log_file"`
	CheckpointFile string `yaml:"checkpoint_file" json:"checkpoint_file"`
	SkipAttempted  bool   `yaml:"skip_attempted" json:"skip_attempted"`
	Brand          string `yaml:"brand" json:"brand"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Strategy          string `yaml:"strategy" json:"strategy"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int    `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// CheckpointConfig selects where checkpoint state and the scraped log live
type CheckpointConfig struct {
	Backend           string `yaml:"backend" json:"backend"`
	MongoURI          string `yaml:"mongo_uri" json:"mongo_uri"`
	MongoDatabase     string `yaml:"mongo_database" json:"mongo_database"`
	MongoCollection   string `yaml:"mongo_collection" json:"mongo_collection"`
	ScrapedLogBackend string `yaml:"scraped_log_backend" json:"scraped_log_backend"`
	RedisAddr         string `yaml:"redis_addr" json:"redis_addr"`
	RedisKey          string `yaml:"redis_key" json:"redis_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Engine:        "http",
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Referer:       "https://www.zara.com/",
			Timeout:       60 * time.Second,
			RespectRobots: false,
		},
		Discovery: DiscoveryConfig{
			CategoriesFile: "zara_categories.json",
			OutputFile:     "zara_product_links.json",
			MaxConcurrent:  4,
			LinkCap:        200,
			LinkPrefix:     "https://www.zara.com/in/en/",
			ProductMarker:  "p0",
		},
		Download: DownloadConfig{
			LinksFile:      "zara_product_links.json",
			OutputDir:      "downloaded_images",
			MaxConcurrent:  8,
			ScrapedLogFile: "scraped_log.json",
			CheckpointFile: "downloaded_images.json",
			SkipAttempted:  false,
			Brand:          "Zara",
		},
		RateLimit: RateLimitConfig{
			Strategy:          "bucket",
			RequestsPerMinute: 120,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Checkpoint: CheckpointConfig{
			Backend:           "file",
			MongoURI:          "mongodb://localhost:27017",
			MongoDatabase:     "catalogscraper",
			MongoCollection:   "checkpoints",
			ScrapedLogBackend: "file",
			RedisAddr:         "localhost:6379",
			RedisKey:          "catalogscraper:scraped",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

func envInt(name string, target *int) {
	if raw := os.Getenv(EnvPrefix + name); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			*target = val
		}
	}
}

func envString(name string, target *string) {
	if raw := os.Getenv(EnvPrefix + name); raw != "" {
		*target = raw
	}
}

func envBool(name string, target *bool) {
	if raw := os.Getenv(EnvPrefix + name); raw != "" {
		*target = strings.ToLower(raw) == "true"
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	envString("ENGINE", &c.Fetcher.Engine)
	envString("USER_AGENT", &c.Fetcher.UserAgent)
	envBool("RESPECT_ROBOTS", &c.Fetcher.RespectRobots)
	if raw := os.Getenv(EnvPrefix + "TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Fetcher.Timeout = d
	}

	envString("CATEGORIES_FILE", &c.Discovery.CategoriesFile)
	envString("LINKS_FILE", &c.Discovery.OutputFile)
	envString("LINKS_FILE", &c.Download.LinksFile)
	envInt("DISCOVERY_CONCURRENT", &c.Discovery.MaxConcurrent)
	envInt("LINK_CAP", &c.Discovery.LinkCap)

	envString("OUTPUT_DIR", &c.Download.OutputDir)
	envInt("DOWNLOAD_CONCURRENT", &c.Download.MaxConcurrent)
	envString("SCRAPED_LOG", &c.Download.ScrapedLogFile)
	envBool("SKIP_ATTEMPTED", &c.Download.SkipAttempted)

	envInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	envInt("MAX_ATTEMPTS", &c.Retry.MaxAttempts)

	envString("CHECKPOINT_BACKEND", &c.Checkpoint.Backend)
	envString("MONGO_URI", &c.Checkpoint.MongoURI)
	envString("SCRAPED_LOG_BACKEND", &c.Checkpoint.ScrapedLogBackend)
	envString("REDIS_ADDR", &c.Checkpoint.RedisAddr)

	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FILE", &c.Logging.File)

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"catalogscraper.yaml",
		".catalogscraper.yaml",
		".catalogscraper.yml",
		filepath.Join(home, ".config", "catalogscraper", "config.yaml"),
		filepath.Join(home, ".catalogscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Fetcher.Engine) {
	case "http", "colly":
	default:
		errs = append(errs, fmt.Errorf("unknown fetcher engine %q", c.Fetcher.Engine))
	}
	if c.Fetcher.Timeout <= 0 {
		errs = append(errs, errors.New("fetcher timeout must be positive"))
	}

	if c.Discovery.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("discovery max_concurrent must be positive"))
	}
	if c.Discovery.LinkCap <= 0 {
		errs = append(errs, errors.New("discovery link_cap must be positive"))
	}
	if c.Discovery.LinkPrefix == "" {
		errs = append(errs, errors.New("discovery link_prefix is required"))
	}

	if c.Download.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("download max_concurrent must be positive"))
	}
	if c.Download.OutputDir == "" {
		errs = append(errs, errors.New("download output_dir is required"))
	}

	switch strings.ToLower(c.RateLimit.Strategy) {
	case "bucket", "window", "smooth", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit strategy %q", c.RateLimit.Strategy))
	}
	if c.RateLimit.Strategy != "none" && c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	switch strings.ToLower(c.Checkpoint.Backend) {
	case "file", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}
	switch strings.ToLower(c.Checkpoint.ScrapedLogBackend) {
	case "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown scraped log backend %q", c.Checkpoint.ScrapedLogBackend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["categories"].(string); ok && v != "" {
		c.Discovery.CategoriesFile = v
	}
	if v, ok := flags["links"].(string); ok && v != "" {
		c.Discovery.OutputFile = v
		c.Download.LinksFile = v
	}
	if v, ok := flags["discovery-concurrent"].(int); ok && v > 0 {
		c.Discovery.MaxConcurrent = v
	}
	if v, ok := flags["link-cap"].(int); ok && v > 0 {
		c.Discovery.LinkCap = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Download.OutputDir = v
	}
	if v, ok := flags["download-concurrent"].(int); ok && v > 0 {
		c.Download.MaxConcurrent = v
	}
	if v, ok := flags["scraped-log"].(string); ok && v != "" {
		c.Download.ScrapedLogFile = v
	}
	if v, ok := flags["skip-attempted"].(bool); ok {
		c.Download.SkipAttempted = v
	}
	if v, ok := flags["engine"].(string); ok && v != "" {
		c.Fetcher.Engine = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v >= 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".catalogscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
