package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thomaskoefod/newsgrid/pkg/models"
)

const (
	DefaultInferenceEndpoint = "https://router.huggingface.co/hf-inference/models/VietAI/vit5-base-vietnews-summarization"
	DefaultServerAddr        = ":8080"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Feeds     []FeedConfig    `yaml:"feeds"`
	Inference InferenceConfig `yaml:"inference"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`

	// Revision is a build marker shown in diagnostics only.
	Revision string `yaml:"-"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type FeedConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type InferenceConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Timeout    string `yaml:"timeout"`
	RetryDelay string `yaml:"retry_delay"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type IngestConfig struct {
	// Schedule is an optional cron expression; empty means on-demand only.
	Schedule     string `yaml:"schedule"`
	FetchTimeout string `yaml:"fetch_timeout"`
	UserAgent    string `yaml:"user_agent"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultFeeds are the feeds ingested when the config file lists none.
func DefaultFeeds() []FeedConfig {
	return []FeedConfig{
		{URL: "https://vnexpress.net/rss/tin-moi-nhat.rss", Name: "VnExpress"},
		{URL: "https://vietnamnet.vn/rss/tin-moi-nhat.rss", Name: "VietnamNet"},
		{URL: "https://dantri.com.vn/rss/tin-moi-nhat.rss", Name: "DanTri"},
	}
}

// GetTimeout parses the per-attempt inference timeout
func (i *InferenceConfig) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(i.Timeout)
}

// GetRetryDelay parses the wait before retrying a model-loading response
func (i *InferenceConfig) GetRetryDelay() (time.Duration, error) {
	return time.ParseDuration(i.RetryDelay)
}

// GetFetchTimeout parses the feed fetch timeout
func (i *IngestConfig) GetFetchTimeout() (time.Duration, error) {
	return time.ParseDuration(i.FetchTimeout)
}

// Sources converts the configured feeds into the list handed to the ingestion pipeline.
func (c *Config) Sources() []models.FeedSource {
	sources := make([]models.FeedSource, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		sources = append(sources, models.FeedSource{URL: f.URL, Source: f.Name})
	}
	return sources
}

// Load reads configuration from file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overlays environment variables on top of the file values
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("HF_API_KEY")); v != "" {
		c.Inference.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSGRID_DB_PATH")); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("NEWSGRID_ADDR")); v != "" {
		c.Server.Addr = v
	}
	c.Revision = strings.TrimSpace(os.Getenv("BUILD_REVISION"))
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath()
	}
	c.Database.Path = expandPath(c.Database.Path)

	if len(c.Feeds) == 0 {
		c.Feeds = DefaultFeeds()
	}
	if c.Inference.Endpoint == "" {
		c.Inference.Endpoint = DefaultInferenceEndpoint
	}
	if c.Inference.Timeout == "" {
		c.Inference.Timeout = "20s"
	}
	if c.Inference.RetryDelay == "" {
		c.Inference.RetryDelay = "15s"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Ingest.FetchTimeout == "" {
		c.Ingest.FetchTimeout = "30s"
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = "newsgrid/1.0"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Revision == "" {
		c.Revision = "dev"
	}
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if _, err := c.Inference.GetTimeout(); err != nil {
		return fmt.Errorf("invalid inference.timeout %q: %w", c.Inference.Timeout, err)
	}
	if _, err := c.Inference.GetRetryDelay(); err != nil {
		return fmt.Errorf("invalid inference.retry_delay %q: %w", c.Inference.RetryDelay, err)
	}
	if _, err := c.Ingest.GetFetchTimeout(); err != nil {
		return fmt.Errorf("invalid ingest.fetch_timeout %q: %w", c.Ingest.FetchTimeout, err)
	}
	if len(c.Feeds) == 0 {
		return errors.New("at least one feed is required")
	}
	for i, f := range c.Feeds {
		if f.URL == "" || f.Name == "" {
			return fmt.Errorf("feed %d: url and name are required", i)
		}
	}
	return nil
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "newsgrid", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite file location
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newsgrid.db"
	}
	return filepath.Join(home, ".local", "share", "newsgrid", "newsgrid.db")
}
