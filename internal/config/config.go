// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pmercier/upc-harvester/internal/dataset"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Download  DownloadConfig  `mapstructure:"download"`
	Index     IndexConfig     `mapstructure:"index"`
	Server    ServerConfig    `mapstructure:"server"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// HarvestConfig governs the pagination loop and the browser session.
type HarvestConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	MaxEmptyPages  int    `mapstructure:"max_empty_pages"`
	MaxErrors      int    `mapstructure:"max_errors"`
	WaitSeconds    int    `mapstructure:"wait_seconds"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RowSelector    string `mapstructure:"row_selector"`
	DownloadAfter  bool   `mapstructure:"download_after"`
}

// DatasetConfig selects and parameterizes the dataset backend.
type DatasetConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	DedupPolicy string `mapstructure:"dedup_policy"`
	DSN         string `mapstructure:"dsn"`
	Table       string `mapstructure:"table"`
}

// DownloadConfig governs the document acquisition stage.
type DownloadConfig struct {
	Dir            string `mapstructure:"dir"`
	Concurrency    int    `mapstructure:"concurrency"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryDelayMs   int    `mapstructure:"retry_delay_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	GCSBucket      string `mapstructure:"gcs_bucket"`
}

// IndexConfig locates the search index.
type IndexConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the search HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PublisherConfig holds metadata for run-summary notifications. Publishing
// is disabled while Topic is empty.
type PublisherConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("harvest.base_url", "https://www.unified-patent-court.org/en/decisions-and-orders")
	v.SetDefault("harvest.max_empty_pages", 3)
	v.SetDefault("harvest.max_errors", 3)
	v.SetDefault("harvest.wait_seconds", 10)
	v.SetDefault("harvest.nav_timeout_seconds", 45)
	v.SetDefault("harvest.user_agent", "upc-harvester/1.0")
	v.SetDefault("harvest.download_after", true)
	v.SetDefault("dataset.backend", "file")
	v.SetDefault("dataset.path", "data/decisions.csv")
	v.SetDefault("dataset.dedup_policy", string(dataset.KeepFirst))
	v.SetDefault("dataset.table", "decisions")
	v.SetDefault("download.dir", "data/documents")
	v.SetDefault("download.concurrency", 4)
	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.retry_delay_ms", 2000)
	v.SetDefault("download.timeout_seconds", 30)
	v.SetDefault("index.dir", "data/index.bleve")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Harvest.BaseURL == "" {
		return fmt.Errorf("harvest.base_url is required")
	}
	if c.Harvest.MaxEmptyPages <= 0 {
		return fmt.Errorf("harvest.max_empty_pages must be > 0")
	}
	if c.Harvest.MaxErrors <= 0 {
		return fmt.Errorf("harvest.max_errors must be > 0")
	}
	if c.Harvest.WaitSeconds <= 0 {
		return fmt.Errorf("harvest.wait_seconds must be > 0")
	}
	if !dataset.DedupPolicy(c.Dataset.DedupPolicy).Valid() {
		return fmt.Errorf("dataset.dedup_policy must be %q or %q", dataset.KeepFirst, dataset.KeepLast)
	}
	switch c.Dataset.Backend {
	case "file":
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required for the file backend")
		}
	case "postgres":
		if c.Dataset.DSN == "" {
			return fmt.Errorf("dataset.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown dataset.backend %q", c.Dataset.Backend)
	}
	if c.Download.Concurrency <= 0 {
		return fmt.Errorf("download.concurrency must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Publisher.Topic != "" && c.Publisher.ProjectID == "" {
		return fmt.Errorf("publisher.project_id is required when publisher.topic is set")
	}
	return nil
}

// WaitTimeout returns the listing-table wait as a duration.
func (c HarvestConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

// NavTimeout returns the page navigation bound as a duration.
func (c HarvestConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// RetryDelay returns the fixed inter-attempt pause as a duration.
func (c DownloadConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Timeout returns the per-attempt bound as a duration.
func (c DownloadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
