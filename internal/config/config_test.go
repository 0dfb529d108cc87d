package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://www.unified-patent-court.org/en/decisions-and-orders", cfg.Harvest.BaseURL)
	require.Equal(t, 3, cfg.Harvest.MaxEmptyPages)
	require.Equal(t, 3, cfg.Harvest.MaxErrors)
	require.Equal(t, 10*time.Second, cfg.Harvest.WaitTimeout())
	require.True(t, cfg.Harvest.DownloadAfter)

	require.Equal(t, "file", cfg.Dataset.Backend)
	require.Equal(t, "data/decisions.csv", cfg.Dataset.Path)
	require.Equal(t, "keep-first", cfg.Dataset.DedupPolicy)

	require.Equal(t, 4, cfg.Download.Concurrency)
	require.Equal(t, 3, cfg.Download.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Download.RetryDelay())
	require.Equal(t, 30*time.Second, cfg.Download.Timeout())

	require.Equal(t, "data/index.bleve", cfg.Index.Dir)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
harvest:
  base_url: https://court.example/en/decisions
  max_empty_pages: 5
dataset:
  backend: file
  path: /var/lib/harvester/decisions.csv
  dedup_policy: keep-last
download:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://court.example/en/decisions", cfg.Harvest.BaseURL)
	require.Equal(t, 5, cfg.Harvest.MaxEmptyPages)
	require.Equal(t, 3, cfg.Harvest.MaxErrors, "unset keys keep defaults")
	require.Equal(t, "keep-last", cfg.Dataset.DedupPolicy)
	require.Equal(t, 8, cfg.Download.Concurrency)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.Harvest.BaseURL = "" }, "base_url"},
		{"zero empty pages", func(c *Config) { c.Harvest.MaxEmptyPages = 0 }, "max_empty_pages"},
		{"zero errors", func(c *Config) { c.Harvest.MaxErrors = 0 }, "max_errors"},
		{"zero wait", func(c *Config) { c.Harvest.WaitSeconds = 0 }, "wait_seconds"},
		{"bad policy", func(c *Config) { c.Dataset.DedupPolicy = "keep-newest" }, "dedup_policy"},
		{"file backend without path", func(c *Config) { c.Dataset.Path = "" }, "dataset.path"},
		{"postgres backend without dsn", func(c *Config) { c.Dataset.Backend = "postgres" }, "dataset.dsn"},
		{"unknown backend", func(c *Config) { c.Dataset.Backend = "sqlite" }, "dataset.backend"},
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }, "concurrency"},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"topic without project", func(c *Config) { c.Publisher.Topic = "runs" }, "project_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestValidate_PostgresBackendWithDSN(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Dataset.Backend = "postgres"
	cfg.Dataset.DSN = "postgres://harvester@localhost:5432/upc"
	require.NoError(t, cfg.Validate())
}
