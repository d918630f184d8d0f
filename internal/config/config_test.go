package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultRegions, cfg.Pipeline.DefaultRegions)
	assert.Equal(t, "dental receptionist", cfg.Pipeline.DefaultKeyword)
	assert.Equal(t, 50, cfg.Pipeline.DefaultTargetTotal)
	assert.Equal(t, 8, cfg.Pipeline.MaxFetchConcurrency)
	assert.Equal(t, 4, cfg.Pipeline.MaxEnrichConcurrency)
	assert.Equal(t, 24, cfg.Pipeline.StalenessHours)
	assert.InDelta(t, 0.2, cfg.Pipeline.MinConfidence, 0.001)
	assert.InDelta(t, 0.85, cfg.Pipeline.NPIMatchThreshold, 0.001)
	assert.InDelta(t, 1.0, cfg.Pipeline.Weights.Sum(), 0.0001)
	assert.Equal(t, "https://api.adzuna.com/v1/api", cfg.Adzuna.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "https://npiregistry.cms.hhs.gov/api", cfg.NPI.BaseURL)
	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.Equal(t, 2, cfg.Fetch.MaxAttempts)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  default_regions: [WA, OR]
  max_enrich_concurrency: 2
rss:
  feeds:
    - https://classifieds.example.com/{region}/jobs.rss?q={keyword}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"WA", "OR"}, cfg.Pipeline.DefaultRegions)
	assert.Equal(t, 2, cfg.Pipeline.MaxEnrichConcurrency)
	assert.Len(t, cfg.RSS.Feeds, 1)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Pipeline.MaxFetchConcurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LEADS_LOG_LEVEL", "warn")
	t.Setenv("LEADS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DefaultRegions:       DefaultRegions,
			DefaultTargetTotal:   50,
			MaxFetchConcurrency:  4,
			MaxEnrichConcurrency: 2,
			RunTimeoutSecs:       30,
			StalenessHours:       24,
			DecayHorizonHours:    168,
			MinConfidence:        0.2,
			Weights: ConfidenceWeights{
				Phone: 0.25, Email: 0.2, DecisionMaker: 0.15, NPI: 0.15, Freshness: 0.25,
			},
		},
		Cache: CacheConfig{Driver: "none"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no regions", func(c *Config) { c.Pipeline.DefaultRegions = nil }, "default_regions"},
		{"zero target", func(c *Config) { c.Pipeline.DefaultTargetTotal = 0 }, "default_target_total"},
		{"zero fetch concurrency", func(c *Config) { c.Pipeline.MaxFetchConcurrency = 0 }, "concurrency"},
		{"zero timeout", func(c *Config) { c.Pipeline.RunTimeoutSecs = 0 }, "run_timeout_secs"},
		{"horizon before window", func(c *Config) { c.Pipeline.DecayHorizonHours = 12 }, "decay_horizon_hours"},
		{"floor out of range", func(c *Config) { c.Pipeline.MinConfidence = 1.5 }, "min_confidence"},
		{"weights off", func(c *Config) { c.Pipeline.Weights.Phone = 0.5 }, "sum to 1.0"},
		{"bad driver", func(c *Config) { c.Cache.Driver = "redis" }, "unknown cache driver"},
		{"sqlite without url", func(c *Config) { c.Cache.Driver = "sqlite" }, "database_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
