package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgather/internal/config"
	"github.com/sells-group/leadgather/internal/enrich"
	"github.com/sells-group/leadgather/internal/source"
	"github.com/sells-group/leadgather/internal/store"
)

// loadTestConfig loads defaults from an empty directory and installs the
// result as the command config for the duration of the test.
func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	c, err := config.Load()
	require.NoError(t, err)
	c.Board.DefinitionsPath = filepath.Join(dir, "sources.yaml")

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

func sourceNames(sources []source.Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	return names
}

func TestBuildSources_NoneConfigured(t *testing.T) {
	c := loadTestConfig(t)

	sources, err := buildSources(c)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestBuildSources_All(t *testing.T) {
	c := loadTestConfig(t)
	c.Adzuna.AppID = "app"
	c.Adzuna.AppKey = "key"
	c.RSS.Feeds = []string{"https://{region}.classifieds.example.com/search/jjj?format=rss&query={keyword}"}
	c.Jina.Key = "jina-key"
	require.NoError(t, os.WriteFile(c.Board.DefinitionsPath, []byte(`boards:
  - name: dentaljobs
    url: https://jobs.example.com/search?q={keyword}&state={region}
    item: li.job
    title: h2
    rate: 2
`), 0o600))

	sources, err := buildSources(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"adzuna", "rss", "board:dentaljobs", "websearch"}, sourceNames(sources))
}

func TestBuildSources_AdzunaNeedsBothKeys(t *testing.T) {
	c := loadTestConfig(t)
	c.Adzuna.AppID = "app"

	sources, err := buildSources(c)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestBuildSources_BadDefinitions(t *testing.T) {
	c := loadTestConfig(t)
	require.NoError(t, os.WriteFile(c.Board.DefinitionsPath, []byte("boards:\n  - name: broken\n"), 0o600))

	_, err := buildSources(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load source definitions")
}

func TestBuildResolver_CacheWrapping(t *testing.T) {
	c := loadTestConfig(t)

	r := buildResolver(c, nil)
	assert.IsType(t, &enrich.Chain{}, r)

	cache, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close() //nolint:errcheck

	r = buildResolver(c, cache)
	assert.IsType(t, &enrich.Cached{}, r)
}

func TestBuildResolver_AllKeys(t *testing.T) {
	c := loadTestConfig(t)
	c.Google.Key = "g"
	c.Jina.Key = "j"
	c.Anthropic.Key = "a"
	c.Perplexity.Key = "p"

	assert.NotNil(t, buildResolver(c, nil))
}

func TestRetryConfig(t *testing.T) {
	assert.Equal(t, 2, retryConfig(config.FetchConfig{}).MaxAttempts)
	assert.Equal(t, 3, retryConfig(config.FetchConfig{MaxAttempts: 3}).MaxAttempts)
}

func TestInitPipeline_Defaults(t *testing.T) {
	loadTestConfig(t)

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.Nil(t, env.Cache)
}

func TestInitPipeline_SQLiteCache(t *testing.T) {
	c := loadTestConfig(t)
	c.Cache.Driver = store.DriverSQLite
	c.Cache.DatabaseURL = filepath.Join(t.TempDir(), "cache.db")

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Cache)
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	c := loadTestConfig(t)
	c.Pipeline.Weights.Phone = 0.9

	_, err := initPipeline(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
