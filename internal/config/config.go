package config

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Adzuna     AdzunaConfig     `yaml:"adzuna" mapstructure:"adzuna"`
	RSS        RSSConfig        `yaml:"rss" mapstructure:"rss"`
	Board      BoardConfig      `yaml:"board" mapstructure:"board"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	NPI        NPIConfig        `yaml:"npi" mapstructure:"npi"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PipelineConfig holds the planner defaults and the scoring policy.
type PipelineConfig struct {
	DefaultRegions       []string          `yaml:"default_regions" mapstructure:"default_regions"`
	DefaultKeyword       string            `yaml:"default_keyword" mapstructure:"default_keyword"`
	DefaultTargetTotal   int               `yaml:"default_target_total" mapstructure:"default_target_total"`
	MaxFetchConcurrency  int               `yaml:"max_fetch_concurrency" mapstructure:"max_fetch_concurrency"`
	MaxEnrichConcurrency int               `yaml:"max_enrich_concurrency" mapstructure:"max_enrich_concurrency"`
	RunTimeoutSecs       int               `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	TaskTimeoutSecs      int               `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
	EnrichTimeoutSecs    int               `yaml:"enrich_timeout_secs" mapstructure:"enrich_timeout_secs"`
	StalenessHours       int               `yaml:"staleness_hours" mapstructure:"staleness_hours"`
	DecayHorizonHours    int               `yaml:"decay_horizon_hours" mapstructure:"decay_horizon_hours"`
	MinConfidence        float64           `yaml:"min_confidence" mapstructure:"min_confidence"`
	NPIMatchThreshold    float64           `yaml:"npi_match_threshold" mapstructure:"npi_match_threshold"`
	SourceFailureTrip    int               `yaml:"source_failure_trip" mapstructure:"source_failure_trip"`
	Weights              ConfidenceWeights `yaml:"weights" mapstructure:"weights"`
}

// ConfidenceWeights are the per-signal weights of the confidence score.
// They must sum to 1.0.
type ConfidenceWeights struct {
	Phone         float64 `yaml:"phone" mapstructure:"phone"`
	Email         float64 `yaml:"email" mapstructure:"email"`
	DecisionMaker float64 `yaml:"decision_maker" mapstructure:"decision_maker"`
	NPI           float64 `yaml:"npi" mapstructure:"npi"`
	Freshness     float64 `yaml:"freshness" mapstructure:"freshness"`
}

// Sum returns the total of all weights.
func (w ConfidenceWeights) Sum() float64 {
	return w.Phone + w.Email + w.DecisionMaker + w.NPI + w.Freshness
}

// AdzunaConfig holds Adzuna job search API credentials.
type AdzunaConfig struct {
	AppID   string `yaml:"app_id" mapstructure:"app_id"`
	AppKey  string `yaml:"app_key" mapstructure:"app_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Country string `yaml:"country" mapstructure:"country"`
}

// RSSConfig lists classifieds feed URL templates. Templates may contain
// {region} and {keyword} placeholders.
type RSSConfig struct {
	Feeds []string `yaml:"feeds" mapstructure:"feeds"`
}

// BoardConfig points at the YAML file describing scraped HTML job boards.
type BoardConfig struct {
	DefinitionsPath string `yaml:"definitions_path" mapstructure:"definitions_path"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	SiteFilter    string `yaml:"site_filter" mapstructure:"site_filter"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NPIConfig holds NPPES NPI registry settings.
type NPIConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Limit     int     `yaml:"limit" mapstructure:"limit"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	HaikuModel string `yaml:"haiku_model" mapstructure:"haiku_model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FetchConfig configures the shared HTTP downloader used by feed and board sources.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// CacheConfig configures the optional enrichment lookup cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultRegions are the ten most populous US states.
var DefaultRegions = []string{"CA", "TX", "FL", "NY", "PA", "IL", "OH", "GA", "NC", "MI"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("pipeline.default_regions", DefaultRegions)
	v.SetDefault("pipeline.default_keyword", "dental receptionist")
	v.SetDefault("pipeline.default_target_total", 50)
	v.SetDefault("pipeline.max_fetch_concurrency", 8)
	v.SetDefault("pipeline.max_enrich_concurrency", 4)
	v.SetDefault("pipeline.run_timeout_secs", 45)
	v.SetDefault("pipeline.task_timeout_secs", 15)
	v.SetDefault("pipeline.enrich_timeout_secs", 20)
	v.SetDefault("pipeline.staleness_hours", 24)
	v.SetDefault("pipeline.decay_horizon_hours", 168)
	v.SetDefault("pipeline.min_confidence", 0.2)
	v.SetDefault("pipeline.npi_match_threshold", 0.85)
	v.SetDefault("pipeline.source_failure_trip", 3)
	v.SetDefault("pipeline.weights.phone", 0.25)
	v.SetDefault("pipeline.weights.email", 0.20)
	v.SetDefault("pipeline.weights.decision_maker", 0.15)
	v.SetDefault("pipeline.weights.npi", 0.15)
	v.SetDefault("pipeline.weights.freshness", 0.25)
	v.SetDefault("adzuna.base_url", "https://api.adzuna.com/v1/api")
	v.SetDefault("adzuna.country", "us")
	v.SetDefault("board.definitions_path", "sources.yaml")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.site_filter", "indeed.com")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("npi.base_url", "https://npiregistry.cms.hhs.gov/api")
	v.SetDefault("npi.rate_limit", 5)
	v.SetDefault("npi.limit", 10)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("fetch.user_agent", "leadgather/1.0")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.max_attempts", 2)
	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.ttl_hours", 72)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the pipeline policy for values that would make runs
// meaningless or unbounded.
func (c *Config) Validate() error {
	p := c.Pipeline
	if len(p.DefaultRegions) == 0 {
		return eris.New("config: pipeline.default_regions must not be empty")
	}
	if p.DefaultTargetTotal <= 0 {
		return eris.New("config: pipeline.default_target_total must be positive")
	}
	if p.MaxFetchConcurrency <= 0 || p.MaxEnrichConcurrency <= 0 {
		return eris.New("config: pipeline concurrency limits must be positive")
	}
	if p.RunTimeoutSecs <= 0 {
		return eris.New("config: pipeline.run_timeout_secs must be positive")
	}
	if p.StalenessHours <= 0 || p.DecayHorizonHours < p.StalenessHours {
		return eris.New("config: pipeline.decay_horizon_hours must be >= staleness_hours > 0")
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return eris.New("config: pipeline.min_confidence must be within [0,1]")
	}
	if math.Abs(p.Weights.Sum()-1.0) > 1e-6 {
		return eris.Errorf("config: pipeline.weights must sum to 1.0, got %.3f", p.Weights.Sum())
	}
	switch c.Cache.Driver {
	case "none", "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
	if c.Cache.Driver != "none" && c.Cache.DatabaseURL == "" {
		return eris.New("config: cache.database_url is required when the cache is enabled")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
