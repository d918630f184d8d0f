package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/config"
	"github.com/sells-group/leadgather/internal/enrich"
	"github.com/sells-group/leadgather/internal/fetcher"
	"github.com/sells-group/leadgather/internal/pipeline"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/internal/source"
	"github.com/sells-group/leadgather/internal/store"
	"github.com/sells-group/leadgather/pkg/adzuna"
	"github.com/sells-group/leadgather/pkg/anthropic"
	"github.com/sells-group/leadgather/pkg/google"
	"github.com/sells-group/leadgather/pkg/jina"
	"github.com/sells-group/leadgather/pkg/npi"
	"github.com/sells-group/leadgather/pkg/perplexity"
)

// pipelineEnv holds the pipeline and the resources it owns.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Cache    store.Cache
}

// Close releases the cache connection, if any.
func (e *pipelineEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// initPipeline wires sources, enrichment steps and the optional cache from
// the loaded config.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	cache, err := store.Open(ctx, cfg.Cache.Driver, cfg.Cache.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}

	sources, err := buildSources(cfg)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	resolver := buildResolver(cfg, cache)

	opts := pipeline.OptionsFromConfig(cfg.Pipeline)
	opts.Retry = retryConfig(cfg.Fetch)

	zap.L().Info("pipeline initialized",
		zap.Int("sources", len(sources)),
		zap.String("cache", cfg.Cache.Driver),
	)

	return &pipelineEnv{
		Pipeline: pipeline.New(sources, resolver, opts),
		Cache:    cache,
	}, nil
}

// retryConfig applies fetch.max_attempts to the default retry policy.
func retryConfig(fc config.FetchConfig) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if fc.MaxAttempts > 0 {
		rc.MaxAttempts = fc.MaxAttempts
	}
	return rc
}

// buildSources returns every source that has the credentials or
// definitions it needs.
func buildSources(c *config.Config) ([]source.Source, error) {
	defs, err := source.LoadDefinitions(c.Board.DefinitionsPath)
	if err != nil {
		return nil, eris.Wrap(err, "load source definitions")
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: c.Fetch.UserAgent,
		Timeout:   time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		HostRates: defs.HostRates(),
	})

	var sources []source.Source

	if c.Adzuna.AppID != "" && c.Adzuna.AppKey != "" {
		client := adzuna.NewClient(c.Adzuna.AppID, c.Adzuna.AppKey,
			adzuna.WithBaseURL(c.Adzuna.BaseURL),
			adzuna.WithCountry(c.Adzuna.Country),
		)
		maxDaysOld := c.Pipeline.DecayHorizonHours / 24
		sources = append(sources, source.NewAdzuna(client, c.Adzuna.Country, maxDaysOld))
	}

	if len(c.RSS.Feeds) > 0 {
		sources = append(sources, source.NewRSS(f, c.RSS.Feeds))
	}

	for _, def := range defs.Boards {
		sources = append(sources, source.NewBoard(def, f))
	}

	if c.Jina.Key != "" {
		sources = append(sources, source.NewWebSearch(newJina(c.Jina), c.Jina.SiteFilter))
	}

	if len(sources) == 0 {
		zap.L().Warn("no job sources configured; every run will fail")
	}
	return sources, nil
}

// buildResolver assembles the enrichment chain. NPI lookups need no key and
// are always present; the other steps are added when their key is set.
func buildResolver(c *config.Config, cache store.Cache) enrich.Resolver {
	opt := enrich.WithRetry(retryConfig(c.Fetch))

	var steps []enrich.Step
	if c.Google.Key != "" {
		gc := google.NewClient(c.Google.Key, google.WithRateLimit(c.Google.RateLimit))
		steps = append(steps, enrich.NewPlaces(gc, opt))
	}

	nc := npi.NewClient(npi.WithBaseURL(c.NPI.BaseURL), npi.WithRateLimit(c.NPI.RateLimit))
	steps = append(steps, enrich.NewNPI(nc, c.Pipeline.NPIMatchThreshold, c.NPI.Limit, opt))

	if c.Jina.Key != "" {
		steps = append(steps, enrich.NewWebsite(newJina(c.Jina), opt))
	}

	var (
		claude anthropic.Client
		pplx   perplexity.Client
	)
	if c.Anthropic.Key != "" {
		claude = anthropic.NewClient(c.Anthropic.Key)
	}
	if c.Perplexity.Key != "" {
		pplx = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
	}
	if claude != nil || pplx != nil {
		steps = append(steps, enrich.NewDecisionMaker(claude, c.Anthropic.HaikuModel, pplx, opt))
	}

	ttl := time.Duration(c.Cache.TTLHours) * time.Hour
	return enrich.NewCached(enrich.NewChain(steps...), cache, ttl)
}

func newJina(jc config.JinaConfig) jina.Client {
	return jina.NewClient(jc.Key,
		jina.WithBaseURL(jc.BaseURL),
		jina.WithSearchBaseURL(jc.SearchBaseURL),
	)
}
