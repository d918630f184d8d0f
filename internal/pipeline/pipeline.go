// Package pipeline gathers dental reception job leads: it plans per-region
// tasks, fans them out to every source, merges duplicate postings, enriches
// and scores the survivors and returns them in a deterministic order.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgather/internal/config"
	"github.com/sells-group/leadgather/internal/enrich"
	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/normalize"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/internal/source"
)

// Options holds the run policy of a Pipeline.
type Options struct {
	Defaults             PlannerDefaults
	MaxFetchConcurrency  int
	MaxEnrichConcurrency int
	// RunTimeout bounds a whole GatherLeads call. Zero means no bound
	// beyond the caller's context.
	RunTimeout    time.Duration
	TaskTimeout   time.Duration
	EnrichTimeout time.Duration
	MinConfidence float64
	Weights       config.ConfidenceWeights
	Freshness     FreshnessPolicy
	// SourceFailureTrip is the number of consecutive failed calls after
	// which a source is skipped for the rest of the run.
	SourceFailureTrip int
	Retry             resilience.RetryConfig
	// Now is the run clock. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig builds Options from the pipeline section of the config.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	secs := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return Options{
		Defaults: PlannerDefaults{
			Regions:     cfg.DefaultRegions,
			TargetTotal: cfg.DefaultTargetTotal,
			Keyword:     cfg.DefaultKeyword,
		},
		MaxFetchConcurrency:  cfg.MaxFetchConcurrency,
		MaxEnrichConcurrency: cfg.MaxEnrichConcurrency,
		RunTimeout:           secs(cfg.RunTimeoutSecs),
		TaskTimeout:          secs(cfg.TaskTimeoutSecs),
		EnrichTimeout:        secs(cfg.EnrichTimeoutSecs),
		MinConfidence:        cfg.MinConfidence,
		Weights:              cfg.Weights,
		Freshness: FreshnessPolicy{
			Staleness: time.Duration(cfg.StalenessHours) * time.Hour,
			Horizon:   time.Duration(cfg.DecayHorizonHours) * time.Hour,
		},
		SourceFailureTrip: cfg.SourceFailureTrip,
		Retry:             resilience.DefaultRetryConfig(),
	}
}

// DefaultOptions returns Options equivalent to the config defaults.
func DefaultOptions() Options {
	return Options{
		Defaults: PlannerDefaults{
			Regions:     config.DefaultRegions,
			TargetTotal: 50,
			Keyword:     "dental receptionist",
		},
		MaxFetchConcurrency:  8,
		MaxEnrichConcurrency: 4,
		RunTimeout:           45 * time.Second,
		TaskTimeout:          15 * time.Second,
		EnrichTimeout:        20 * time.Second,
		MinConfidence:        0.2,
		Weights:              DefaultWeights(),
		Freshness:            DefaultFreshnessPolicy(),
		SourceFailureTrip:    3,
		Retry:                resilience.DefaultRetryConfig(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxFetchConcurrency <= 0 {
		o.MaxFetchConcurrency = d.MaxFetchConcurrency
	}
	if o.MaxEnrichConcurrency <= 0 {
		o.MaxEnrichConcurrency = d.MaxEnrichConcurrency
	}
	if o.Freshness.Staleness <= 0 {
		o.Freshness = d.Freshness
	}
	if o.SourceFailureTrip <= 0 {
		o.SourceFailureTrip = d.SourceFailureTrip
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Weights = validWeights(o.Weights)
	return o
}

// Pipeline runs lead gathering against a fixed set of sources and an
// enrichment resolver.
type Pipeline struct {
	sources  []source.Source
	resolver enrich.Resolver
	opts     Options
}

// New creates a Pipeline. A nil resolver skips enrichment.
func New(sources []source.Source, resolver enrich.Resolver, opts Options) *Pipeline {
	return &Pipeline{sources: sources, resolver: resolver, opts: opts.withDefaults()}
}

// fetchResult is one (task, source) slot.
type fetchResult struct {
	postings []model.RawPosting
	err      error
}

// enrichResult is one candidate slot.
type enrichResult struct {
	fields model.ResolvedFields
	failed bool
}

// GatherLeads plans, fetches, deduplicates, enriches, scores and orders
// leads for opts. Fewer leads than requested is not an error. It fails with
// ErrInvalidOptions for unusable options and ErrTotalFailure when no source
// call succeeded.
func (p *Pipeline) GatherLeads(ctx context.Context, opts model.LeadQueryOptions) ([]model.Lead, error) {
	log := zap.L().With(zap.String("run_id", uuid.NewString()))

	tasks, target, err := Plan(opts, p.opts.Defaults)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: planned run",
		zap.Int("tasks", len(tasks)),
		zap.Int("sources", len(p.sources)),
		zap.Int("target", target),
		zap.String("keyword", tasks[0].Keyword),
		zap.Int("quota", tasks[0].Quota),
	)

	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}
	start := p.opts.Now()

	fetched := p.fetchAll(ctx, log, tasks)
	postings, succeeded := collect(log, tasks, p.sources, fetched)
	if succeeded == 0 {
		log.Error("pipeline: every source call failed", zap.Int("calls", len(fetched)))
		return nil, eris.Wrapf(ErrTotalFailure, "%d calls", len(fetched))
	}

	candidates := Dedup(postings)
	enriched := p.enrichAll(ctx, log, candidates)

	now := p.opts.Now()
	leads := make([]model.Lead, 0, len(candidates))
	var dropped int
	for i, c := range candidates {
		lead := buildLead(c, enriched[i], now, p.opts)
		// Unenriched leads are kept whatever their score; they carry the
		// failure note instead.
		if !enriched[i].failed && lead.Enrichment.Confidence < p.opts.MinConfidence {
			dropped++
			continue
		}
		leads = append(leads, lead)
	}

	SortLeads(leads)
	if len(leads) > target {
		leads = leads[:target]
	}

	log.Info("pipeline: run complete",
		zap.Int("postings", len(postings)),
		zap.Int("candidates", len(candidates)),
		zap.Int("below_min_confidence", dropped),
		zap.Int("leads", len(leads)),
		zap.Int("calls_ok", succeeded),
		zap.Int("calls", len(fetched)),
		zap.Duration("elapsed", p.opts.Now().Sub(start)),
	)
	return leads, nil
}

// fetchAll runs every (task, source) pair under the fetch concurrency limit.
// Slot i*len(sources)+j holds task i, source j.
func (p *Pipeline) fetchAll(ctx context.Context, log *zap.Logger, tasks []model.Task) []fetchResult {
	results := make([]fetchResult, len(tasks)*len(p.sources))

	breakers := resilience.NewBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: p.opts.SourceFailureTrip,
		ResetTimeout:     p.breakerReset(),
	}, func(name string, from, to resilience.CircuitState) {
		log.Warn("pipeline: source circuit changed",
			zap.String("source", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})

	var g errgroup.Group
	g.SetLimit(p.opts.MaxFetchConcurrency)
	for i, task := range tasks {
		for j, src := range p.sources {
			idx := i*len(p.sources) + j
			g.Go(func() error {
				postings, err := p.fetch(ctx, breakers.Get(src.Name()), src, task)
				results[idx] = fetchResult{postings: postings, err: err}
				return nil
			})
		}
	}
	_ = g.Wait()

	if open := breakers.Open(); len(open) > 0 {
		log.Warn("pipeline: sources skipped after repeated failures", zap.Strings("sources", open))
	}
	return results
}

func (p *Pipeline) breakerReset() time.Duration {
	if p.opts.RunTimeout > 0 {
		return p.opts.RunTimeout
	}
	return time.Hour
}

func (p *Pipeline) fetch(ctx context.Context, cb *resilience.CircuitBreaker, src source.Source, task model.Task) ([]model.RawPosting, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "%s %s: %v", src.Name(), task.Region, err)
	}
	if p.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.TaskTimeout)
		defer cancel()
	}

	retry := p.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(src.Name(), "search")
	}
	postings, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) ([]model.RawPosting, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.RawPosting, error) {
			return src.Search(ctx, task)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(ErrSourceUnavailable, "%s %s: %v", src.Name(), task.Region, err)
	}
	return postings, nil
}

// collect flattens fetch slots in task-then-source order, tagging each
// posting with its source and dropping postings outside the task's region.
func collect(log *zap.Logger, tasks []model.Task, sources []source.Source, results []fetchResult) ([]model.RawPosting, int) {
	var (
		out       []model.RawPosting
		succeeded int
	)
	for idx, r := range results {
		task := tasks[idx/len(sources)]
		src := sources[idx%len(sources)]
		if r.err != nil {
			log.Warn("pipeline: source call failed",
				zap.String("source", src.Name()),
				zap.String("region", task.Region),
				zap.Error(r.err),
			)
			continue
		}
		succeeded++

		var kept int
		for _, p := range r.postings {
			if p.Source == "" {
				p.Source = src.Name()
			}
			state := task.Region
			if p.State != "" {
				code, ok := source.StateCode(p.State)
				if !ok || code != task.Region {
					continue
				}
				state = code
			}
			p.State = state
			out = append(out, p)
			kept++
		}
		log.Debug("pipeline: source call done",
			zap.String("source", src.Name()),
			zap.String("region", task.Region),
			zap.Int("postings", len(r.postings)),
			zap.Int("kept", kept),
		)
	}
	return out, succeeded
}

// enrichAll resolves every candidate under the enrichment concurrency limit.
func (p *Pipeline) enrichAll(ctx context.Context, log *zap.Logger, candidates []model.Candidate) []enrichResult {
	results := make([]enrichResult, len(candidates))
	if p.resolver == nil {
		for i, c := range candidates {
			f := candidateFields(c)
			f.Phone, f.Email = c.Phone, c.Email
			results[i] = enrichResult{fields: f}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(p.opts.MaxEnrichConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = p.enrich(ctx, log, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) enrich(ctx context.Context, log *zap.Logger, c model.Candidate) enrichResult {
	failed := func(err error) enrichResult {
		log.Warn("pipeline: enrichment failed",
			zap.String("key", c.Key),
			zap.Error(eris.Wrap(ErrEnrichmentUnavailable, err.Error())),
		)
		return enrichResult{fields: candidateFields(c), failed: true}
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	if p.opts.EnrichTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.EnrichTimeout)
		defer cancel()
	}

	fields, err := p.resolver.Resolve(ctx, c)
	if err != nil {
		return failed(err)
	}
	return enrichResult{fields: fields}
}

// candidateFields is the location data a candidate carries itself. Contact
// fields are left out so a failed enrichment never reports a contact.
func candidateFields(c model.Candidate) model.ResolvedFields {
	return model.ResolvedFields{
		PracticeWebsite: c.PracticeWebsite,
		AddressLine1:    c.AddressLine1,
		PostalCode:      c.PostalCode,
	}
}

func buildLead(c model.Candidate, e enrichResult, now time.Time, opts Options) model.Lead {
	f := e.fields
	phone := normalize.Phone(f.Phone)
	email := normalize.Email(f.Email)
	postal := normalize.PostalCode(f.PostalCode)
	if postal == "" {
		postal = normalize.PostalCode(c.PostalCode)
	}

	fresh := opts.Freshness.Freshness(c.PostedAt, now)
	assessment := Score(Signals{
		HasPhone:          phone != "",
		HasEmail:          email != "",
		HasDecisionMaker:  f.DecisionMaker != "",
		HasNPI:            f.NPINumber != "",
		NPIBelowThreshold: f.NPIBelowThreshold,
		Freshness:         fresh,
		PostedKnown:       c.PostedAt != nil,
		EnrichmentFailed:  e.failed,
		Conflicts:         reportedConflicts(c.Conflicts),
	}, opts.Weights, opts.Freshness)

	var posted *time.Time
	if c.PostedAt != nil {
		t := c.PostedAt.UTC()
		posted = &t
	}
	sources := append([]string{}, c.Sources...)

	return model.Lead{
		ID:              LeadID(c.Key),
		PracticeName:    model.StringPtr(c.PracticeName),
		Phone:           model.StringPtr(phone),
		Email:           model.StringPtr(email),
		JobTitle:        model.StringPtr(c.JobTitle),
		JobURL:          model.StringPtr(c.JobURL),
		JobPostedAt:     posted,
		PracticeWebsite: model.StringPtr(f.PracticeWebsite),
		DecisionMaker:   model.StringPtr(f.DecisionMaker),
		Location: model.Location{
			City:         model.StringPtr(c.City),
			State:        model.StringPtr(c.State),
			PostalCode:   model.StringPtr(postal),
			AddressLine1: model.StringPtr(firstNonEmpty(f.AddressLine1, c.AddressLine1)),
		},
		Salary: model.Salary{
			Min:      c.SalaryMin,
			Max:      c.SalaryMax,
			Currency: model.StringPtr(c.SalaryCurrency),
		},
		Enrichment: model.Enrichment{
			NPINumber:    model.StringPtr(f.NPINumber),
			Confidence:   assessment.Confidence,
			QualityNotes: assessment.Notes,
		},
		Sources: sources,
	}
}

// noteworthyConflicts are the merged fields whose disagreement makes a lead
// ambiguous. Job URLs, titles, names and dates routinely differ between
// sources listing the same opening.
var noteworthyConflicts = map[string]bool{
	"city":            true,
	"state":           true,
	"postalCode":      true,
	"addressLine1":    true,
	"practiceWebsite": true,
	"phone":           true,
	"email":           true,
	"salary.currency": true,
	"salary.min":      true,
	"salary.max":      true,
}

func reportedConflicts(fields []string) []string {
	var out []string
	for _, f := range fields {
		if noteworthyConflicts[f] {
			out = append(out, f)
		}
	}
	return out
}

// SortLeads orders leads by posting time (newest first, unknown last), then
// confidence descending, then id.
func SortLeads(leads []model.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		at, aok := a.Posted()
		bt, bok := b.Posted()
		if aok != bok {
			return aok
		}
		if aok && !at.Equal(bt) {
			return at.After(bt)
		}
		if a.Enrichment.Confidence != b.Enrichment.Confidence {
			return a.Enrichment.Confidence > b.Enrichment.Confidence
		}
		return a.ID < b.ID
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
