// Package enrich resolves contact and identity fields for deduplicated job
// postings from external directories.
package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/resilience"
)

// Resolver fills contact and identity fields for a candidate.
type Resolver interface {
	Resolve(ctx context.Context, c model.Candidate) (model.ResolvedFields, error)
}

// State is the working set threaded through the steps of one resolution.
type State struct {
	Fields model.ResolvedFields
	// WebsiteText is the practice website content, when a step has read it.
	WebsiteText string
}

// Step is one lookup in a Chain. Steps only fill fields that are still empty
// and return nil when they have nothing to do.
type Step interface {
	Name() string
	Apply(ctx context.Context, c model.Candidate, st *State) error
}

// Option configures a step.
type Option func(*options)

type options struct {
	retry resilience.RetryConfig
}

// WithRetry overrides the retry policy of a step's external calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

func newOptions(opts []Option) options {
	o := options{retry: resilience.DefaultRetryConfig()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// retryFor returns the policy with a retry logger for the named call.
func (o options) retryFor(service, operation string) resilience.RetryConfig {
	cfg := o.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(service, operation)
	}
	return cfg
}

// Chain runs steps in order against a shared State.
type Chain struct {
	steps []Step
}

// NewChain creates a Chain. Steps run in the given order.
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Resolve implements Resolver. Values already present on the candidate seed
// the result. A failing step is logged and skipped and the result is marked
// Partial; an error is returned only when every step failed.
func (c *Chain) Resolve(ctx context.Context, cand model.Candidate) (model.ResolvedFields, error) {
	st := &State{Fields: seed(cand)}
	log := zap.L().With(zap.String("key", cand.Key))

	var failed int
	var lastErr error
	for _, s := range c.steps {
		if err := ctx.Err(); err != nil {
			return st.Fields, eris.Wrap(err, "enrich: resolve")
		}
		if err := s.Apply(ctx, cand, st); err != nil {
			log.Debug("enrich: step failed, continuing",
				zap.String("step", s.Name()),
				zap.Error(err),
			)
			failed++
			lastErr = err
		}
	}
	st.Fields.Partial = failed > 0
	if len(c.steps) > 0 && failed == len(c.steps) {
		return st.Fields, eris.Wrap(lastErr, "enrich: all steps failed")
	}
	return st.Fields, nil
}

func seed(c model.Candidate) model.ResolvedFields {
	return model.ResolvedFields{
		Phone:           c.Phone,
		Email:           c.Email,
		PracticeWebsite: c.PracticeWebsite,
		AddressLine1:    c.AddressLine1,
		PostalCode:      c.PostalCode,
	}
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, c model.Candidate) (model.ResolvedFields, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, c model.Candidate) (model.ResolvedFields, error) {
	return f(ctx, c)
}
