package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/normalize"
	"github.com/sells-group/leadgather/internal/store"
)

// Cached consults an enrichment cache before delegating to the wrapped
// resolver. Only complete resolutions, where no lookup failed, are stored;
// cache errors are logged and otherwise ignored. Entries are keyed by
// practice, so postings for different roles at one practice share them.
type Cached struct {
	next  Resolver
	cache store.Cache
	ttl   time.Duration
}

// NewCached wraps next with cache. A nil cache returns next unchanged.
func NewCached(next Resolver, cache store.Cache, ttl time.Duration) Resolver {
	if cache == nil {
		return next
	}
	return &Cached{next: next, cache: cache, ttl: ttl}
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, cand model.Candidate) (model.ResolvedFields, error) {
	key := CacheKey(cand)
	log := zap.L().With(zap.String("key", key))

	hit, err := c.cache.GetEnrichment(ctx, key)
	if err != nil {
		log.Debug("enrich: cache lookup failed", zap.Error(err))
	}
	if hit != nil {
		fields := *hit
		fields.Merge(seed(cand))
		return fields, nil
	}

	fields, err := c.next.Resolve(ctx, cand)
	if err != nil {
		return fields, err
	}
	if fields.Partial {
		log.Debug("enrich: partial result not cached")
		return fields, nil
	}
	if err := c.cache.SetEnrichment(ctx, key, fields, c.ttl); err != nil {
		log.Debug("enrich: cache write failed", zap.Error(err))
	}
	return fields, nil
}

// CacheKey identifies the practice behind a candidate: its normalized name
// and postal code, or city and state when there is no postal code. Nameless
// candidates fall back to their dedup key.
func CacheKey(c model.Candidate) string {
	name := normalize.Name(c.PracticeName)
	if name == "" {
		return c.Key
	}
	where := normalize.PostalCode(c.PostalCode)
	if where == "" {
		where = normalize.Locality(c.City, c.State)
	}
	return "practice:" + name + "|" + where
}
