// Package store persists enrichment lookups so repeated runs do not query
// the same practice twice within the cache TTL.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
)

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache stores resolved enrichment fields keyed by a candidate's dedup key.
type Cache interface {
	// GetEnrichment returns the cached fields, or nil when there is no
	// unexpired entry.
	GetEnrichment(ctx context.Context, key string) (*model.ResolvedFields, error)
	SetEnrichment(ctx context.Context, key string, fields model.ResolvedFields, ttl time.Duration) error
	// DeleteExpired removes expired entries and reports how many were removed.
	DeleteExpired(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the cache for driver and runs its migration. The "none"
// driver returns a nil Cache and no error.
func Open(ctx context.Context, driver, dsn string) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		c, err = NewSQLite(dsn)
	case DriverPostgres:
		c, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		c.Close() //nolint:errcheck
		return nil, err
	}
	return c, nil
}
