// Package source implements the job-posting sources queried for each planned
// task. Every adapter satisfies Source and returns unprocessed postings;
// deduplication, enrichment and freshness judgments happen downstream.
package source

import (
	"context"

	"github.com/sells-group/leadgather/internal/model"
)

// Source discovers job postings for one task.
type Source interface {
	// Name identifies the source in logs and on lead records.
	Name() string
	// Search returns postings for task. Quota is a soft cap; returning fewer
	// is fine, and an error means the call produced nothing usable.
	Search(ctx context.Context, task model.Task) ([]model.RawPosting, error)
}

// SearchFunc is the signature of Source.Search.
type SearchFunc func(ctx context.Context, task model.Task) ([]model.RawPosting, error)

type funcSource struct {
	name string
	fn   SearchFunc
}

// NewFunc adapts a plain function into a Source.
func NewFunc(name string, fn SearchFunc) Source {
	return &funcSource{name: name, fn: fn}
}

func (f *funcSource) Name() string { return f.name }

func (f *funcSource) Search(ctx context.Context, task model.Task) ([]model.RawPosting, error) {
	return f.fn(ctx, task)
}

// capQuota trims postings to the task quota.
func capQuota(postings []model.RawPosting, quota int) []model.RawPosting {
	if quota > 0 && len(postings) > quota {
		return postings[:quota]
	}
	return postings
}
