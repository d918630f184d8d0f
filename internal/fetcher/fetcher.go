// Package fetcher downloads job feeds and listing pages on behalf of the
// source adapters.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote documents.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
