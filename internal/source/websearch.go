package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/pkg/jina"
)

// WebSearch finds postings through Jina web search, restricted to a job-board
// domain, and parses the result headlines.
type WebSearch struct {
	client     jina.Client
	siteFilter string
	now        func() time.Time
}

// NewWebSearch creates the web search source. siteFilter may be empty.
func NewWebSearch(client jina.Client, siteFilter string) *WebSearch {
	return &WebSearch{client: client, siteFilter: siteFilter, now: time.Now}
}

// Name implements Source.
func (w *WebSearch) Name() string { return "websearch" }

// Search implements Source.
func (w *WebSearch) Search(ctx context.Context, task model.Task) ([]model.RawPosting, error) {
	query := task.Keyword + " jobs " + StateName(task.Region)

	var opts []jina.SearchOption
	if w.siteFilter != "" {
		opts = append(opts, jina.WithSiteFilter(w.siteFilter))
	}
	resp, err := w.client.Search(ctx, query, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "source: websearch %s", task.Region)
	}

	now := w.now().UTC()
	var out []model.RawPosting
	for _, r := range resp.Data {
		l := parseListingTitle(r.Title)
		if l.Practice == "" || !titleMatches(l.Title, task.Keyword) {
			continue
		}
		p := model.RawPosting{
			PracticeName: l.Practice,
			JobTitle:     l.Title,
			JobURL:       r.URL,
			City:         l.Place.City,
			State:        l.Place.State,
			PostalCode:   l.Place.PostalCode,
			Source:       w.Name(),
		}
		if p.State == "" {
			p.State = task.Region
		}
		if t, ok := parseRelativeAge(r.Description, now); ok {
			p.PostedAt = timePtr(t)
		}
		out = append(out, p)
	}
	return capQuota(out, task.Quota), nil
}
