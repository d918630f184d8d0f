package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/fetcher"
	"github.com/sells-group/leadgather/internal/model"
)

// RSS reads classifieds feeds. Each feed is a URL template where {region}
// and {keyword} are replaced with the query-escaped task values.
type RSS struct {
	fetcher fetcher.Fetcher
	feeds   []string
}

// NewRSS creates the RSS source.
func NewRSS(f fetcher.Fetcher, feeds []string) *RSS {
	return &RSS{fetcher: f, feeds: feeds}
}

// Name implements Source.
func (r *RSS) Name() string { return "rss" }

// Search implements Source. A feed that fails is skipped; the call fails
// only when every feed failed.
func (r *RSS) Search(ctx context.Context, task model.Task) ([]model.RawPosting, error) {
	if len(r.feeds) == 0 {
		return nil, nil
	}

	parser := gofeed.NewParser()
	var out []model.RawPosting
	var lastErr error
	failures := 0

	for _, tmpl := range r.feeds {
		if len(out) >= task.Quota {
			break
		}
		feedURL := expandTemplate(tmpl, task)
		items, err := r.readFeed(ctx, parser, feedURL)
		if err != nil {
			failures++
			lastErr = err
			zap.L().Warn("source: rss feed failed",
				zap.String("feed", feedURL),
				zap.Error(err),
			)
			continue
		}
		for _, it := range items {
			if p, ok := r.toPosting(it, task); ok {
				out = append(out, p)
			}
		}
	}

	if failures == len(r.feeds) {
		return nil, eris.Wrapf(lastErr, "source: rss %s", task.Region)
	}
	return capQuota(out, task.Quota), nil
}

func (r *RSS) readFeed(ctx context.Context, parser *gofeed.Parser, feedURL string) ([]*gofeed.Item, error) {
	body, err := r.fetcher.Download(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	feed, err := parser.Parse(body)
	if err != nil {
		return nil, eris.Wrap(err, "source: parse feed")
	}
	return feed.Items, nil
}

func (r *RSS) toPosting(it *gofeed.Item, task model.Task) (model.RawPosting, bool) {
	l := parseListingTitle(it.Title)
	if l.Title == "" || !titleMatches(l.Title, task.Keyword) {
		return model.RawPosting{}, false
	}

	p := model.RawPosting{
		PracticeName: l.Practice,
		JobTitle:     l.Title,
		JobURL:       strings.TrimSpace(it.Link),
		City:         l.Place.City,
		State:        l.Place.State,
		PostalCode:   l.Place.PostalCode,
		Source:       r.Name(),
	}
	if p.PracticeName == "" && it.Author != nil {
		p.PracticeName = cleanText(it.Author.Name)
	}
	if p.State == "" {
		p.State = task.Region
	}

	switch {
	case it.PublishedParsed != nil:
		p.PostedAt = timePtr(it.PublishedParsed.UTC())
	case it.UpdatedParsed != nil:
		p.PostedAt = timePtr(it.UpdatedParsed.UTC())
	}
	return p, true
}

// expandTemplate substitutes {region} and {keyword} in a URL template.
func expandTemplate(tmpl string, task model.Task) string {
	return strings.NewReplacer(
		"{region}", url.QueryEscape(task.Region),
		"{region_name}", url.QueryEscape(StateName(task.Region)),
		"{keyword}", url.QueryEscape(task.Keyword),
		"{quota}", strconv.Itoa(task.Quota),
	).Replace(tmpl)
}
