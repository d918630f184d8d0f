package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/fetcher"
	"github.com/sells-group/leadgather/internal/model"
)

// Board scrapes one HTML job board described by a BoardDefinition.
type Board struct {
	def     BoardDefinition
	fetcher fetcher.Fetcher
	now     func() time.Time
}

// NewBoard creates a board source.
func NewBoard(def BoardDefinition, f fetcher.Fetcher) *Board {
	return &Board{def: def, fetcher: f, now: time.Now}
}

// Name implements Source.
func (b *Board) Name() string { return "board:" + b.def.Name }

// Search implements Source.
func (b *Board) Search(ctx context.Context, task model.Task) ([]model.RawPosting, error) {
	pageURL := expandTemplate(b.def.URL, task)
	body, err := b.fetcher.Download(ctx, pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", b.Name())
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s: parse html", b.Name())
	}

	base, _ := url.Parse(pageURL)
	now := b.now().UTC()
	var out []model.RawPosting

	doc.Find(b.def.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := extract(item, b.def.Title)
		if title == "" {
			return true
		}
		p := model.RawPosting{
			JobTitle:     title,
			PracticeName: extract(item, b.def.Practice),
			JobURL:       resolveLink(base, extract(item, b.def.Link)),
			State:        task.Region,
			Source:       b.Name(),
		}
		if loc := extract(item, b.def.Location); loc != "" {
			pl := parsePlace(loc)
			p.City, p.PostalCode = pl.City, pl.PostalCode
			if pl.State != "" {
				p.State = pl.State
			}
		}
		if posted := extract(item, b.def.Posted); posted != "" {
			if t, ok := parseDate(posted, b.def.DateLayout); ok {
				p.PostedAt = timePtr(t)
			} else if t, ok := parseRelativeAge(posted, now); ok {
				p.PostedAt = timePtr(t)
			}
		}
		out = append(out, p)
		return len(out) < task.Quota
	})

	return out, nil
}

// extract applies a "selector@attr" expression to item.
func extract(item *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	sel, attr, hasAttr := strings.Cut(expr, "@")
	target := item
	if sel = strings.TrimSpace(sel); sel != "" {
		target = item.Find(sel).First()
	}
	if hasAttr {
		v, _ := target.Attr(strings.TrimSpace(attr))
		return cleanText(v)
	}
	return cleanText(target.Text())
}

func resolveLink(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
