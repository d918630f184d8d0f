package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/normalize"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/google"
)

// placesMinSimilarity is the name similarity a Places result needs before
// its phone and website are trusted.
const placesMinSimilarity = 0.8

// Places looks the practice up in Google Places.
type Places struct {
	client google.Client
	opts   options
}

// NewPlaces creates the Places step.
func NewPlaces(client google.Client, opts ...Option) *Places {
	return &Places{client: client, opts: newOptions(opts)}
}

// Name implements Step.
func (p *Places) Name() string { return "places" }

// Apply implements Step. It fills phone, website, street address and postal
// code from the best-matching place.
func (p *Places) Apply(ctx context.Context, c model.Candidate, st *State) error {
	f := st.Fields
	if c.PracticeName == "" || (f.Phone != "" && f.PracticeWebsite != "" && f.AddressLine1 != "" && f.PostalCode != "") {
		return nil
	}

	query := strings.Join(nonEmpty(c.PracticeName, c.City, c.State), " ")
	resp, err := resilience.DoVal(ctx, p.opts.retryFor("google", "text_search"), func(ctx context.Context) (*google.TextSearchResponse, error) {
		return p.client.TextSearch(ctx, query)
	})
	if err != nil {
		return eris.Wrapf(err, "enrich: places search %q", query)
	}
	if resp == nil {
		return nil
	}

	best, score := -1, 0.0
	for i, pl := range resp.Places {
		if s := nameSimilarity(c.PracticeName, pl.DisplayName.Text); s > score {
			best, score = i, s
		}
	}
	if best < 0 || score < placesMinSimilarity {
		return nil
	}

	pl := resp.Places[best]
	st.Fields.Merge(model.ResolvedFields{
		Phone:           normalize.Phone(pl.NationalPhoneNumber),
		PracticeWebsite: pl.WebsiteURI,
		AddressLine1:    pl.PostalAddress.StreetLine(),
		PostalCode:      postalOf(pl.PostalAddress),
	})
	return nil
}

func postalOf(a *google.PostalAddress) string {
	if a == nil {
		return ""
	}
	return normalize.PostalCode(a.PostalCode)
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
