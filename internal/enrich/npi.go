package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/normalize"
	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/npi"
)

// DefaultNPIThreshold is the minimum Jaro-Winkler similarity between the
// practice name and a registry organization name.
const DefaultNPIThreshold = 0.85

// NPI matches the practice against NPPES type 2 (organization) providers.
type NPI struct {
	client    npi.Client
	threshold float64
	limit     int
	opts      options
}

// NewNPI creates the NPI step. A non-positive threshold selects
// DefaultNPIThreshold.
func NewNPI(client npi.Client, threshold float64, limit int, opts ...Option) *NPI {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultNPIThreshold
	}
	return &NPI{client: client, threshold: threshold, limit: limit, opts: newOptions(opts)}
}

// Name implements Step.
func (n *NPI) Name() string { return "npi" }

// Apply implements Step. The best registry match is accepted only at or
// above the threshold; a weaker best match sets NPIBelowThreshold.
func (n *NPI) Apply(ctx context.Context, c model.Candidate, st *State) error {
	if c.PracticeName == "" || st.Fields.NPINumber != "" {
		return nil
	}

	q := npi.Query{
		OrganizationName: normalize.Name(c.PracticeName),
		City:             c.City,
		State:            c.State,
		Limit:            n.limit,
	}
	if q.City == "" {
		q.PostalCode = normalize.PostalCode(firstNonEmpty(st.Fields.PostalCode, c.PostalCode))
	}
	resp, err := resilience.DoVal(ctx, n.opts.retryFor("npi", "search"), func(ctx context.Context) (*npi.SearchResponse, error) {
		return n.client.Search(ctx, q)
	})
	if err != nil {
		return eris.Wrapf(err, "enrich: npi search %q", q.OrganizationName)
	}
	if resp == nil || len(resp.Results) == 0 {
		return nil
	}

	best, score := 0, -1.0
	for i, p := range resp.Results {
		if s := nameSimilarity(c.PracticeName, p.Basic.OrganizationName); s > score {
			best, score = i, s
		}
	}
	if score < n.threshold {
		st.Fields.Merge(model.ResolvedFields{NPIBelowThreshold: true})
		return nil
	}

	p := resp.Results[best]
	found := model.ResolvedFields{
		NPINumber:     string(p.Number),
		DecisionMaker: p.Basic.AuthorizedOfficial(),
	}
	if loc, ok := p.Location(); ok {
		found.Phone = normalize.Phone(loc.TelephoneNumber)
		found.AddressLine1 = loc.Address1
		found.PostalCode = normalize.PostalCode(loc.PostalCode)
	}
	st.Fields.Merge(found)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
