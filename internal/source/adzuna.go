package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/pkg/adzuna"
)

const adzunaMaxPages = 3

var countryCurrency = map[string]string{
	"us": "USD", "gb": "GBP", "ca": "CAD", "au": "AUD", "nz": "NZD",
	"de": "EUR", "fr": "EUR", "nl": "EUR", "it": "EUR", "es": "EUR", "at": "EUR",
}

// Adzuna searches the Adzuna job aggregator.
type Adzuna struct {
	client     adzuna.Client
	currency   string
	maxDaysOld int
}

// NewAdzuna creates the Adzuna source. country selects the salary currency.
func NewAdzuna(client adzuna.Client, country string, maxDaysOld int) *Adzuna {
	return &Adzuna{
		client:     client,
		currency:   countryCurrency[strings.ToLower(country)],
		maxDaysOld: maxDaysOld,
	}
}

// Name implements Source.
func (a *Adzuna) Name() string { return "adzuna" }

// Search implements Source. It pages through results until the quota is met
// or a short page signals the end.
func (a *Adzuna) Search(ctx context.Context, task model.Task) ([]model.RawPosting, error) {
	perPage := min(max(task.Quota, 1), 50)
	var out []model.RawPosting

	for page := 1; page <= adzunaMaxPages && len(out) < task.Quota; page++ {
		resp, err := a.client.Search(ctx, adzuna.SearchRequest{
			What:           task.Keyword,
			Where:          StateName(task.Region),
			Page:           page,
			ResultsPerPage: perPage,
			MaxDaysOld:     a.maxDaysOld,
		})
		if err != nil {
			if page > 1 {
				break
			}
			return nil, eris.Wrapf(err, "source: adzuna search %s", task.Region)
		}
		for _, job := range resp.Results {
			out = append(out, a.toPosting(job, task.Region))
		}
		if len(resp.Results) < perPage {
			break
		}
	}
	return capQuota(out, task.Quota), nil
}

func (a *Adzuna) toPosting(job adzuna.Job, region string) model.RawPosting {
	p := model.RawPosting{
		PracticeName: cleanText(job.Company.DisplayName),
		JobTitle:     cleanText(job.Title),
		JobURL:       job.RedirectURL,
		State:        region,
		Source:       a.Name(),
	}
	if t, ok := job.CreatedAt(); ok {
		p.PostedAt = timePtr(t)
	}

	area := job.Location.Area
	if len(area) >= 2 {
		if code, ok := StateCode(area[1]); ok {
			p.State = code
		}
	}
	if len(area) >= 3 {
		last := area[len(area)-1]
		if !strings.HasSuffix(strings.ToLower(last), " county") {
			p.City = last
		}
	}

	if job.SalaryIsPredicted != "1" {
		p.SalaryMin = job.SalaryMin
		p.SalaryMax = job.SalaryMax
		if p.SalaryMin != nil || p.SalaryMax != nil {
			p.SalaryCurrency = a.currency
		}
	}
	return p
}
