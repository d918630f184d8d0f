package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgather/internal/model"
	"github.com/sells-group/leadgather/internal/normalize"
)

// DedupKey returns the merge key of a posting: normalized practice name,
// postal code (or city and state when there is none) and the sorted set of
// title words, joined by "|". Postings without a practice name are keyed by
// their URL so unrelated anonymous listings never merge.
func DedupKey(p model.RawPosting) string {
	name := normalize.Name(p.PracticeName)
	if name == "" {
		if p.JobURL == "" {
			return ""
		}
		return "url:" + strings.TrimSpace(p.JobURL)
	}
	where := normalize.PostalCode(p.PostalCode)
	if where == "" {
		where = normalize.Locality(p.City, p.State)
	}
	return name + "|" + where + "|" + normalize.TitleTokens(p.JobTitle)
}

// LeadID derives the stable lead id from a dedup key.
func LeadID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "lead_" + hex.EncodeToString(sum[:])[:16]
}

// Dedup merges postings that share a key. The first non-empty value of each
// field wins, so the result depends only on input order. Candidates come
// back in order of first occurrence.
func Dedup(postings []model.RawPosting) []model.Candidate {
	index := make(map[string]int, len(postings))
	out := make([]model.Candidate, 0, len(postings))

	for _, p := range postings {
		normalizeSalary(&p)
		key := DedupKey(p)
		if key == "" {
			zap.L().Debug("dedup: dropping posting without practice or url",
				zap.String("source", p.Source),
				zap.String("title", p.JobTitle),
			)
			continue
		}

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			c := model.Candidate{RawPosting: p, Key: key}
			if p.Source != "" {
				c.Sources = []string{p.Source}
			}
			out = append(out, c)
			continue
		}
		merge(&out[i], p)
	}
	return out
}

func merge(c *model.Candidate, p model.RawPosting) {
	if p.Source != "" && !contains(c.Sources, p.Source) {
		c.Sources = append(c.Sources, p.Source)
	}

	mergeString(c, "practiceName", &c.PracticeName, p.PracticeName)
	mergeString(c, "jobTitle", &c.JobTitle, p.JobTitle)
	mergeString(c, "jobUrl", &c.JobURL, p.JobURL)
	mergeString(c, "city", &c.City, p.City)
	mergeString(c, "state", &c.State, p.State)
	mergeString(c, "postalCode", &c.PostalCode, p.PostalCode)
	mergeString(c, "addressLine1", &c.AddressLine1, p.AddressLine1)
	mergeString(c, "practiceWebsite", &c.PracticeWebsite, p.PracticeWebsite)
	mergeString(c, "phone", &c.Phone, p.Phone)
	mergeString(c, "email", &c.Email, p.Email)
	mergeString(c, "salary.currency", &c.SalaryCurrency, p.SalaryCurrency)
	mergeFloat(c, "salary.min", &c.SalaryMin, p.SalaryMin)
	mergeFloat(c, "salary.max", &c.SalaryMax, p.SalaryMax)

	switch {
	case p.PostedAt == nil:
	case c.PostedAt == nil:
		c.PostedAt = p.PostedAt
	case !c.PostedAt.Equal(*p.PostedAt):
		conflict(c, "jobPostedAt")
	}
}

func mergeString(c *model.Candidate, field string, dst *string, src string) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
	case *dst == "":
		*dst = src
	case !strings.EqualFold(strings.TrimSpace(*dst), src):
		conflict(c, field)
	}
}

func mergeFloat(c *model.Candidate, field string, dst **float64, src *float64) {
	switch {
	case src == nil:
	case *dst == nil:
		v := *src
		*dst = &v
	case **dst != *src:
		conflict(c, field)
	}
}

func conflict(c *model.Candidate, field string) {
	if !contains(c.Conflicts, field) {
		c.Conflicts = append(c.Conflicts, field)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// normalizeSalary drops non-positive bounds, orders min and max and
// upper-cases the currency code. Currencies that are not three letters are
// dropped.
func normalizeSalary(p *model.RawPosting) {
	if p.SalaryMin != nil && *p.SalaryMin <= 0 {
		p.SalaryMin = nil
	}
	if p.SalaryMax != nil && *p.SalaryMax <= 0 {
		p.SalaryMax = nil
	}
	if p.SalaryMin != nil && p.SalaryMax != nil && *p.SalaryMin > *p.SalaryMax {
		p.SalaryMin, p.SalaryMax = p.SalaryMax, p.SalaryMin
	}

	cur := strings.ToUpper(strings.TrimSpace(p.SalaryCurrency))
	if len(cur) != 3 || strings.IndexFunc(cur, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		cur = ""
	}
	p.SalaryCurrency = cur
}
