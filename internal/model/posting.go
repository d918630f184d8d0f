package model

import "time"

// RawPosting is an unprocessed job posting as returned by one source.
type RawPosting struct {
	PracticeName    string     `json:"practice_name"`
	JobTitle        string     `json:"job_title"`
	JobURL          string     `json:"job_url"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	PostalCode      string     `json:"postal_code,omitempty"`
	AddressLine1    string     `json:"address_line1,omitempty"`
	Source          string     `json:"source"`
	SalaryMin       *float64   `json:"salary_min,omitempty"`
	SalaryMax       *float64   `json:"salary_max,omitempty"`
	SalaryCurrency  string     `json:"salary_currency,omitempty"`
	PracticeWebsite string     `json:"practice_website,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
}

// Candidate is a deduplicated posting that has not been enriched yet.
type Candidate struct {
	RawPosting

	// Key is the normalized dedup key the candidate was merged under.
	Key string `json:"key"`
	// Sources lists every contributing source once, in first-seen order.
	Sources []string `json:"sources"`
	// Conflicts names the fields where contributing sources disagreed.
	Conflicts []string `json:"conflicts,omitempty"`
}

// ResolvedFields is the output of enrichment for a single candidate.
// Empty strings mean the field could not be resolved.
type ResolvedFields struct {
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	DecisionMaker   string `json:"decision_maker,omitempty"`
	NPINumber       string `json:"npi_number,omitempty"`
	PracticeWebsite string `json:"practice_website,omitempty"`
	AddressLine1    string `json:"address_line1,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`

	// NPIBelowThreshold is set when a registry match existed but its name
	// similarity fell short of the acceptance threshold.
	NPIBelowThreshold bool `json:"npi_below_threshold,omitempty"`

	// Partial is set when at least one lookup failed. It is never persisted.
	Partial bool `json:"-"`
}

// Merge fills every empty field of r from other. Existing values win.
func (r *ResolvedFields) Merge(other ResolvedFields) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&r.Phone, other.Phone)
	fill(&r.Email, other.Email)
	fill(&r.DecisionMaker, other.DecisionMaker)
	fill(&r.NPINumber, other.NPINumber)
	fill(&r.PracticeWebsite, other.PracticeWebsite)
	fill(&r.AddressLine1, other.AddressLine1)
	fill(&r.PostalCode, other.PostalCode)
	if r.NPINumber != "" {
		r.NPIBelowThreshold = false
	} else if other.NPIBelowThreshold {
		r.NPIBelowThreshold = true
	}
}

// Complete reports whether every contact and identity field is resolved.
func (r ResolvedFields) Complete() bool {
	return r.Phone != "" && r.Email != "" && r.DecisionMaker != "" &&
		r.NPINumber != "" && r.PracticeWebsite != ""
}
