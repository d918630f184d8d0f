package model

// MaxTargetTotal caps the number of leads a single query may request.
const MaxTargetTotal = 1000

// LeadQueryOptions is the caller's request to the lead pipeline.
type LeadQueryOptions struct {
	// States are two-letter region codes. Empty means the default region set.
	States []string `json:"states"`
	// TargetTotal is the desired result count. Values <= 0 mean the default.
	TargetTotal int `json:"targetTotal"`
	// Keyword is the role search term. Empty means the default keyword.
	Keyword string `json:"keyword,omitempty"`
}

// Task is one planned discovery unit: a region searched for a keyword.
type Task struct {
	Region  string `json:"region"`
	Keyword string `json:"keyword"`
	// Quota is a soft cap on postings requested from each source.
	Quota int `json:"quota"`
}
