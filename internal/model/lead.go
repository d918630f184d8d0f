package model

import "time"

// Lead is a single enriched, scored job-opening record returned to callers.
// Optional fields are pointers so they serialize as null when absent.
type Lead struct {
	ID              string     `json:"id"`
	PracticeName    *string    `json:"practiceName"`
	Phone           *string    `json:"phone"`
	Email           *string    `json:"email"`
	JobTitle        *string    `json:"jobTitle"`
	JobURL          *string    `json:"jobUrl"`
	JobPostedAt     *time.Time `json:"jobPostedAt"`
	PracticeWebsite *string    `json:"practiceWebsite"`
	DecisionMaker   *string    `json:"decisionMaker"`
	Location        Location   `json:"location"`
	Salary          Salary     `json:"salary"`
	Enrichment      Enrichment `json:"enrichment"`
	Sources         []string   `json:"sources"`
}

// Location holds the practice address fields of a lead.
type Location struct {
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postalCode"`
	AddressLine1 *string `json:"addressLine1"`
}

// Salary is the advertised pay range. Min <= Max when both are set.
type Salary struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency *string  `json:"currency"`
}

// Enrichment carries the identity match and quality assessment of a lead.
type Enrichment struct {
	NPINumber    *string  `json:"npiNumber"`
	Confidence   float64  `json:"confidence"`
	QualityNotes []string `json:"qualityNotes"`
}

// Posted reports the posting time and whether it is known.
func (l Lead) Posted() (time.Time, bool) {
	if l.JobPostedAt == nil {
		return time.Time{}, false
	}
	return *l.JobPostedAt, true
}

// StringPtr returns nil for empty strings and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
