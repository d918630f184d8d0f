package model

import "time"

// LeadsResponse is the JSON envelope returned by the API and the gather
// command.
type LeadsResponse struct {
	Leads []Lead       `json:"leads"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta describes a LeadsResponse.
type ResponseMeta struct {
	Count       int       `json:"count"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NewLeadsResponse wraps leads in an envelope stamped with now (UTC). A nil
// slice is encoded as an empty array.
func NewLeadsResponse(leads []Lead, now time.Time) LeadsResponse {
	if leads == nil {
		leads = []Lead{}
	}
	return LeadsResponse{
		Leads: leads,
		Meta: ResponseMeta{
			Count:       len(leads),
			GeneratedAt: now.UTC().Truncate(time.Second),
		},
	}
}
