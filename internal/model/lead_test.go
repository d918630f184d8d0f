package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLead_JSONNullsForMissingFields(t *testing.T) {
	t.Parallel()

	lead := Lead{
		ID:           "lead_abc",
		PracticeName: StringPtr("Bright Smiles Dental"),
		Enrichment: Enrichment{
			Confidence:   0.25,
			QualityNotes: []string{"no phone number"},
		},
	}

	b, err := json.Marshal(lead)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, "lead_abc", got["id"])
	assert.Equal(t, "Bright Smiles Dental", got["practiceName"])
	assert.Nil(t, got["phone"])
	assert.Nil(t, got["jobPostedAt"])
	assert.Contains(t, got, "email")

	loc := got["location"].(map[string]any)
	assert.Nil(t, loc["postalCode"])

	enr := got["enrichment"].(map[string]any)
	assert.Nil(t, enr["npiNumber"])
	assert.InDelta(t, 0.25, enr["confidence"], 0.0001)
}

func TestLead_JSONPostedAtISO8601(t *testing.T) {
	t.Parallel()

	posted := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	b, err := json.Marshal(Lead{ID: "x", JobPostedAt: &posted})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"jobPostedAt":"2026-10-16T09:30:00Z"`)
}

func TestLead_Posted(t *testing.T) {
	t.Parallel()

	_, ok := Lead{}.Posted()
	assert.False(t, ok)

	now := time.Now()
	got, ok := Lead{JobPostedAt: &now}.Posted()
	assert.True(t, ok)
	assert.Equal(t, now, got)
}

func TestStringPtrAndDeref(t *testing.T) {
	t.Parallel()

	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "a", *StringPtr("a"))
	assert.Equal(t, "", Deref(nil))
	assert.Equal(t, "b", Deref(StringPtr("b")))
}

func TestNewLeadsResponse(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 4, 5, 999, time.FixedZone("PST", -8*3600))

	empty := NewLeadsResponse(nil, now)
	assert.NotNil(t, empty.Leads)
	assert.Equal(t, 0, empty.Meta.Count)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 4, 5, 0, time.UTC), empty.Meta.GeneratedAt)

	raw, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"leads":[],"meta":{"count":0,"generatedAt":"2026-03-02T23:04:05Z"}}`, string(raw))

	full := NewLeadsResponse([]Lead{{ID: "lead_a"}, {ID: "lead_b"}}, now)
	assert.Equal(t, 2, full.Meta.Count)
}
