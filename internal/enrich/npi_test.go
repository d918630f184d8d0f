package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgather/internal/resilience"
	"github.com/sells-group/leadgather/pkg/npi"
)

func lakesideProvider() npi.Provider {
	return npi.Provider{
		Number: "1234567893",
		Basic: npi.Basic{
			OrganizationName:             "LAKESIDE FAMILY DENTISTRY PLLC",
			AuthorizedOfficialFirstName:  "MARIA",
			AuthorizedOfficialLastName:   "CHEN",
			AuthorizedOfficialCredential: "D.D.S.",
		},
		Addresses: []npi.Address{
			{Purpose: "MAILING", Address1: "PO BOX 1", PostalCode: "787680001", TelephoneNumber: "512-555-0000"},
			{Purpose: "LOCATION", Address1: "100 CONGRESS AVE", PostalCode: "787012201", TelephoneNumber: "512-555-0142"},
		},
	}
}

func TestNPI_AcceptsMatchAboveThreshold(t *testing.T) {
	client := &fakeNPI{resp: &npi.SearchResponse{ResultCount: 2, Results: []npi.Provider{
		{Number: "1999999999", Basic: npi.Basic{OrganizationName: "LAKEWOOD PEDIATRIC DENTAL GROUP"}},
		lakesideProvider(),
	}}}

	st := &State{}
	err := NewNPI(client, 0.85, 10, fastRetry()).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Equal(t, "1234567893", st.Fields.NPINumber)
	assert.Equal(t, "Maria Chen, DDS", st.Fields.DecisionMaker)
	assert.Equal(t, "(512) 555-0142", st.Fields.Phone)
	assert.Equal(t, "100 CONGRESS AVE", st.Fields.AddressLine1)
	assert.Equal(t, "78701", st.Fields.PostalCode)
	assert.False(t, st.Fields.NPIBelowThreshold)

	assert.Equal(t, "lakeside family dentistry", client.last.OrganizationName)
	assert.Equal(t, "Austin", client.last.City)
	assert.Equal(t, "TX", client.last.State)
	assert.Equal(t, 10, client.last.Limit)
}

func TestNPI_BelowThreshold(t *testing.T) {
	client := &fakeNPI{resp: &npi.SearchResponse{ResultCount: 1, Results: []npi.Provider{
		{Number: "1999999999", Basic: npi.Basic{OrganizationName: "LAKEWOOD PEDIATRIC DENTAL GROUP"}},
	}}}

	st := &State{}
	err := NewNPI(client, 0.85, 10, fastRetry()).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Empty(t, st.Fields.NPINumber)
	assert.True(t, st.Fields.NPIBelowThreshold)
}

func TestNPI_NoResults(t *testing.T) {
	client := &fakeNPI{resp: &npi.SearchResponse{}}

	st := &State{}
	err := NewNPI(client, 0.85, 10).Apply(context.Background(), lakesideCandidate(), st)
	require.NoError(t, err)
	assert.Empty(t, st.Fields.NPINumber)
	assert.False(t, st.Fields.NPIBelowThreshold)
}

func TestNPI_PostalCodeWhenCityMissing(t *testing.T) {
	client := &fakeNPI{resp: &npi.SearchResponse{}}
	c := lakesideCandidate()
	c.City = ""

	st := &State{}
	st.Fields.PostalCode = "78701-2201"
	require.NoError(t, NewNPI(client, 0.85, 10).Apply(context.Background(), c, st))
	assert.Equal(t, "78701", client.last.PostalCode)
}

func TestNPI_SkipsWhenAlreadyKnown(t *testing.T) {
	client := &fakeNPI{}
	st := &State{}
	st.Fields.NPINumber = "1234567893"

	require.NoError(t, NewNPI(client, 0.85, 10).Apply(context.Background(), lakesideCandidate(), st))
	assert.Equal(t, 0, client.calls)
}

func TestNPI_RetriesTransientOnce(t *testing.T) {
	transient := resilience.NewTransientError(errors.New("npi: unexpected status 502"), 502)
	client := &fakeNPI{
		resp: &npi.SearchResponse{Results: []npi.Provider{lakesideProvider()}},
		errs: []error{transient, transient, transient},
	}

	err := NewNPI(client, 0.85, 10, fastRetry()).Apply(context.Background(), lakesideCandidate(), &State{})
	require.Error(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestNewNPI_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultNPIThreshold, NewNPI(&fakeNPI{}, 0, 10).threshold)
	assert.Equal(t, DefaultNPIThreshold, NewNPI(&fakeNPI{}, 1.5, 10).threshold)
	assert.Equal(t, 0.9, NewNPI(&fakeNPI{}, 0.9, 10).threshold)
}
