package npi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgather/internal/resilience"
)

const registryFixture = `{
  "result_count": 1,
  "results": [{
    "number": 1487654321,
    "basic": {
      "organization_name": "LAKESIDE FAMILY DENTISTRY PLLC",
      "status": "A",
      "authorized_official_first_name": "MARIA",
      "authorized_official_last_name": "CHEN",
      "authorized_official_title_or_position": "OWNER",
      "authorized_official_credential": "D.D.S."
    },
    "addresses": [
      {"address_purpose": "MAILING", "address_1": "PO BOX 12", "city": "AUSTIN", "state": "TX", "postal_code": "787010000"},
      {"address_purpose": "LOCATION", "address_1": "100 LAKE DR", "city": "AUSTIN", "state": "TX", "postal_code": "787010000", "telephone_number": "512-555-0142"}
    ],
    "taxonomies": [{"code": "1223G0001X", "desc": "Dentist, General Practice", "primary": true}]
  }]
}`

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2.1", q.Get("version"))
		assert.Equal(t, "NPI-2", q.Get("enumeration_type"))
		assert.Equal(t, "Lakeside Family*", q.Get("organization_name"))
		assert.Equal(t, "TX", q.Get("state"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Empty(t, q.Get("postal_code"))
		_, _ = w.Write([]byte(registryFixture))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := c.Search(context.Background(), Query{OrganizationName: "Lakeside Family*", State: "TX", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	p := resp.Results[0]
	assert.Equal(t, Number("1487654321"), p.Number)
	assert.Equal(t, "Maria Chen, DDS", p.Basic.AuthorizedOfficial())

	loc, ok := p.Location()
	require.True(t, ok)
	assert.Equal(t, "100 LAKE DR", loc.Address1)
	assert.Equal(t, "512-555-0142", loc.TelephoneNumber)
}

func TestSearch_ValidationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Errors":[{"description":"No valid search criteria provided","field":"generic","number":"04"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL), WithRateLimit(0)).Search(context.Background(), Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No valid search criteria provided")
}

func TestSearch_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Search(context.Background(), Query{OrganizationName: "x"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1234567890, "b": "1234567891", "c": null}`), &v))
	assert.Equal(t, Number("1234567890"), v.A)
	assert.Equal(t, Number("1234567891"), v.B)
	assert.Empty(t, v.C)
}

func TestAuthorizedOfficial(t *testing.T) {
	assert.Empty(t, Basic{}.AuthorizedOfficial())
	assert.Equal(t, "Ann Lee", Basic{AuthorizedOfficialFirstName: "ANN", AuthorizedOfficialLastName: "LEE"}.AuthorizedOfficial())
}

func TestLocation_Fallbacks(t *testing.T) {
	_, ok := Provider{}.Location()
	assert.False(t, ok)

	p := Provider{Addresses: []Address{{Purpose: "MAILING", City: "DALLAS"}}}
	a, ok := p.Location()
	require.True(t, ok)
	assert.Equal(t, "DALLAS", a.City)
}
