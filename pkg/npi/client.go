// Package npi provides a client for the CMS NPPES NPI Registry API.
package npi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgather/internal/resilience"
)

const (
	defaultBaseURL = "https://npiregistry.cms.hhs.gov/api"
	apiVersion     = "2.1"
	// EnumerationOrganization selects type 2 (organization) providers.
	EnumerationOrganization = "NPI-2"
)

var nameCaser = cases.Title(language.AmericanEnglish)

// Client searches the NPI Registry.
type Client interface {
	Search(ctx context.Context, q Query) (*SearchResponse, error)
}

// Query holds registry search parameters. Empty fields are omitted.
type Query struct {
	OrganizationName string
	City             string
	State            string
	PostalCode       string
	TaxonomyDesc     string
	Limit            int
}

// SearchResponse is the decoded registry response.
type SearchResponse struct {
	ResultCount int        `json:"result_count"`
	Results     []Provider `json:"results"`
	Errors      []APIError `json:"Errors,omitempty"`
}

// APIError is a validation error reported in a 200 response.
type APIError struct {
	Description string `json:"description"`
	Field       string `json:"field"`
	Number      string `json:"number"`
}

// Number is an NPI number. The registry has returned it as both a JSON
// number and a string.
type Number string

// UnmarshalJSON accepts a quoted or bare number.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = Number(num.String())
	return nil
}

// Provider is a single registry record.
type Provider struct {
	Number     Number     `json:"number"`
	Basic      Basic      `json:"basic"`
	Addresses  []Address  `json:"addresses"`
	Taxonomies []Taxonomy `json:"taxonomies"`
}

// Basic holds organization details and the authorized official.
type Basic struct {
	OrganizationName             string `json:"organization_name"`
	Status                       string `json:"status"`
	AuthorizedOfficialFirstName  string `json:"authorized_official_first_name"`
	AuthorizedOfficialLastName   string `json:"authorized_official_last_name"`
	AuthorizedOfficialTitle      string `json:"authorized_official_title_or_position"`
	AuthorizedOfficialCredential string `json:"authorized_official_credential"`
}

// AuthorizedOfficial returns "First Last[, Credential]" or "" when no
// official is listed.
func (b Basic) AuthorizedOfficial() string {
	name := strings.TrimSpace(titleCase(b.AuthorizedOfficialFirstName) + " " + titleCase(b.AuthorizedOfficialLastName))
	if name == "" {
		return ""
	}
	if cred := strings.TrimSpace(b.AuthorizedOfficialCredential); cred != "" {
		name += ", " + strings.ReplaceAll(cred, ".", "")
	}
	return name
}

// Address is a mailing or practice location address.
type Address struct {
	Purpose         string `json:"address_purpose"`
	Address1        string `json:"address_1"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	TelephoneNumber string `json:"telephone_number"`
}

// Taxonomy is a provider specialty.
type Taxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
}

// Location returns the practice location address, falling back to the first
// address on file.
func (p Provider) Location() (Address, bool) {
	for _, a := range p.Addresses {
		if strings.EqualFold(a.Purpose, "LOCATION") {
			return a, true
		}
	}
	if len(p.Addresses) > 0 {
		return p.Addresses[0], true
	}
	return Address{}, false
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(int(perSecond), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an NPI Registry client. The registry is public and
// needs no key.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "npi: rate limiter wait")
		}
	}

	v := url.Values{}
	v.Set("version", apiVersion)
	v.Set("enumeration_type", EnumerationOrganization)
	setIf(v, "organization_name", q.OrganizationName)
	setIf(v, "city", q.City)
	setIf(v, "state", q.State)
	setIf(v, "postal_code", q.PostalCode)
	setIf(v, "taxonomy_description", q.TaxonomyDesc)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(min(q.Limit, 200)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+v.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "npi: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "npi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "npi: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("npi: search", resp.StatusCode, body)
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "npi: unmarshal response")
	}
	if len(result.Errors) > 0 {
		return nil, eris.Errorf("npi: search rejected: %s", result.Errors[0].Description)
	}
	return &result, nil
}

func setIf(v url.Values, key, val string) {
	if val = strings.TrimSpace(val); val != "" {
		v.Set(key, val)
	}
}

// titleCase turns registry upper-case names like "MARIA" into "Maria".
func titleCase(s string) string {
	return nameCaser.String(strings.ToLower(strings.TrimSpace(s)))
}
