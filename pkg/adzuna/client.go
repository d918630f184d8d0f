// Package adzuna provides a client for the Adzuna job search API.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgather/internal/resilience"
)

const (
	defaultBaseURL = "https://api.adzuna.com/v1/api"
	defaultCountry = "us"
	maxPerPage     = 50
)

// Client searches job advertisements.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest describes one page of a job search.
type SearchRequest struct {
	What           string
	Where          string
	Page           int
	ResultsPerPage int
	// MaxDaysOld drops ads older than this many days. Zero means no limit.
	MaxDaysOld int
}

// SearchResponse is the decoded search result page.
type SearchResponse struct {
	Count   int   `json:"count"`
	Results []Job `json:"results"`
}

// Job is a single advertisement.
type Job struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Created           string   `json:"created"`
	RedirectURL       string   `json:"redirect_url"`
	Company           Company  `json:"company"`
	Location          Location `json:"location"`
	SalaryMin         *float64 `json:"salary_min"`
	SalaryMax         *float64 `json:"salary_max"`
	SalaryIsPredicted string   `json:"salary_is_predicted"`
}

// CreatedAt parses Created. ok is false when the timestamp is missing or
// malformed.
func (j Job) CreatedAt() (time.Time, bool) {
	if j.Created == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, j.Created)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Company is the advertiser.
type Company struct {
	DisplayName string `json:"display_name"`
}

// Location is the advertised location. Area runs from country down to the
// most specific place, e.g. ["US", "Texas", "Travis County", "Austin"].
type Location struct {
	DisplayName string   `json:"display_name"`
	Area        []string `json:"area"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithCountry sets the Adzuna country code.
func WithCountry(country string) Option {
	return func(c *httpClient) {
		if country != "" {
			c.country = country
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	appID   string
	appKey  string
	baseURL string
	country string
	http    *http.Client
}

// NewClient creates an Adzuna API client.
func NewClient(appID, appKey string, opts ...Option) Client {
	c := &httpClient{
		appID:   appID,
		appKey:  appKey,
		baseURL: defaultBaseURL,
		country: defaultCountry,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	page := max(req.Page, 1)
	perPage := req.ResultsPerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}

	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("app_key", c.appKey)
	q.Set("what", req.What)
	q.Set("results_per_page", strconv.Itoa(perPage))
	q.Set("sort_by", "date")
	q.Set("content-type", "application/json")
	if req.Where != "" {
		q.Set("where", req.Where)
	}
	if req.MaxDaysOld > 0 {
		q.Set("max_days_old", strconv.Itoa(req.MaxDaysOld))
	}

	reqURL := fmt.Sprintf("%s/jobs/%s/search/%d?%s", c.baseURL, c.country, page, q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "adzuna: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "adzuna: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "adzuna: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("adzuna: search", resp.StatusCode, body)
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "adzuna: unmarshal response")
	}
	return &result, nil
}
