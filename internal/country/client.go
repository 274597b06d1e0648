package country

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public REST Countries host.
const DefaultBaseURL = "https://restcountries.com"

// Fetcher retrieves facts for an ISO 3166-1 alpha-2 code.
type Fetcher interface {
	Fetch(ctx context.Context, iso2 string) (*Info, error)
}

// Client talks to the REST Countries v3.1 API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Fetch calls GET /v3.1/alpha/{iso2} and returns the first record.
// There are no retries.
func (c *Client) Fetch(ctx context.Context, iso2 string) (*Info, error) {
	if len(iso2) != 2 {
		return nil, fmt.Errorf("invalid country code %q", iso2)
	}

	endpoint := c.baseURL + "/v3.1/alpha/" + url.PathEscape(strings.ToUpper(iso2))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", iso2, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", iso2, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", iso2, resp.StatusCode)
	}

	var records []Info
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", iso2, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty response: %w", iso2, ErrNotFound)
	}
	return &records[0], nil
}
