// Package jooble implements the external job-search provider client and the
// normaliser that turns its raw records into canonical job listings.
package jooble

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://jooble.org/api"

	// BatchSize is the fixed number of records requested per provider page.
	BatchSize = 20

	requestTimeout = 30 * time.Second
)

// ErrNotConfigured is returned by Search when no API key is set. Callers
// surface this as a degraded empty result, never a hard failure.
var ErrNotConfigured = errors.New("jooble API key not configured")

// SourceName identifies this provider on stored records.
const SourceName = "Jooble"

// Client posts one search request per page to the Jooble API.
// BaseURL is overridable for tests.
type Client struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewClient constructs a Client with a shared HTTP client and bounded timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// SearchRequest is one provider page request.
type SearchRequest struct {
	Keywords string
	Location string
	Page     int
	Salary   int // minimum salary hint, 0 = unset
}

// JobID is a provider job identifier. Jooble sends ids as JSON numbers or as
// strings depending on the feed, so both forms decode into the text form.
type JobID string

func (id *JobID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = JobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job id: %w", err)
	}
	*id = JobID(n.String())
	return nil
}

func (id JobID) String() string { return string(id) }

// RawJob mirrors a single Jooble result. Every field is free text and may be
// empty; the normaliser owns all defaulting.
type RawJob struct {
	ID       JobID  `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Salary   string `json:"salary"`
	Type     string `json:"type"`
	Snippet  string `json:"snippet"`
	Link     string `json:"link"`
	Source   string `json:"source"`
	Updated  string `json:"updated"`
}

// SearchResponse mirrors the top-level Jooble JSON response.
type SearchResponse struct {
	Jobs       []RawJob `json:"jobs"`
	TotalCount int      `json:"totalCount"`
}

// Search issues one page request. Returns ErrNotConfigured when no key is set.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]string{
		"keywords":     req.Keywords,
		"location":     req.Location,
		"page":         strconv.Itoa(req.Page),
		"ResultOnPage": strconv.Itoa(BatchSize),
	}
	if req.Salary > 0 {
		payload["salary"] = strconv.Itoa(req.Salary)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+c.APIKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jooble returned %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var apiResp SearchResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	return &apiResp, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
