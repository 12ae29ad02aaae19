// Package mailercloud provides a client for the Mailercloud campaign API.
package mailercloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mailercloud-sync/internal/failure"
)

// DefaultBaseURL is the Mailercloud v1 API root.
const DefaultBaseURL = "https://cloudapi.mailercloud.com/v1"

// Client defines the Mailercloud operations used by the sync.
type Client interface {
	// ListCampaigns returns the data array of one campaign-list page, each
	// element left undecoded.
	ListCampaigns(ctx context.Context, req ListRequest) ([]json.RawMessage, error)
}

// ListRequest is the body of POST /campaign/list.
type ListRequest struct {
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	Limit       int    `json:"limit"`
	Page        int    `json:"page"`
	Search      string `json:"search"`
	SenderEmail string `json:"sender_email"`
	SortField   string `json:"sort_field"`
	SortOrder   string `json:"sort_order"`
	Status      string `json:"status"`
}

// NewListRequest builds the fixed first-page request for a date window:
// 100 campaigns, sorted by name ascending, no search or status filter.
func NewListRequest(from, to string) ListRequest {
	return ListRequest{
		DateFrom:  from,
		DateTo:    to,
		Limit:     100,
		Page:      1,
		SortField: "name",
		SortOrder: "asc",
	}
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Option configures the Mailercloud client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Mailercloud client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCampaigns performs exactly one POST. It does not retry: a transport
// failure, a non-200 status or an undecodable body ends the call.
func (c *httpClient) ListCampaigns(ctx context.Context, lr ListRequest) ([]json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, failure.NewConfigurationError("mailercloud.api_key", "not set")
	}

	payload, err := json.Marshal(lr)
	if err != nil {
		return nil, eris.Wrap(err, "mailercloud: marshal list request")
	}

	reqURL := c.baseURL + "/campaign/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "mailercloud: create request")
	}

	// Mailercloud takes the bare key, not a bearer token.
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	zap.L().Debug("mailercloud: listing campaigns",
		zap.String("url", reqURL),
		zap.String("date_from", lr.DateFrom),
		zap.String("date_to", lr.DateTo),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &failure.TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &failure.TransportError{URL: reqURL, Err: eris.Wrap(err, "read response body")}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &failure.RemoteAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result listResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &failure.RemoteAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	zap.L().Debug("mailercloud: campaigns received", zap.Int("count", len(result.Data)))
	return result.Data, nil
}
