// Package tenant is the client for the tenant directory service, which maps
// human-readable aliases (subdomains) to backend tenant IDs.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound means the alias has no tenant mapping. Retrying with the same
// alias cannot succeed.
var ErrNotFound = errors.New("tenant not found")

// ErrUnavailable means the directory could not answer (network failure or
// backend error).
var ErrUnavailable = errors.New("tenant directory unavailable")

// Client talks to the tenant directory HTTP API.
type Client struct {
	host       string
	httpClient *http.Client
}

// NewClient creates a directory client for the given base host,
// e.g. "https://tenant.example.com".
func NewClient(host string) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

type findResponse struct {
	Data struct {
		TenantID string `json:"tenant_id"`
	} `json:"data"`
	Message string `json:"message"`
}

// Find resolves an alias to a tenant ID via GET /api/v1/tenants/find.
func (c *Client) Find(ctx context.Context, alias string) (string, error) {
	return c.lookup(ctx, "/api/v1/tenants/find", alias)
}

// Check verifies an alias mapping via GET /api/v1/tenants/check. Same
// response shape as Find; the backend distinguishes the two for auditing.
func (c *Client) Check(ctx context.Context, alias string) (string, error) {
	return c.lookup(ctx, "/api/v1/tenants/check", alias)
}

func (c *Client) lookup(ctx context.Context, path, alias string) (string, error) {
	endpoint := fmt.Sprintf("%s%s?alias=%s", c.host, path, url.QueryEscape(alias))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building tenant lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var body findResponse
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("alias %q: %w", alias, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrUnavailable, body.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if body.Data.TenantID == "" {
		return "", fmt.Errorf("alias %q: %w", alias, ErrNotFound)
	}
	return body.Data.TenantID, nil
}
