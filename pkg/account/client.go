// Package account is the client for the chat backend's per-tenant user API:
// registration and OAuth login.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the chat backend account endpoints.
type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(host string) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Registration is the signup payload for a tenant.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

// OAuthLogin carries the identity claims obtained from the OAuth provider.
type OAuthLogin struct {
	GoogleID    string `json:"googleId"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
}

// LoginResult is what the backend hands back on a successful login: a bearer
// token plus whatever session cookies it set.
type LoginResult struct {
	Token   string
	Cookies []*http.Cookie
}

type errorBody struct {
	Message string `json:"message"`
}

// Register creates a user under the tenant via
// POST /api/v1/tenants/{id}/users/register.
func (c *Client) Register(ctx context.Context, tenantID string, reg Registration) error {
	reg.TenantID = tenantID
	endpoint := fmt.Sprintf("%s/api/v1/tenants/%s/users/register", c.host, tenantID)

	resp, err := c.postJSON(ctx, endpoint, tenantID, reg)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("registration failed: %s", apiMessage(resp))
	}
	return nil
}

// LoginOAuth exchanges provider identity claims for a backend session via
// POST /api/v1/tenants/{id}/users/login-oauth.
func (c *Client) LoginOAuth(ctx context.Context, tenantID string, login OAuthLogin) (*LoginResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tenants/%s/users/login-oauth", c.host, tenantID)

	resp, err := c.postJSON(ctx, endpoint, tenantID, login)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("oauth login failed: %s", apiMessage(resp))
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if body.Token == "" {
		return nil, fmt.Errorf("backend did not return a token")
	}

	return &LoginResult{
		Token:   body.Token,
		Cookies: resp.Cookies(),
	}, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, tenantID string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat backend unreachable: %w", err)
	}
	return resp, nil
}

func apiMessage(resp *http.Response) string {
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return body.Message
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
