// Package auth implements the Google OAuth authorization-code flow for the
// CLI: CSRF-protected state, code exchange, and unverified decoding of the
// resulting identity claims. Token verification is the backend's job; this
// client only forwards the claims to the login endpoint.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrStateMismatch is returned when the redirect state fails the CSRF check.
var ErrStateMismatch = errors.New("oauth state mismatch")

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Flow drives one authorization-code login for a tenant.
type Flow struct {
	config oauth2.Config
	tenant string
	csrf   string
}

// NewFlow creates a flow for the tenant alias. A fresh CSRF token is minted
// per flow.
func NewFlow(clientID, clientSecret, redirectURL, tenantAlias string) *Flow {
	return &Flow{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		tenant: tenantAlias,
		csrf:   uuid.New().String(),
	}
}

type statePayload struct {
	Tenant string `json:"tenant"`
	CSRF   string `json:"csrf"`
}

// State encodes the tenant alias and the CSRF token as the OAuth state
// parameter: base64(JSON{tenant, csrf}).
func (f *Flow) State() string {
	data, _ := json.Marshal(statePayload{Tenant: f.tenant, CSRF: f.csrf})
	return base64.StdEncoding.EncodeToString(data)
}

// AuthURL returns the provider authorization URL for this flow.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL(f.State(),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// VerifyState decodes a redirect state parameter and checks it against this
// flow's CSRF token. Returns the tenant alias carried in the state.
func (f *Flow) VerifyState(state string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		return "", fmt.Errorf("decoding state: %w", err)
	}
	var payload statePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("parsing state: %w", err)
	}
	if payload.CSRF != f.csrf {
		return "", ErrStateMismatch
	}
	return payload.Tenant, nil
}

// Exchange trades the authorization code for tokens.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// IdentityClaims are the provider claims the chat backend consumes.
type IdentityClaims struct {
	Subject string
	Email   string
	Name    string
}

// DecodeIDToken extracts identity claims from the id_token without verifying
// the signature: the token was just received over TLS from the provider's
// token endpoint, and the backend revalidates what it needs.
func DecodeIDToken(raw string) (*IdentityClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.Parser{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parsing id_token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("id_token missing sub claim")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &IdentityClaims{Subject: sub, Email: email, Name: name}, nil
}

// IDTokenFromExchange pulls the id_token out of a token response.
func IDTokenFromExchange(tok *oauth2.Token) (string, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("token response missing id_token")
	}
	return raw, nil
}
