package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Chat    ChatServiceConfig   `json:"chat"`
	Tenant  TenantServiceConfig `json:"tenant"`
	Session SessionConfig       `json:"session"`
	OAuth   OAuthConfig         `json:"oauth"`
}

// ChatServiceConfig points at the chat backend that owns the WebSocket
// endpoint and the account API.
type ChatServiceConfig struct {
	Host string `env:"CUSTOMERCHAT_CHAT_SERVICE_HOST" json:"host"`
}

// TenantServiceConfig points at the tenant directory service.
type TenantServiceConfig struct {
	Host string `env:"CUSTOMERCHAT_TENANT_SERVICE_HOST" json:"host"`
}

type SessionConfig struct {
	// ReconnectDelaySeconds is the fixed delay between connect attempts.
	ReconnectDelaySeconds int `env:"CUSTOMERCHAT_SESSION_RECONNECT_DELAY" json:"reconnect_delay_seconds"`
	// MaxReconnectAttempts bounds the retry loop; 0 means retry until
	// the session is explicitly disconnected.
	MaxReconnectAttempts int `env:"CUSTOMERCHAT_SESSION_MAX_RECONNECT_ATTEMPTS" json:"max_reconnect_attempts"`
	// HandshakeTimeoutSeconds bounds a single transport handshake.
	HandshakeTimeoutSeconds int `env:"CUSTOMERCHAT_SESSION_HANDSHAKE_TIMEOUT" json:"handshake_timeout_seconds"`
}

type OAuthConfig struct {
	ClientID     string `env:"CUSTOMERCHAT_OAUTH_CLIENT_ID"     json:"client_id"`
	ClientSecret string `env:"CUSTOMERCHAT_OAUTH_CLIENT_SECRET" json:"client_secret"`
	RedirectURL  string `env:"CUSTOMERCHAT_OAUTH_REDIRECT_URL"  json:"redirect_url"`
	// ListenAddr is where the login command listens for the OAuth redirect.
	ListenAddr string `env:"CUSTOMERCHAT_OAUTH_LISTEN_ADDR" json:"listen_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Chat: ChatServiceConfig{
			Host: "http://localhost:8080",
		},
		Tenant: TenantServiceConfig{
			Host: "http://localhost:8081",
		},
		Session: SessionConfig{
			ReconnectDelaySeconds:   5,
			MaxReconnectAttempts:    0,
			HandshakeTimeoutSeconds: 10,
		},
		OAuth: OAuthConfig{
			RedirectURL: "http://localhost:9876/auth/callback",
			ListenAddr:  "localhost:9876",
		},
	}
}

// LoadConfig reads the JSON config at path and overlays CUSTOMERCHAT_* env
// vars. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
