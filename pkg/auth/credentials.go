package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Credential is a persisted backend session for one tenant.
type Credential struct {
	Token       string    `json:"token"`
	TenantID    string    `json:"tenant_id"`
	TenantAlias string    `json:"tenant_alias,omitempty"`
	Email       string    `json:"email,omitempty"`
	AuthMethod  string    `json:"auth_method"` // "oauth" or "token"
	ObtainedAt  time.Time `json:"obtained_at"`
}

// SaveCredential writes the credential to path with owner-only permissions.
func SaveCredential(path string, cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCredential reads a previously saved credential. A missing file returns
// (nil, nil) so callers can fall back to anonymous chat.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}
