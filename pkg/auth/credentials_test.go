package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredential_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	saved := &Credential{
		Token:       "jwt-xyz",
		TenantID:    "tenant-42",
		TenantAlias: "acme",
		Email:       "jo@example.com",
		AuthMethod:  "oauth",
		ObtainedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := SaveCredential(path, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	loaded, err := LoadCredential(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Token != saved.Token || loaded.TenantID != saved.TenantID {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if !loaded.ObtainedAt.Equal(saved.ObtainedAt) {
		t.Errorf("timestamp mismatch: %v vs %v", loaded.ObtainedAt, saved.ObtainedAt)
	}
}

func TestLoadCredential_Missing(t *testing.T) {
	cred, err := LoadCredential(filepath.Join(t.TempDir(), "credentials.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred != nil {
		t.Errorf("expected nil for missing file, got %+v", cred)
	}
}

func TestLoginPasteToken(t *testing.T) {
	cred, err := LoginPasteToken("tenant-42", strings.NewReader("  jwt-xyz  \n"))
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if cred.Token != "jwt-xyz" {
		t.Errorf("token not trimmed: %q", cred.Token)
	}
	if cred.TenantID != "tenant-42" || cred.AuthMethod != "token" {
		t.Errorf("unexpected credential: %+v", cred)
	}
}

func TestLoginPasteToken_Empty(t *testing.T) {
	if _, err := LoginPasteToken("tenant-42", strings.NewReader("\n")); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := LoginPasteToken("tenant-42", strings.NewReader("")); err == nil {
		t.Error("expected error for no input")
	}
}
