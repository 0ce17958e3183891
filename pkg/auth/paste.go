package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// LoginPasteToken reads a backend session token from r for users who cannot
// complete the browser flow (headless machines, SSH sessions).
func LoginPasteToken(tenantID string, r io.Reader) (*Credential, error) {
	fmt.Printf("Paste your session token for tenant %s:\n", tenantID)
	fmt.Print("> ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		return nil, errors.New("no input received")
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	return &Credential{
		Token:      token,
		TenantID:   tenantID,
		AuthMethod: "token",
		ObtainedAt: time.Now().UTC(),
	}, nil
}
