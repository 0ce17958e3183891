package login

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal"
	"github.com/daiyunwei1998/customer-chat/pkg/account"
	"github.com/daiyunwei1998/customer-chat/pkg/auth"
	"github.com/daiyunwei1998/customer-chat/pkg/logger"
	"github.com/daiyunwei1998/customer-chat/pkg/tenant"
)

const callbackTimeout = 5 * time.Minute

func loginCmd(tenantAlias string, pasteToken, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	ctx := context.Background()
	tenantID, err := tenant.NewClient(cfg.Tenant.Host).Find(ctx, tenantAlias)
	if err != nil {
		return fmt.Errorf("error resolving tenant %q: %w", tenantAlias, err)
	}

	var cred *auth.Credential
	if pasteToken {
		cred, err = auth.LoginPasteToken(tenantID, os.Stdin)
		if err != nil {
			return err
		}
	} else {
		cred, err = browserLogin(ctx, cfg.OAuth.ClientID, cfg.OAuth.ClientSecret,
			cfg.OAuth.RedirectURL, cfg.OAuth.ListenAddr, cfg.Chat.Host, tenantAlias, tenantID)
		if err != nil {
			return err
		}
	}

	cred.TenantAlias = tenantAlias
	if err := auth.SaveCredential(internal.GetCredentialPath(), cred); err != nil {
		return fmt.Errorf("error saving credential: %w", err)
	}

	fmt.Printf("%s Logged in to %s. Credential saved.\n", internal.Logo, tenantAlias)
	return nil
}

func browserLogin(ctx context.Context, clientID, clientSecret, redirectURL, listenAddr, chatHost, tenantAlias, tenantID string) (*auth.Credential, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("oauth client not configured; set it in %s or use --paste-token", internal.GetConfigPath())
	}

	flow := auth.NewFlow(clientID, clientSecret, redirectURL, tenantAlias)

	fmt.Println("Open this URL in your browser to log in:")
	fmt.Printf("\n  %s\n\n", flow.AuthURL())
	fmt.Println("Waiting for the browser redirect...")

	waitCtx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()
	cb, err := auth.WaitForCallback(waitCtx, listenAddr, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("waiting for oauth callback: %w", err)
	}
	if _, err := flow.VerifyState(cb.State); err != nil {
		return nil, err
	}

	tok, err := flow.Exchange(ctx, cb.Code)
	if err != nil {
		return nil, err
	}
	rawID, err := auth.IDTokenFromExchange(tok)
	if err != nil {
		return nil, err
	}
	claims, err := auth.DecodeIDToken(rawID)
	if err != nil {
		return nil, err
	}

	result, err := account.NewClient(chatHost).LoginOAuth(ctx, tenantID, account.OAuthLogin{
		GoogleID:    claims.Subject,
		Email:       claims.Email,
		Name:        claims.Name,
		AccessToken: tok.AccessToken,
	})
	if err != nil {
		return nil, err
	}

	return &auth.Credential{
		Token:      result.Token,
		TenantID:   tenantID,
		Email:      claims.Email,
		AuthMethod: "oauth",
		ObtainedAt: time.Now().UTC(),
	}, nil
}
