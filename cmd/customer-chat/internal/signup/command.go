package signup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal"
	"github.com/daiyunwei1998/customer-chat/pkg/account"
	"github.com/daiyunwei1998/customer-chat/pkg/tenant"
)

func NewSignupCommand() *cobra.Command {
	var tenantAlias string
	var name string
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a customer account with a tenant",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return signupCmd(tenantAlias, name, email, password)
		},
	}

	cmd.Flags().StringVarP(&tenantAlias, "tenant", "t", "", "Tenant alias to sign up with (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (required)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if omitted)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func signupCmd(tenantAlias, name, email, password string) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if password == "" {
		fmt.Print("Password: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("no password entered")
		}
		password = strings.TrimSpace(scanner.Text())
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}
	}

	ctx := context.Background()
	tenantID, err := tenant.NewClient(cfg.Tenant.Host).Find(ctx, tenantAlias)
	if err != nil {
		return fmt.Errorf("error resolving tenant %q: %w", tenantAlias, err)
	}

	err = account.NewClient(cfg.Chat.Host).Register(ctx, tenantID, account.Registration{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     "customer",
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s Account created for %s. Run `customer-chat login -t %s` to log in.\n", internal.Logo, email, tenantAlias)
	return nil
}
