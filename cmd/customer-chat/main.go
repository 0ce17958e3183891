package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal"
	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal/chat"
	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal/login"
	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal/signup"
	"github.com/daiyunwei1998/customer-chat/cmd/customer-chat/internal/version"
)

func NewCustomerChatCommand() *cobra.Command {
	short := fmt.Sprintf("%s customer-chat - Tenant support chat client v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "customer-chat",
		Short:   short,
		Example: "customer-chat chat --tenant acme",
	}

	cmd.AddCommand(
		chat.NewChatCommand(),
		login.NewLoginCommand(),
		signup.NewSignupCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewCustomerChatCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
