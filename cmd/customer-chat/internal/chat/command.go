package chat

import (
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var tenantAlias string
	var userID string
	var host string
	var debug bool

	cmd := &cobra.Command{
		Use:     "chat",
		Aliases: []string{"c"},
		Short:   "Open a support chat with a tenant",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return chatCmd(tenantAlias, userID, host, debug)
		},
	}

	cmd.Flags().StringVarP(&tenantAlias, "tenant", "t", "", "Tenant alias to chat with (required)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID to chat as (default: generated guest ID)")
	cmd.Flags().StringVar(&host, "host", "", "Chat backend host (overrides config)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.MarkFlagRequired("tenant")

	return cmd
}
