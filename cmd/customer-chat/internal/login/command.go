package login

import (
	"github.com/spf13/cobra"
)

func NewLoginCommand() *cobra.Command {
	var tenantAlias string
	var pasteToken bool
	var debug bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a tenant with Google",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return loginCmd(tenantAlias, pasteToken, debug)
		},
	}

	cmd.Flags().StringVarP(&tenantAlias, "tenant", "t", "", "Tenant alias to log in to (required)")
	cmd.Flags().BoolVar(&pasteToken, "paste-token", false, "Paste an existing session token instead of running the browser flow")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.MarkFlagRequired("tenant")

	return cmd
}
