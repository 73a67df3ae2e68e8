package cmd

import (
	"strings"

	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/spf13/cobra"
)

func newSocialCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "social <provider>",
		Short: "Sign in through an identity provider",
		Long: `Sign in through an identity provider such as github or google. The
backend announces the new session; this command does not navigate.

Example:
  goby-auth social github --client-id my-terminal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFlow(cmd, opts, authflow.IntentLogin)
			provider := strings.ToLower(strings.TrimSpace(args[0]))
			if err := f.controller.SocialSubmit(f.context(cmd.Context()), provider); err != nil {
				return err
			}
			return f.finish()
		},
	}
}
