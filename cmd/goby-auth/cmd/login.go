package cmd

import (
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/spf13/cobra"
)

type credentialFlags struct {
	name     string
	email    string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&c.name, "name", "", "Display name")
	}
	cmd.Flags().StringVar(&c.email, "email", "", "Email address")
	cmd.Flags().StringVar(&c.password, "password", envOr("AUTH_PASSWORD", ""), "Password (defaults to $AUTH_PASSWORD)")
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password. On success the flow navigates to the
redirect path; rejected credentials print "Invalid Credentials".

Examples:
  goby-auth login --email ada@example.com --password secret
  AUTH_PASSWORD=secret goby-auth login --email ada@example.com -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, opts, authflow.IntentLogin, creds)
		},
	}
	creds.bind(cmd, false)
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account and sign in with the same credentials. Navigation
after registration is left to the identity backend.

Example:
  goby-auth register --name Ada --email ada@example.com --password secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, opts, authflow.IntentRegister, creds)
		},
	}
	creds.bind(cmd, true)
	return cmd
}

func submit(cmd *cobra.Command, opts *rootOptions, intent authflow.Intent, creds *credentialFlags) error {
	f := newFlow(cmd, opts, intent)

	record, err := f.validator.Collect(intent, creds.name, creds.email, creds.password)
	if err != nil {
		return err
	}
	if err := f.controller.SubmitFor(f.context(cmd.Context()), intent, record); err != nil {
		return err
	}
	return f.finish()
}
