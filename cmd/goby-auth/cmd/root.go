package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// errFailed signals a failed submission whose reason was already printed.
var errFailed = errors.New("submission failed")

type rootOptions struct {
	backend  string
	redirect string
	clientID string
	format   string
	verbose  bool
}

// NewRootCmd builds the goby-auth command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "goby-auth",
		Short: "Drive the Messenger auth flow from the terminal",
		Long: `goby-auth runs the Messenger login/register flow against an identity
backend, printing notifications and navigations as they happen.

Available commands:
  login          Sign in with email and password
  register       Create an account and sign in
  social         Sign in through an identity provider
  conversation   Show the conversation context for a route

Use "goby-auth [command] --help" for more information about a specific command.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.backend, "backend", envOr("AUTH_BACKEND_URL", "http://localhost:8080"), "Identity backend base URL")
	root.PersistentFlags().StringVar(&opts.redirect, "redirect", envOr("AUTH_REDIRECT_PATH", "/users"), "Path to navigate to after a successful login")
	root.PersistentFlags().StringVar(&opts.clientID, "client-id", "", "Client id sent to the backend (default: random)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "Output format (text, json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log gateway calls and state transitions")

	root.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newSocialCmd(opts),
		newConversationCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			slog.Error("goby-auth failed", "error", err)
		}
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
