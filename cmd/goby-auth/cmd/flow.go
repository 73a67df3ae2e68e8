package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/gateway"
	"github.com/nfrund/goby-messenger/internal/navigation"
	"github.com/nfrund/goby-messenger/internal/notify"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
	"github.com/spf13/cobra"
)

// flow is one terminal auth screen: a controller talking to the HTTP
// gateway, with notifications collected for printing.
type flow struct {
	opts       *rootOptions
	out        io.Writer
	clientID   string
	mailbox    *notify.Mailbox
	navigator  *navigation.Screen
	controller *authflow.Controller
	validator  *authflow.Validator
}

type report struct {
	ClientID      string                `json:"clientId"`
	Intent        authflow.Intent       `json:"intent"`
	Notifications []notify.Notification `json:"notifications"`
	Navigations   []string              `json:"navigations"`
}

func newFlow(cmd *cobra.Command, opts *rootOptions, intent authflow.Intent) *flow {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	clientID := opts.clientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	f := &flow{
		opts:      opts,
		out:       cmd.OutOrStdout(),
		clientID:  clientID,
		mailbox:   notify.NewMailbox(),
		validator: authflow.NewValidator(),
	}
	f.navigator = navigation.NewScreen(navigation.WithListener(func(path string) {
		logger.Debug("Navigate", "path", path)
	}))

	gw := gateway.New(opts.backend)
	sink := notify.Multi{f.mailbox, notify.NewLogSink(logger)}
	f.controller = authflow.NewController(gw, gw, sink, f.navigator,
		authflow.WithIntent(intent),
		authflow.WithRedirectPath(opts.redirect),
		authflow.WithLogger(logger),
	)
	return f
}

func (f *flow) context(ctx context.Context) context.Context {
	return sessionwatch.WithClientID(ctx, f.clientID)
}

// finish prints what the submission produced and reports failure when any
// error notification was raised.
func (f *flow) finish() error {
	r := report{
		ClientID:      f.clientID,
		Intent:        f.controller.Intent(),
		Notifications: f.mailbox.Drain(),
		Navigations:   f.navigator.History(),
	}

	if err := f.print(r); err != nil {
		return err
	}
	for _, n := range r.Notifications {
		if n.Level == notify.LevelError {
			return errFailed
		}
	}
	return nil
}

func (f *flow) print(r report) error {
	if f.opts.format == "json" {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	for _, n := range r.Notifications {
		mark := "✓"
		if n.Level == notify.LevelError {
			mark = "✗"
		}
		fmt.Fprintf(f.out, "%s %s\n", mark, n.Message)
	}
	for _, path := range r.Navigations {
		fmt.Fprintf(f.out, "→ %s\n", path)
	}
	return nil
}
