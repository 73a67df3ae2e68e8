package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/nfrund/goby-messenger/internal/conversation"
	"github.com/nfrund/goby-messenger/internal/navigation"
	"github.com/spf13/cobra"
)

func newConversationCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conversation [id]",
		Short: "Show the conversation context for a route",
		Long: `Show which conversation a /conversations route selects. Without an id
no conversation is open.

Examples:
  goby-auth conversation          # isOpen=false
  goby-auth conversation c-42     # isOpen=true`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := navigation.RouteParameters{}
			if len(args) == 1 {
				params[conversation.ParamKey] = args[0]
			}
			ctx := conversation.Resolve(params)

			out := cmd.OutOrStdout()
			if opts.format == "json" {
				return json.NewEncoder(out).Encode(ctx)
			}
			fmt.Fprintf(out, "conversationId=%q isOpen=%t\n", ctx.ConversationID, ctx.IsOpen)
			return nil
		},
	}
}
