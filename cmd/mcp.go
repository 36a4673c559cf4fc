package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tinyship/reviewreply/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an agent list reviews, read the reply settings, and draft
replies. Configure it in the client with:

  {
    "mcpServers": {
      "reviewreply": { "command": "reviewreply", "args": ["mcp"] }
    }
  }

Available tools: list_reviews, get_settings, generate_review_reply`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
		defer stop()

		return mcp.NewServer(s, newGenerator(s), buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
