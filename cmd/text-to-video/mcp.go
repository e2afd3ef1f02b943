package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/benbenbuben/text-to-video-app/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the generate_animation tool over MCP stdio",
	Long: `mcp runs a Model Context Protocol server on stdin/stdout exposing the
generate_animation tool. Logs go to stderr and metrics are disabled so stdout
carries protocol messages only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := setup("mcp", false)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Str("tool", mcpserver.ToolName).Msg("Starting MCP stdio server")
		return mcpserver.Run(ctx, mcpserver.New(a.pipeline, version))
	},
}
