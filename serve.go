package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"rockerboo/lsp-client-manager/bridge"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/mcpserver"
)

func buildServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the LSP tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return opts.withBridge(ctx, func(ctx context.Context, b *bridge.Bridge) error {
				logger.Info("Starting MCP server")
				mcpServer := mcpserver.SetupMCPServer(b)

				errCh := make(chan error, 1)
				go func() { errCh <- server.ServeStdio(mcpServer) }()

				select {
				case err := <-errCh:
					if err != nil {
						return errors.Wrap(err, "MCP server error")
					}
				case <-ctx.Done():
				}
				logger.Info("MCP server stopped")
				return nil
			})
		},
	}
}
