package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"rockerboo/lsp-client-manager/bridge"
	"rockerboo/lsp-client-manager/mcpserver/tools"
)

func buildCheckCmd(opts *options) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Open files with their servers and print the diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return opts.withBridge(ctx, func(ctx context.Context, b *bridge.Bridge) error {
				out := cmd.OutOrStdout()
				for _, path := range args {
					if _, err := b.StartServer(ctx, path); err != nil {
						return errors.Wrapf(err, "starting server for %s", path)
					}
					if _, err := b.OpenFile(ctx, path); err != nil {
						return err
					}
					diags, err := b.Diagnostics(ctx, path, true)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, tools.FormatDiagnostics(path, diags))
				}

				for _, path := range args {
					msg, err := b.StopServer(ctx, path)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Give up after this long")
	return cmd
}
