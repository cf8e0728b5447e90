package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"rockerboo/lsp-client-manager/bridge"
)

func buildRequestCmd(opts *options) *cobra.Command {
	var timeout time.Duration
	var open bool
	cmd := &cobra.Command{
		Use:   "request FILE METHOD [PARAMS_JSON]",
		Short: "Send one request to the server for FILE and print the reply",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, method := args[0], args[1]
			var params json.RawMessage
			if len(args) == 3 {
				if !json.Valid([]byte(args[2])) {
					return errors.New("PARAMS_JSON is not valid JSON")
				}
				params = json.RawMessage(args[2])
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return opts.withBridge(ctx, func(ctx context.Context, b *bridge.Bridge) error {
				if _, err := b.StartServer(ctx, path); err != nil {
					return errors.Wrapf(err, "starting server for %s", path)
				}
				if open {
					if _, err := b.OpenFile(ctx, path); err != nil {
						return err
					}
				}

				reply, err := b.Request(ctx, path, method, params)
				if err != nil {
					return err
				}
				if _, err := b.StopServer(ctx, path); err != nil {
					return err
				}

				if reply.IsError() {
					return errors.Newf("%s failed with error %d: %s", method, reply.Error.Code, reply.Error.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(reply.Result))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	cmd.Flags().BoolVar(&open, "open", false, "Open FILE before sending the request")
	return cmd
}
