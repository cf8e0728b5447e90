package main

import (
	"os"

	"github.com/spf13/cobra"

	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/testserver"
)

func buildTestServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "test-server",
		Short:  "Run the minimal language server used when real servers are disabled",
		Args:   cobra.NoArgs,
		Hidden: true,
		Run: func(cmd *cobra.Command, args []string) {
			code := testserver.Serve(cmd.Context(), lsp.NewStdioStream(os.Stdout, os.Stdin), os.Stderr)
			os.Exit(code)
		},
	}
}
