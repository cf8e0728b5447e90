package main

import (
	"os"

	"github.com/spf13/cobra"
)

// BuildRootCmd assembles the command tree.
func BuildRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "lsp-client-manager",
		Short:         "Run and talk to Language Server Protocol servers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the server configuration (TOML)")
	flags.StringVar(&opts.logDir, "log-dir", "", "Directory for the log and server stderr logs")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.BoolVar(&opts.realServer, "real-server", true, "Run the configured servers instead of the built-in test server")
	flags.BoolVar(&opts.protocolLog, "protocol-log", false, "Log every JSON-RPC message")
	flags.StringSliceVar(&opts.allowedDirs, "allow", nil, "Directories whose files may be opened (default: any)")

	rootCmd.AddCommand(buildServeCmd(opts))
	rootCmd.AddCommand(buildCheckCmd(opts))
	rootCmd.AddCommand(buildRequestCmd(opts))
	rootCmd.AddCommand(buildTestServerCmd())

	return rootCmd
}

func main() {
	if err := BuildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
