package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the vicrego application
var rootCmd = &cobra.Command{
	Use:   "vicrego",
	Short: "Victorian vehicle registration fee estimator MCP server",
	Long: `vicrego estimates Victorian (AU) vehicle registration, TAC and duty
costs and exposes the estimator as a set of MCP tools over HTTP.

It can run as:
  - An MCP server for AI assistants (default)
  - A one-shot fee snapshot refresher`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "vicrego version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newVersionCmd())
}
