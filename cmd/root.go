// Package cmd implements the command-line interface for the listings aggregator.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// collectorsFile overrides COLLECTORS_CONFIG when set.
	collectorsFile string

	// debug forces debug-level logging.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "listings-aggregator",
		Short: "Collects property listings and keeps a reconciled snapshot",
		Long: `Runs the configured collectors, merges their output with the previous
snapshot and writes the result to an xlsx file and to PostgreSQL.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command. SIGINT and SIGTERM cancel the context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&collectorsFile, "config", "",
		"collector file (default is $COLLECTORS_CONFIG or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(collectorsCmd)
	rootCmd.AddCommand(exportCmd)
}
