package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var errDegraded = errors.New("run degraded and FAIL_ON_DEGRADED is set")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured collector once and write both sinks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()

		report := a.runOnce(cmd.Context(), a.pipeline())
		if a.cfg.FailOnDegraded && report.Degraded() {
			return errDegraded
		}
		return nil
	},
}
