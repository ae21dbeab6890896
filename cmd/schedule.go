package cmd

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"listings-aggregator/utils"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the SCHEDULE cron expression until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()

		ctx := cmd.Context()
		p := a.pipeline()
		cl := cronLogger{a.logger.With("component", "scheduler")}

		c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
		if _, err := c.AddFunc(a.cfg.Schedule, func() { a.runOnce(ctx, p) }); err != nil {
			return fmt.Errorf("schedule %q: %w", a.cfg.Schedule, err)
		}

		c.Start()
		next := c.Entries()[0].Next
		a.logger.Info("Scheduler started with %q, next run at %s", a.cfg.Schedule, next.Format("2006-01-02 15:04"))

		<-ctx.Done()
		a.logger.Info("Shutting down scheduler, waiting for a running pass to finish")
		<-c.Stop().Done()
		return nil
	},
}

// cronLogger adapts utils.Logger to cron.Logger.
type cronLogger struct {
	l *utils.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.With(keysAndValues...).Debug("cron: %s", msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.With(keysAndValues...).Error("cron: %s: %v", msg, err)
}
