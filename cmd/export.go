package cmd

import (
	"github.com/spf13/cobra"

	"listings-aggregator/models"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rebuild the snapshot file from the database",
	Long: `Overwrites SNAPSHOT_PATH with every row of parsed_data, newest upload first.
Use it to restore a lost or corrupt snapshot before the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()

		ctx := cmd.Context()
		pw, err := a.openPostgres(ctx)
		if err != nil {
			return err
		}
		defer pw.Close()

		stored, err := pw.FetchAll(ctx)
		if err != nil {
			return err
		}

		snap := a.snapshot()
		if err := snap.Save(ctx, snapshotRecords(stored)); err != nil {
			return err
		}
		a.logger.Info("Exported %d records to %s", len(stored), snap.Path())
		return nil
	},
}

// snapshotRecords drops database ids and normalises upload dates to
// calendar days.
func snapshotRecords(stored []models.StoredRecord) []models.Record {
	out := make([]models.Record, len(stored))
	for i, s := range stored {
		out[i] = s.Record
		out[i].UploadDate = models.DateOf(s.UploadDate)
	}
	return out
}
