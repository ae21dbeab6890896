package services

import (
	"fmt"
	"sort"

	"listings-aggregator/models"
	"listings-aggregator/utils"
)

// MergeStats summarises one reconciliation.
type MergeStats struct {
	Collected  int // rows from the current run
	Existing   int // rows loaded from the snapshot
	Reconciled int // rows after dedup
	NewKeys    int // keys not present in the snapshot
}

// Reconciler merges the current run's batches with the persisted snapshot.
type Reconciler struct {
	logger *utils.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(logger *utils.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile concatenates existing then current rows, keeps the last
// occurrence of each (platform, identifier) key, and sorts by upload_date
// descending. Ties keep their merged order. Neither input is modified.
//
// Current rows win over snapshot rows for the same key purely by position,
// regardless of their upload dates.
func (r *Reconciler) Reconcile(batches []Batch, existing []models.Record) ([]models.Record, MergeStats, error) {
	var current []models.Record
	for _, b := range batches {
		current = append(current, b.Records...)
	}
	stats := MergeStats{Collected: len(current), Existing: len(existing)}
	if len(current) == 0 {
		return nil, stats, ErrNothingCollected
	}
	r.logger.Info("Collected %d records in total", len(current))

	combined := make([]models.Record, 0, len(existing)+len(current))
	combined = append(combined, existing...)
	combined = append(combined, current...)

	for i, rec := range combined {
		if rec.UploadDate.IsZero() {
			return nil, stats, fmt.Errorf("reconcile: row %d (%s/%s) has no upload_date",
				i, rec.Platform.String, rec.Identifier.String)
		}
	}

	if len(existing) > 0 {
		r.logger.Info("Rows before dedup: %d", len(combined))
	}

	last := make(map[models.Key]int, len(combined))
	for i, rec := range combined {
		last[rec.Key()] = i
	}
	reconciled := make([]models.Record, 0, len(last))
	for i, rec := range combined {
		if last[rec.Key()] == i {
			reconciled = append(reconciled, rec)
		}
	}

	if len(existing) > 0 {
		r.logger.Info("Rows after dedup: %d", len(reconciled))
	}

	sort.SliceStable(reconciled, func(i, j int) bool {
		return reconciled[i].UploadDate.After(reconciled[j].UploadDate)
	})

	seen := make(map[models.Key]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.Key()] = struct{}{}
	}
	for k := range last {
		if _, ok := seen[k]; !ok {
			stats.NewKeys++
		}
	}
	stats.Reconciled = len(reconciled)

	return reconciled, stats, nil
}
