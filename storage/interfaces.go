package storage

import (
	"context"

	"listings-aggregator/models"
)

// SnapshotStore is the flat-file mirror of the reconciled dataset.
type SnapshotStore interface {
	// Load returns the stored records; ok is false when no snapshot exists yet.
	Load(ctx context.Context) (records []models.Record, ok bool, err error)
	// Save replaces the snapshot with records.
	Save(ctx context.Context, records []models.Record) error
	Path() string
}

// RecordStore is the relational sink.
type RecordStore interface {
	// Upsert inserts or overwrites every record by (platform, identifier)
	// in a single transaction.
	Upsert(ctx context.Context, records []models.Record) error
	Close() error
}
