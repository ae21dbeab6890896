package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"listings-aggregator/metrics"
	"listings-aggregator/models"
	"listings-aggregator/storage"
	"listings-aggregator/utils"
)

// StoreOpener acquires the relational sink for one run.
type StoreOpener func(ctx context.Context) (storage.RecordStore, error)

// PlatformCounter is implemented by stores that can report their row counts.
type PlatformCounter interface {
	CountByPlatform(ctx context.Context) (map[string]int, error)
}

// Pipeline runs collectors, reconciles their output with the snapshot and
// writes the result to both sinks.
type Pipeline struct {
	lookup     CollectorLookup
	collectors []string
	snapshot   storage.SnapshotStore
	openStore  StoreOpener
	logger     *utils.Logger
	now        func() time.Time
}

// NewPipeline wires a pipeline. collectors is the configured run order.
func NewPipeline(
	lookup CollectorLookup,
	collectors []string,
	snapshot storage.SnapshotStore,
	openStore StoreOpener,
	logger *utils.Logger,
) *Pipeline {
	return &Pipeline{
		lookup:     lookup,
		collectors: collectors,
		snapshot:   snapshot,
		openStore:  openStore,
		logger:     logger,
		now:        time.Now,
	}
}

// RunReport describes the outcome of one run.
type RunReport struct {
	RunID      string
	UploadDate time.Time
	Collectors []CollectorResult
	Merge      MergeStats
	Records    []models.Record

	// MergeErr is set when the run stopped before any sink was written,
	// including ErrNothingCollected.
	MergeErr    error
	SnapshotErr error
	StoreErr    error

	// StoredByPlatform is the relational row count per platform after the
	// upsert, when the store can report it.
	StoredByPlatform map[string]int
}

// SinksWritten reports whether the sinks were reached and each succeeded.
func (r *RunReport) SinksWritten() (snapshot, store bool) {
	if r.MergeErr != nil {
		return false, false
	}
	return r.SnapshotErr == nil, r.StoreErr == nil
}

// Degraded is true when any collector, the merge or a sink failed.
func (r *RunReport) Degraded() bool {
	for _, c := range r.Collectors {
		if c.Err != nil {
			return true
		}
	}
	return r.MergeErr != nil || r.SnapshotErr != nil || r.StoreErr != nil
}

// Metrics converts the report into a metric set ready to push.
func (r *RunReport) Metrics() *metrics.Run {
	m := metrics.NewRun()
	for _, c := range r.Collectors {
		m.Collector(c.Name, c.Rows, c.Err != nil)
	}
	m.Reconciled(r.Merge.Reconciled, r.Merge.NewKeys)
	snapshotOK, storeOK := r.SinksWritten()
	m.Sink("snapshot", snapshotOK)
	m.Sink("postgres", storeOK)
	m.Finish()
	return m
}

// Run executes one full pass. Failures are logged and recorded in the
// report; nothing is returned as an error.
func (p *Pipeline) Run(ctx context.Context) *RunReport {
	report := &RunReport{
		RunID:      uuid.NewString(),
		UploadDate: models.DateOf(p.now()),
	}
	logger := p.logger.With("run_id", report.RunID)

	batches, results := NewRunner(p.lookup, logger).RunAll(ctx, p.collectors, report.UploadDate)
	report.Collectors = results

	if len(batches) == 0 {
		report.MergeErr = ErrNothingCollected
		logger.Warn("No data to save")
		return report
	}

	existing, ok, err := p.snapshot.Load(ctx)
	if err != nil {
		report.MergeErr = err
		logger.Error("Loading snapshot %s failed, nothing written: %v", p.snapshot.Path(), err)
		return report
	}
	if ok {
		logger.Info("Loaded %d existing records from %s", len(existing), p.snapshot.Path())
	} else {
		logger.Info("No snapshot at %s, a new one will be created", p.snapshot.Path())
	}

	records, stats, err := NewReconciler(logger).Reconcile(batches, existing)
	report.Merge = stats
	if err != nil {
		report.MergeErr = err
		logger.Error("Merge failed, nothing written: %v", err)
		return report
	}
	report.Records = records

	report.SnapshotErr = p.writeSnapshot(ctx, logger, records)
	report.StoreErr = p.writeStore(ctx, logger, report, records)

	if snapshotOK, storeOK := report.SinksWritten(); snapshotOK != storeOK {
		logger.Warn("Sinks out of sync this run (snapshot ok: %t, postgres ok: %t); the next successful run re-writes both",
			snapshotOK, storeOK)
	}
	return report
}

func (p *Pipeline) writeSnapshot(ctx context.Context, logger *utils.Logger, records []models.Record) error {
	if err := p.snapshot.Save(ctx, records); err != nil {
		logger.Error("Writing snapshot %s failed: %v", p.snapshot.Path(), err)
		return err
	}
	logger.Info("Saved %d records to %s", len(records), p.snapshot.Path())
	return nil
}

func (p *Pipeline) writeStore(ctx context.Context, logger *utils.Logger, report *RunReport, records []models.Record) error {
	if p.openStore == nil {
		return errors.New("no relational store configured")
	}

	store, err := p.openStore(ctx)
	if err != nil {
		logger.Error("Opening database failed: %v", err)
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("Closing database: %v", closeErr)
		}
	}()

	if err := store.Upsert(ctx, records); err != nil {
		logger.Error("Database upsert failed, transaction rolled back: %v", err)
		return err
	}
	logger.Info("Upserted %d records into the database", len(records))

	if counter, ok := store.(PlatformCounter); ok {
		counts, err := counter.CountByPlatform(ctx)
		if err != nil {
			logger.Warn("Counting stored rows: %v", err)
		} else {
			report.StoredByPlatform = counts
		}
	}
	return nil
}
