package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"listings-aggregator/collectors"
	"listings-aggregator/models"
	"listings-aggregator/utils"
)

// CollectorLookup resolves a collector by name.
type CollectorLookup interface {
	Lookup(name string) (collectors.Collector, error)
}

// Batch is one collector's normalised output for the current run.
type Batch struct {
	Collector string
	Records   []models.Record
}

// CollectorResult records how one collector fared in a run.
type CollectorResult struct {
	Name string
	Rows int
	Err  error
}

// Runner invokes collectors by name and isolates their failures.
type Runner struct {
	lookup CollectorLookup
	logger *utils.Logger
}

// NewRunner creates a Runner resolving names against lookup.
func NewRunner(lookup CollectorLookup, logger *utils.Logger) *Runner {
	return &Runner{lookup: lookup, logger: logger}
}

// Run invokes the named collector and returns its normalised table, or nil
// when the collector is unknown, fails, panics or returns no table. Failures
// are logged, never returned.
func (r *Runner) Run(ctx context.Context, name string) *models.Table {
	t, _ := r.collect(ctx, name)
	return t
}

// collect runs one collector and logs its failure.
func (r *Runner) collect(ctx context.Context, name string) (*models.Table, error) {
	t, err := r.run(ctx, name)
	if err != nil {
		r.logger.Error("Collector %s failed: %v", name, err)
		return nil, err
	}
	return t, nil
}

func (r *Runner) run(ctx context.Context, name string) (t *models.Table, err error) {
	c, err := r.lookup.Lookup(name)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			t = nil
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()

	raw, err := c.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: collector returned no table", collectors.ErrInvalidResult)
	}

	t = Normalize(raw)
	r.logger.Info("Collector %s returned %d records", name, t.Len())
	return t, nil
}

// RunAll runs names sequentially in order. Each non-empty result is stamped
// with uploadDate and returned as a batch; every collector gets a result
// entry whether it produced data or not.
func (r *Runner) RunAll(ctx context.Context, names []string, uploadDate time.Time) ([]Batch, []CollectorResult) {
	var batches []Batch
	results := make([]CollectorResult, 0, len(names))

	for _, name := range names {
		r.logger.Info("Starting collector: %s", name)

		t, err := r.collect(ctx, name)
		if err != nil {
			results = append(results, CollectorResult{Name: name, Err: err})
			continue
		}
		if t.Len() == 0 {
			r.logger.Warn("Collector %s returned no data", name)
			results = append(results, CollectorResult{Name: name, Err: ErrNoData})
			continue
		}

		records := models.RecordsFromTable(t)
		for i := range records {
			records[i].UploadDate = uploadDate
		}
		batches = append(batches, Batch{Collector: name, Records: records})
		results = append(results, CollectorResult{Name: name, Rows: len(records)})
		r.logger.Info("Added %d records from collector %s", len(records), name)
	}

	return batches, results
}
