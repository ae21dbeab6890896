// Package metrics records per-run pipeline metrics and optionally pushes them
// to a Prometheus Pushgateway, since a batch run is gone before any scrape.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run holds the metrics of one pipeline run.
type Run struct {
	registry *prometheus.Registry

	collectorRows     *prometheus.GaugeVec
	collectorFailures *prometheus.GaugeVec
	reconciledRows    prometheus.Gauge
	newKeys           prometheus.Gauge
	sinkSuccess       *prometheus.GaugeVec
	lastRun           prometheus.Gauge
}

// NewRun creates a fresh metric set on its own registry.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Run{
		registry: reg,
		collectorRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "listings_collector_rows",
			Help: "Rows returned by each collector in the last run",
		}, []string{"collector"}),
		collectorFailures: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "listings_collector_failed",
			Help: "1 if the collector failed or returned no data in the last run",
		}, []string{"collector"}),
		reconciledRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "listings_reconciled_rows",
			Help: "Rows in the reconciled dataset after the last run",
		}),
		newKeys: f.NewGauge(prometheus.GaugeOpts{
			Name: "listings_new_keys",
			Help: "Keys first seen in the last run",
		}),
		sinkSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "listings_sink_success",
			Help: "1 if the sink was written successfully in the last run",
		}, []string{"sink"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "listings_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Collector records one collector's outcome.
func (r *Run) Collector(name string, rows int, failed bool) {
	r.collectorRows.WithLabelValues(name).Set(float64(rows))
	r.collectorFailures.WithLabelValues(name).Set(boolGauge(failed))
}

// Reconciled records the size of the merged dataset.
func (r *Run) Reconciled(rows, newKeys int) {
	r.reconciledRows.Set(float64(rows))
	r.newKeys.Set(float64(newKeys))
}

// Sink records whether a sink write succeeded.
func (r *Run) Sink(name string, ok bool) {
	r.sinkSuccess.WithLabelValues(name).Set(boolGauge(ok))
}

// Finish stamps the run completion time.
func (r *Run) Finish() {
	r.lastRun.SetToCurrentTime()
}

// Gatherer exposes the registry, mainly for tests.
func (r *Run) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends the metrics to the Pushgateway at url under job.
func (r *Run) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
