package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"listings-aggregator/collectors"
	"listings-aggregator/collectors/airbnb"
	"listings-aggregator/collectors/htmlpage"
	"listings-aggregator/config"
	"listings-aggregator/services"
	"listings-aggregator/storage"
	"listings-aggregator/utils"
)

const httpTimeout = 30 * time.Second

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	sources  *config.Collectors
	registry *collectors.Registry
}

func newApp() (*app, error) {
	cfg := config.Load()
	if collectorsFile != "" {
		cfg.CollectorsFile = collectorsFile
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	logger, err := utils.NewLogger(utils.LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	sources, err := config.LoadCollectors(cfg.CollectorsFile)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg, sources, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, sources: sources, registry: registry}, nil
}

// buildRegistry registers the built-in collectors and one htmlpage collector
// per configured source.
func buildRegistry(cfg *config.Config, sources *config.Collectors, logger *utils.Logger) (*collectors.Registry, error) {
	reg := collectors.NewRegistry()

	err := reg.Register(airbnb.New(airbnb.Options{
		Pages:           cfg.PagesToScrape,
		ListingsPerPage: cfg.ListingsPerPage,
		MaxConcurrency:  cfg.MaxConcurrency,
		RateLimit:       time.Duration(cfg.RateLimitMs) * time.Millisecond,
		MaxRetries:      cfg.MaxRetries,
		ChromeBin:       cfg.ChromeBin,
	}, logger.With("collector", airbnb.Name)))
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: httpTimeout}
	for _, src := range sources.HTMLSources {
		l := logger.With("collector", src.Name)
		retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: time.Second, Logger: l}
		if err := reg.Register(htmlpage.New(src, client, retry, l)); err != nil {
			return nil, fmt.Errorf("html source %q: %w", src.Name, err)
		}
	}
	return reg, nil
}

func (a *app) snapshot() storage.SnapshotStore {
	return storage.NewSnapshotStore(a.cfg.SnapshotPath, a.logger)
}

func (a *app) openPostgres(ctx context.Context) (*storage.PostgresWriter, error) {
	return storage.OpenPostgres(ctx, a.cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: a.cfg.DBRetries,
		BaseDelay:   2 * time.Second,
		Logger:      a.logger,
	})
}

func (a *app) pipeline() *services.Pipeline {
	opener := func(ctx context.Context) (storage.RecordStore, error) {
		pw, err := a.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		return pw, nil
	}
	return services.NewPipeline(a.registry, a.sources.Parsers, a.snapshot(), opener, a.logger)
}

// runOnce executes the pipeline, prints the report and pushes metrics.
func (a *app) runOnce(ctx context.Context, p *services.Pipeline) *services.RunReport {
	a.logger.Info("=== Listings run starting: %d collectors ===", len(a.sources.Parsers))
	report := p.Run(ctx)
	services.PrintReport(os.Stdout, report)

	if a.cfg.PushgatewayURL != "" {
		if err := report.Metrics().Push(a.cfg.PushgatewayURL, a.cfg.MetricsJobName); err != nil {
			a.logger.Warn("Pushing metrics to %s failed: %v", a.cfg.PushgatewayURL, err)
		}
	}
	return report
}
