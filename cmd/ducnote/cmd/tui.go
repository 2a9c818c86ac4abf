package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ducnote/ducnote/internal/core"
	"github.com/ducnote/ducnote/internal/history"
	"github.com/ducnote/ducnote/internal/metrics"
	"github.com/ducnote/ducnote/internal/tui"
)

// runTUI opens the interactive catalog editor.
func runTUI(ctx context.Context) error {
	d, err := newDeps()
	if err != nil {
		return err
	}

	store, err := history.OpenStore(d.config.HistoryPath())
	if err != nil {
		logger.Warn("run history unavailable", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}
	m := metrics.NewPrometheusMetrics()

	err = tui.Run(ctx, tui.Options{
		Config:  d.config,
		Stored:  d.stored,
		Catalog: d.catalog,
		Effective: func(stored *core.Config) *core.Config {
			cfg := *stored
			applyOverrides(&cfg)
			return &cfg
		},
		NewOrchestrator: func(cfg *core.Config, sink core.Sink) *core.Orchestrator {
			return newOrchestrator(ctx, cfg, d.dependencies, core.MultiSink{sink, core.NewLogSink(logger)}, m, store)
		},
		Probe:   core.HeadProbe{Fetcher: core.NewHTTPFetcher()},
		Logger:  logger,
		Version: Version,
	})
	if err != nil {
		return fmt.Errorf("running interface: %w", err)
	}

	if path := v.GetString("metrics-file"); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	if _, err := d.saveSession(); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	return nil
}
