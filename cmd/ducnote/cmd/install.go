package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ducnote/ducnote/internal/core"
	"github.com/ducnote/ducnote/internal/history"
	"github.com/ducnote/ducnote/internal/metrics"
	"github.com/ducnote/ducnote/internal/release"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the application and catalog onto storage, then launch it",
	Long: `Install checks the storage root, clones or updates the application,
installs Python dependencies, reconciles every catalog category, launches
the application and opens a tunnel.

Artifacts already on storage are skipped. A failed artifact is reported and
the run continues; a failed checkout, launch or readiness check aborts it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if err := d.cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		opts := core.RunOptions{}
		opts.SkipDependencies, _ = cmd.Flags().GetBool("skip-deps")
		opts.SkipLaunch, _ = cmd.Flags().GetBool("skip-launch")
		opts.SkipTunnel, _ = cmd.Flags().GetBool("skip-tunnel")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store, err := history.OpenStore(d.config.HistoryPath())
		if err != nil {
			logger.Warn("run history unavailable", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}

		m := metrics.NewPrometheusMetrics()
		sink := core.MultiSink{
			core.NewWriterSink(os.Stdout, os.Stderr, errorFmt),
			core.NewLogSink(logger),
		}

		orch := newOrchestrator(ctx, d.cfg, d.dependencies, sink, m, store)
		res, runErr := orch.Run(ctx, d.catalog.Snapshot(), opts)

		if res != nil {
			if len(res.Records) > 0 {
				fmt.Fprintln(os.Stdout)
				printRecords(res.Records)
			}
			printRunSummary(res)
		}

		if path := v.GetString("metrics-file"); path != "" {
			if err := m.WriteTextfile(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		if saved, err := d.saveSession(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: saving configuration: %v\n", err)
		} else if saved {
			fmt.Fprintf(os.Stdout, "Configuration saved to %s\n", d.config.ConfigPath())
		}

		return runErr
	},
}

// newOrchestrator wires the production collaborators for cfg. store may be
// nil when the history database is unavailable.
func newOrchestrator(ctx context.Context, cfg *core.Config, dependencies []string, sink core.Sink, m core.Metrics, store *history.Store) *core.Orchestrator {
	opts := core.OrchestratorOptions{
		Dependencies: dependencies,
		VCS:          core.NewGitVCS(),
		Fetcher:      core.NewHTTPFetcher(),
		Packages:     core.NewPipInstaller(cfg.Settings.Python),
		Launcher:     core.ExecLauncher{Logger: logger},
		Health:       core.HTTPHealth{},
		Sink:         sink,
		Metrics:      m,
		Logger:       logger,
	}
	if store != nil {
		opts.History = store
	}

	if name := cfg.Settings.Accelerator; name != "" {
		if acc, ok := core.LookupAccelerator(name); ok {
			opts.Accelerator = acc
		} else {
			logger.Warn("download accelerator not available, using built-in transfer", zap.String("name", name))
		}
	}

	if cfg.Settings.TunnelCommand != "" {
		opts.Tunnel = core.ExecTunnel{
			Command: cfg.Settings.TunnelCommand,
			Host:    cfg.Settings.Host,
			Port:    cfg.Settings.Port,
			Pattern: core.DefaultTunnelPattern,
			Logger:  logger,
		}
	}

	if checker, err := release.NewChecker(ctx, cfg.Settings.AppRepo, os.Getenv("GITHUB_TOKEN"), logger); err == nil {
		opts.Releases = checker
	} else {
		logger.Debug("release check disabled", zap.Error(err))
	}

	return core.NewOrchestrator(cfg, opts)
}

func init() {
	installCmd.Flags().Bool("skip-deps", false, "Skip Python dependency installation")
	installCmd.Flags().Bool("skip-launch", false, "Install only; do not launch the application")
	installCmd.Flags().Bool("skip-tunnel", false, "Launch locally without opening a tunnel")
	rootCmd.AddCommand(installCmd)
}
