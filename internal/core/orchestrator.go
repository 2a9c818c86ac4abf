package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("an installation run is already in progress")

// ExtensionsCategory holds extension repositories whose requirements are installed.
const ExtensionsCategory = "custom-extensions"

// ReleaseSource reports the latest published release of the application.
type ReleaseSource interface {
	LatestRelease(ctx context.Context) (string, error)
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	Record(result *RunResult) error
}

// Orchestrator sequences an end-to-end run: storage check, application
// checkout, dependencies, artifact reconciliation, launch, readiness, tunnel.
type Orchestrator struct {
	cfg          *Config
	dependencies []string

	vcs         VCS
	fetcher     Fetcher
	accelerator Accelerator
	packages    PackageInstaller
	launcher    Launcher
	health      HealthChecker
	tunnel      Tunnel
	releases    ReleaseSource
	history     RunRecorder
	sink        Sink
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time

	readyInterval time.Duration
	running       atomic.Bool
}

// OrchestratorOptions wires an Orchestrator's collaborators. VCS, Fetcher,
// Packages, Launcher and Health are required; the rest are optional.
type OrchestratorOptions struct {
	Dependencies  []string
	VCS           VCS
	Fetcher       Fetcher
	Accelerator   Accelerator
	Packages      PackageInstaller
	Launcher      Launcher
	Health        HealthChecker
	Tunnel        Tunnel
	Releases      ReleaseSource
	History       RunRecorder
	Sink          Sink
	Metrics       Metrics
	Logger        *zap.Logger
	Now           func() time.Time
	ReadyInterval time.Duration
}

// RunOptions narrows a single run.
type RunOptions struct {
	SkipDependencies bool
	SkipLaunch       bool
	SkipTunnel       bool
}

// NewOrchestrator creates an Orchestrator for cfg.
func NewOrchestrator(cfg *Config, opts OrchestratorOptions) *Orchestrator {
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = time.Second
	}
	return &Orchestrator{
		cfg:           cfg,
		dependencies:  opts.Dependencies,
		vcs:           opts.VCS,
		fetcher:       opts.Fetcher,
		accelerator:   opts.Accelerator,
		packages:      opts.Packages,
		launcher:      opts.Launcher,
		health:        opts.Health,
		tunnel:        opts.Tunnel,
		releases:      opts.Releases,
		history:       opts.History,
		sink:          opts.Sink,
		metrics:       opts.Metrics,
		logger:        opts.Logger.Named("orchestrator"),
		now:           opts.Now,
		readyInterval: opts.ReadyInterval,
	}
}

// Run executes one orchestration run against a catalog snapshot. Only one
// run may be active at a time; a concurrent call returns ErrRunInProgress.
// A fatal step failure is returned as the error and recorded on the result.
func (o *Orchestrator) Run(ctx context.Context, snap Snapshot, opts RunOptions) (*RunResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	res := &RunResult{
		ID:        id.String(),
		Port:      o.cfg.Settings.Port,
		StartedAt: o.now(),
	}
	logger := o.logger.With(zap.String("run", res.ID))
	logger.Info("run started", zap.Int("locators", snap.Len()))

	err = o.run(ctx, snap, opts, res)
	res.FinishedAt = o.now()
	if err != nil {
		res.Err = err
		if res.Outcome == "" {
			res.Outcome = RunAborted
		}
		o.sink.Error(err.Error())
	}
	o.metrics.ObserveRun(res.Outcome)

	if o.history != nil {
		if herr := o.history.Record(res); herr != nil {
			logger.Warn("recording run history", zap.Error(herr))
		}
	}
	logger.Info("run finished",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("installed", res.Count(OutcomeInstalled)),
		zap.Int("present", res.Count(OutcomeAlreadyPresent)),
		zap.Int("failed", res.Count(OutcomeFailed)),
	)
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, snap Snapshot, opts RunOptions, res *RunResult) error {
	// 1. Storage root.
	var dest string
	if err := o.step("storage", func() error {
		root := StorageRootOf(o.cfg)
		o.sink.Progress(fmt.Sprintf("Checking storage root %s", root))
		if err := EnsureStorage(ctx, root, o.cfg.Settings.MountCommand); err != nil {
			return err
		}
		d, err := ResolveDestination(o.cfg, o.now())
		if err != nil {
			return err
		}
		dest = d
		res.Destination = d
		return nil
	}); err != nil {
		return err
	}

	// 2. Application checkout.
	if err := o.step("checkout", func() error {
		o.reportLatestRelease(ctx)
		return o.syncApplication(ctx, dest)
	}); err != nil {
		return err
	}

	// 3. Runtime dependencies.
	if !opts.SkipDependencies {
		_ = o.step("dependencies", func() error {
			o.sink.Progress("Installing dependencies")
			for _, w := range InstallDependencies(ctx, o.packages, o.dependencies, filepath.Join(dest, "requirements.txt")) {
				o.warn(res, w)
			}
			return nil
		})
	}

	// 4. Category tree.
	resolver := NewResolver(dest, snap.Categories, o.cfg.Settings.WorkflowDir, NewClassifier(o.cfg.Settings.HostingDomains))
	if err := o.step("directories", func() error {
		for _, d := range resolver.Dirs() {
			if err := ensureDir(d); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	o.reportFreeSpace(dest)

	// 5. Artifacts.
	_ = o.step("artifacts", func() error {
		o.installArtifacts(ctx, resolver, snap, opts, res)
		return nil
	})
	o.sink.Progress(fmt.Sprintf("Artifacts: %d installed, %d already present, %d failed",
		res.Count(OutcomeInstalled), res.Count(OutcomeAlreadyPresent), res.Count(OutcomeFailed)))

	if opts.SkipLaunch {
		res.Outcome = RunInstalled
		return nil
	}

	// 6. Launch.
	var proc Process
	localURL := fmt.Sprintf("http://%s:%d", o.cfg.Settings.Host, o.cfg.Settings.Port)
	if err := o.step("launch", func() error {
		argv := []string{o.cfg.Settings.Python, "main.py", "--listen", o.cfg.Settings.Host, "--port", strconv.Itoa(o.cfg.Settings.Port)}
		o.sink.Progress(fmt.Sprintf("Starting application: %s", strings.Join(argv, " ")))
		p, err := o.launcher.Launch(dest, argv)
		if err != nil {
			return err
		}
		proc = p
		return nil
	}); err != nil {
		return err
	}

	// 7. Readiness.
	if err := o.step("readiness", func() error {
		timeout := time.Duration(o.cfg.Settings.ReadyTimeoutSeconds) * time.Second
		o.sink.Progress(fmt.Sprintf("Waiting for %s (up to %s)", localURL, timeout))
		if err := WaitReady(ctx, o.health, localURL, proc, o.readyInterval, timeout); err != nil {
			o.surfaceOutput(proc)
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	o.sink.Progress(fmt.Sprintf("Application is ready at %s", localURL))

	// 8. Tunnel.
	res.Outcome = RunLocalOnly
	if opts.SkipTunnel || o.tunnel == nil {
		o.sink.Progress(fmt.Sprintf("No tunnel requested; the application listens on port %d", o.cfg.Settings.Port))
		return nil
	}
	_ = o.step("tunnel", func() error {
		o.sink.Progress("Opening tunnel")
		u, err := o.tunnel.Open(ctx, localURL)
		if err != nil {
			o.sink.Error(fmt.Sprintf("tunnel: %v", err))
			o.sink.Progress(fmt.Sprintf("Find the application manually on port %d", o.cfg.Settings.Port))
			return nil
		}
		res.PublicURL = u
		res.Outcome = RunPublic
		o.sink.Progress(fmt.Sprintf("Public URL: %s", u))
		return nil
	})
	return nil
}

// syncApplication clones the application into dest or fast-forwards an
// existing checkout. A failed update removes dest and clones again once.
func (o *Orchestrator) syncApplication(ctx context.Context, dest string) error {
	repo := o.cfg.Settings.AppRepo
	ref := o.cfg.AppRef()

	if !dirNonEmpty(dest) {
		o.sink.Progress(fmt.Sprintf("Cloning %s into %s", repo, dest))
		if err := o.vcs.Clone(ctx, repo, dest, ref, true); err != nil {
			return fmt.Errorf("cloning application: %w", err)
		}
		return nil
	}

	o.sink.Progress(fmt.Sprintf("Updating %s", dest))
	err := o.vcs.Update(ctx, dest)
	if err == nil {
		return nil
	}

	o.sink.Error(fmt.Sprintf("update failed, re-cloning: %v", err))
	if rerr := os.RemoveAll(dest); rerr != nil {
		return fmt.Errorf("removing %s: %w", dest, rerr)
	}
	if err := o.vcs.Clone(ctx, repo, dest, ref, true); err != nil {
		return fmt.Errorf("re-cloning application: %w", err)
	}
	return nil
}

func (o *Orchestrator) installArtifacts(ctx context.Context, resolver *Resolver, snap Snapshot, opts RunOptions, res *RunResult) {
	installer := NewInstaller(resolver, InstallerOptions{
		VCS:         o.vcs,
		Fetcher:     o.fetcher,
		Accelerator: o.accelerator,
		Sink:        o.sink,
		Metrics:     o.metrics,
		Logger:      o.logger,
		Concurrency: o.cfg.Concurrency,
	})

	var required []string
	for _, cat := range snap.Categories {
		locators := snap.Entries[cat.Key]
		if len(locators) == 0 {
			continue
		}
		o.sink.Progress(fmt.Sprintf("%s: %d item(s)", cat.Label, len(locators)))
		records := installer.InstallCategory(ctx, cat.Key, locators)
		res.Records = append(res.Records, records...)

		for _, rec := range records {
			if rec.Outcome == OutcomeFailed {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", rec.Locator, rec.Err))
			}
			required = append(required, rec.RequiredExtensions...)
			if cat.Key == ExtensionsCategory && rec.Outcome == OutcomeInstalled && !opts.SkipDependencies {
				o.installExtensionRequirements(ctx, rec.Path, res)
			}
		}
	}

	for _, missing := range MissingExtensions(dedupe(required), snap.Entries[ExtensionsCategory]) {
		o.warn(res, fmt.Sprintf("a workflow needs extension %s, which is not in the catalog", missing))
	}
}

func (o *Orchestrator) installExtensionRequirements(ctx context.Context, dir string, res *RunResult) {
	req := filepath.Join(dir, "requirements.txt")
	if !fileExists(req) {
		return
	}
	o.sink.Progress(fmt.Sprintf("Installing requirements of %s", filepath.Base(dir)))
	for _, w := range InstallDependencies(ctx, o.packages, nil, req) {
		o.warn(res, w)
	}
}

func (o *Orchestrator) reportLatestRelease(ctx context.Context) {
	if o.releases == nil || o.cfg.AppVersion != VersionLatest {
		return
	}
	tag, err := o.releases.LatestRelease(ctx)
	if err != nil {
		o.logger.Debug("latest release lookup failed", zap.Error(err))
		return
	}
	o.sink.Progress(fmt.Sprintf("Latest application release: %s", tag))
}

func (o *Orchestrator) reportFreeSpace(dest string) {
	free, err := FreeSpace(dest)
	if err != nil {
		o.logger.Debug("free space check failed", zap.Error(err))
		return
	}
	o.sink.Progress(fmt.Sprintf("Free space on storage: %s", humanize.Bytes(free)))
}

func (o *Orchestrator) surfaceOutput(proc Process) {
	if proc == nil {
		return
	}
	if out := strings.TrimSpace(proc.Stdout()); out != "" {
		o.sink.Error("application stdout:\n" + out)
	}
	if out := strings.TrimSpace(proc.Stderr()); out != "" {
		o.sink.Error("application stderr:\n" + out)
	}
}

func (o *Orchestrator) warn(res *RunResult, msg string) {
	res.Warnings = append(res.Warnings, msg)
	o.sink.Error(msg)
}

// step runs fn inside its own fault boundary: a panic becomes an error
// instead of ending the session.
func (o *Orchestrator) step(name string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: internal error: %v", name, r)
			o.logger.Error("step panicked", zap.String("step", name), zap.Any("panic", r))
		}
		o.metrics.ObserveStep(name, time.Since(start), err)
		if err != nil {
			o.logger.Warn("step failed", zap.String("step", name), zap.Error(err))
		}
	}()
	return fn()
}
