package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// maxManifestSize bounds how much of a manifest is read into memory.
const maxManifestSize = 64 << 20

// partSuffix marks in-flight downloads. A .part file never satisfies the
// existence guard because it is only renamed into place once complete.
const partSuffix = ".part"

// Installer reconciles catalog locators against the destination tree.
type Installer struct {
	resolver    *Resolver
	vcs         VCS
	fetcher     Fetcher
	accelerator Accelerator
	sink        Sink
	metrics     Metrics
	logger      *zap.Logger
	concurrency int
}

// InstallerOptions configures an Installer.
type InstallerOptions struct {
	VCS         VCS
	Fetcher     Fetcher
	Accelerator Accelerator // optional
	Sink        Sink
	Metrics     Metrics
	Logger      *zap.Logger
	Concurrency int
}

// NewInstaller creates an Installer writing under the resolver's root.
func NewInstaller(resolver *Resolver, opts InstallerOptions) *Installer {
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Installer{
		resolver:    resolver,
		vcs:         opts.VCS,
		fetcher:     opts.Fetcher,
		accelerator: opts.Accelerator,
		sink:        opts.Sink,
		metrics:     opts.Metrics,
		logger:      opts.Logger.Named("installer"),
		concurrency: clampConcurrency(opts.Concurrency),
	}
}

// InstallCategory installs every locator of one category and returns one
// record per locator in input order. Repositories run one after another;
// files and manifests run on a worker pool bounded by the concurrency factor.
// A failed item never stops its siblings.
func (in *Installer) InstallCategory(ctx context.Context, category string, locators []string) []InstallationRecord {
	records := make([]InstallationRecord, len(locators))

	// Locators sharing a destination with an earlier pooled locator wait
	// until the pool drains, then meet the existence guard.
	var pooled, deferred []int
	claimed := make(map[string]bool)
	for i, l := range locators {
		if isLocalPath(l) || in.resolver.classifier.Classify(l) == LinkRepository {
			records[i] = in.InstallOne(ctx, category, l)
			continue
		}
		if path, _, err := in.resolver.Resolve(category, l); err == nil {
			if claimed[path] {
				deferred = append(deferred, i)
				continue
			}
			claimed[path] = true
		}
		pooled = append(pooled, i)
	}

	semaphore := make(chan struct{}, in.concurrency)
	var wg sync.WaitGroup
	for _, idx := range pooled {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				records[i] = in.fail(InstallationRecord{Locator: locators[i], Category: category}, ctx.Err())
				return
			}
			defer func() { <-semaphore }()

			records[i] = in.InstallOne(ctx, category, locators[i])
		}(idx)
	}
	wg.Wait()

	for _, i := range deferred {
		records[i] = in.InstallOne(ctx, category, locators[i])
	}
	return records
}

// InstallOne runs the per-locator state machine:
// Pending → Skipped when the destination already exists, otherwise
// Acquiring → Installed | Failed.
func (in *Installer) InstallOne(ctx context.Context, category, locator string) (rec InstallationRecord) {
	start := time.Now()
	rec = InstallationRecord{Locator: locator, Category: category}

	defer func() {
		if r := recover(); r != nil {
			rec.Outcome = OutcomeFailed
			rec.Err = fmt.Errorf("internal error: %v", r)
			in.sink.Error(fmt.Sprintf("[%s] %s: %v", category, locator, rec.Err))
		}
		rec.Duration = time.Since(start)
		in.metrics.ObserveArtifact(category, rec.Kind, rec.Outcome, rec.Bytes, rec.Duration)
	}()

	if isLocalPath(locator) {
		return in.installLocal(category, locator, rec)
	}

	path, kind, err := in.resolver.Resolve(category, locator)
	rec.Kind = kind
	rec.Path = path
	if err != nil {
		return in.fail(rec, err)
	}

	if present(path, kind) {
		rec.Outcome = OutcomeAlreadyPresent
		in.sink.Progress(fmt.Sprintf("[%s] already present: %s", category, filepath.Base(path)))
		in.logger.Debug("skip present", zap.String("category", category), zap.String("path", path))
		return rec
	}

	in.sink.Progress(fmt.Sprintf("[%s] installing %s (%s)", category, filepath.Base(path), kind))

	switch kind {
	case LinkRepository:
		err = in.cloneRepository(ctx, locator, path)
		if err == nil {
			rec.Bytes = treeSize(path)
		}
	case LinkManifest:
		rec.Bytes, rec.RequiredExtensions, err = in.fetchManifest(ctx, locator, path)
	default:
		rec.Bytes, err = in.download(ctx, locator, path)
	}
	if err != nil {
		return in.fail(rec, err)
	}

	rec.Outcome = OutcomeInstalled
	in.sink.Progress(fmt.Sprintf("[%s] installed %s (%s)", category, filepath.Base(path), humanize.Bytes(uint64(rec.Bytes))))
	in.logger.Info("installed",
		zap.String("category", category),
		zap.String("locator", locator),
		zap.String("path", path),
		zap.Int64("bytes", rec.Bytes),
	)
	return rec
}

func (in *Installer) installLocal(category, locator string, rec InstallationRecord) InstallationRecord {
	path, kind, err := in.resolver.Resolve(category, locator)
	rec.Path, rec.Kind = path, kind
	if err != nil {
		return in.fail(rec, err)
	}
	if present(rec.Path, rec.Kind) {
		rec.Outcome = OutcomeAlreadyPresent
		in.sink.Progress(fmt.Sprintf("[%s] already present: %s", category, filepath.Base(rec.Path)))
		return rec
	}

	in.sink.Progress(fmt.Sprintf("[%s] copying %s", category, locator))
	n, err := installLocal(locator, rec.Path)
	if err != nil {
		return in.fail(rec, err)
	}
	rec.Bytes = n
	rec.Outcome = OutcomeInstalled
	in.sink.Progress(fmt.Sprintf("[%s] installed %s (%s)", category, filepath.Base(rec.Path), humanize.Bytes(uint64(n))))
	return rec
}

func (in *Installer) cloneRepository(ctx context.Context, locator, dest string) error {
	if in.vcs == nil {
		return fmt.Errorf("no version control configured")
	}
	// An empty leftover directory would make git refuse the clone.
	if dirExists(dest) {
		_ = os.Remove(dest)
	}
	return in.vcs.Clone(ctx, locator, dest, "", true)
}

// fetchManifest downloads and validates a manifest, writing the
// pretty-printed document only when it parses.
func (in *Installer) fetchManifest(ctx context.Context, locator, dest string) (int64, []string, error) {
	body, _, err := in.fetcher.Get(ctx, stripFragment(locator))
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, maxManifestSize))
	if err != nil {
		return 0, nil, fmt.Errorf("reading manifest: %w", err)
	}
	formatted, err := FormatManifest(data)
	if err != nil {
		return 0, nil, err
	}

	if err := writeAtomic(dest, formatted); err != nil {
		return 0, nil, err
	}
	info := InspectWorkflow(data)
	return int64(len(formatted)), info.Extensions, nil
}

// download streams a file into dest+".part" and renames it on success.
func (in *Installer) download(ctx context.Context, locator, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	part := dest + partSuffix
	_ = os.Remove(part)

	expected := locatorChecksum(locator)
	var (
		n   int64
		sum string
		err error
	)
	if in.accelerator != nil {
		if err = in.accelerator.Download(ctx, stripFragment(locator), part, in.concurrency); err == nil {
			sum, n, err = hashFile(part, expected != "")
		}
	} else {
		n, sum, err = in.stream(ctx, locator, part, expected != "")
	}
	if err != nil {
		_ = os.Remove(part)
		return 0, err
	}

	if expected != "" && sum != expected {
		_ = os.Remove(part)
		return 0, fmt.Errorf("checksum mismatch: got %s, want %s", sum, expected)
	}

	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return 0, fmt.Errorf("moving into place: %w", err)
	}
	return n, nil
}

func (in *Installer) stream(ctx context.Context, locator, part string, wantHash bool) (int64, string, error) {
	body, _, err := in.fetcher.Get(ctx, stripFragment(locator))
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = body.Close() }()

	f, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, "", err
	}

	var h hash.Hash
	w := io.Writer(f)
	if wantHash {
		h = sha256.New()
		w = io.MultiWriter(f, h)
	}

	n, err := io.Copy(w, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", fmt.Errorf("transfer interrupted after %s: %w", humanize.Bytes(uint64(n)), err)
	}

	sum := ""
	if h != nil {
		sum = hex.EncodeToString(h.Sum(nil))
	}
	return n, sum, nil
}

func (in *Installer) fail(rec InstallationRecord, err error) InstallationRecord {
	rec.Outcome = OutcomeFailed
	rec.Err = err
	in.sink.Error(fmt.Sprintf("[%s] %s: %v", rec.Category, rec.Locator, err))
	in.logger.Warn("install failed",
		zap.String("category", rec.Category),
		zap.String("locator", rec.Locator),
		zap.Error(err),
	)
	return rec
}

// present is the idempotence guard: a non-empty directory for repositories,
// an existing regular file otherwise.
func present(path string, kind LinkKind) bool {
	if kind == LinkRepository {
		return dirNonEmpty(path)
	}
	return fileExists(path)
}

// writeAtomic writes data to a temp file next to dest and renames it.
func writeAtomic(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	tmp := dest + partSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("moving into place: %w", err)
	}
	return nil
}

func hashFile(path string, wantHash bool) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	if !wantHash {
		info, err := f.Stat()
		if err != nil {
			return "", 0, err
		}
		return "", info.Size(), nil
	}
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func stripFragment(locator string) string {
	if i := strings.IndexByte(locator, '#'); i >= 0 {
		return locator[:i]
	}
	return locator
}

func isArchive(locator string) bool {
	return strings.EqualFold(filepath.Ext(locator), ".zip")
}

func clampConcurrency(n int) int {
	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
