package core

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// fakeFetcher serves canned bodies and counts requests.
type fakeFetcher struct {
	mu          sync.Mutex
	bodies      map[string]string
	errs        map[string]error
	status      map[string]int
	delay       time.Duration
	calls       int
	inFlight    int
	maxInFlight int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: map[string]string{},
		errs:   map[string]error{},
		status: map[string]int{},
	}
}

func (f *fakeFetcher) Get(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	body, ok := f.bodies[url]
	err := f.errs[url]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, &StatusError{URL: url, StatusCode: 404}
	}
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

func (f *fakeFetcher) Head(ctx context.Context, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[url]; err != nil {
		return 0, err
	}
	if code, ok := f.status[url]; ok {
		return code, nil
	}
	if _, ok := f.bodies[url]; ok {
		return 200, nil
	}
	return 404, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVCS records operations and creates working copies on disk.
type fakeVCS struct {
	mu        sync.Mutex
	clones    []string
	updates   []string
	cloneErr  map[string]error
	updateErr error
	// failClones makes the first n clones fail.
	failClones int
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{cloneErr: map[string]error{}}
}

func (v *fakeVCS) Clone(ctx context.Context, url, dest, ref string, shallow bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clones = append(v.clones, url)
	if err := v.cloneErr[url]; err != nil {
		return err
	}
	if v.failClones > 0 {
		v.failClones--
		return errors.New("clone failed")
	}
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "README.md"), []byte(url+"@"+ref), 0o644)
}

func (v *fakeVCS) Update(ctx context.Context, dest string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updates = append(v.updates, dest)
	return v.updateErr
}

func (v *fakeVCS) cloneCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clones)
}

var testCategories = []Category{
	{Key: "custom-extensions", Label: "Custom Extensions", Dir: "custom_nodes"},
	{Key: "checkpoint-models", Label: "Checkpoints", Dir: "models/checkpoints"},
	{Key: "lora-models", Label: "LoRA", Dir: "models/loras"},
	{Key: "workflows", Label: "Workflows", Dir: "user/default/workflows"},
}

func newTestInstaller(root string, vcs VCS, fetcher Fetcher, sink Sink, concurrency int) *Installer {
	resolver := NewResolver(root, testCategories, "", NewClassifier(nil))
	return NewInstaller(resolver, InstallerOptions{
		VCS:         vcs,
		Fetcher:     fetcher,
		Sink:        sink,
		Concurrency: concurrency,
	})
}
