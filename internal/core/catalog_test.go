package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type probeFunc func(ctx context.Context, locator string) error

func (f probeFunc) Probe(ctx context.Context, locator string) error { return f(ctx, locator) }

func newTestCatalog() *Catalog {
	return NewCatalog(testCategories, map[string][]string{
		"custom-extensions": {"https://github.com/a/one", "https://github.com/a/two"},
		"unknown":           {"https://x.test/ignored"},
	})
}

func TestCatalogSeededWithDefaults(t *testing.T) {
	c := newTestCatalog()

	want := []string{"https://github.com/a/one", "https://github.com/a/two"}
	if diff := cmp.Diff(want, c.List("custom-extensions")); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if !c.IsDefault("custom-extensions", "https://github.com/a/one") {
		t.Error("IsDefault() = false for a built-in locator")
	}
}

func TestCatalogAdd(t *testing.T) {
	c := newTestCatalog()
	ctx := context.Background()

	if err := c.Add(ctx, "lora-models", "  https://x.test/style.safetensors  ", nil); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !c.Contains("lora-models", "https://x.test/style.safetensors") {
		t.Error("added locator should be trimmed and present")
	}
	if c.IsDefault("lora-models", "https://x.test/style.safetensors") {
		t.Error("user-added locator reported as default")
	}

	err := c.Add(ctx, "lora-models", "https://x.test/style.safetensors", nil)
	if !errors.Is(err, ErrLocatorExists) {
		t.Errorf("duplicate Add() error = %v, want ErrLocatorExists", err)
	}
	if got := len(c.List("lora-models")); got != 1 {
		t.Errorf("duplicate changed the list: len = %d", got)
	}

	if err := c.Add(ctx, "nope", "https://x.test/a", nil); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Add() to unknown category error = %v, want ErrUnknownCategory", err)
	}
	if err := c.Add(ctx, "lora-models", "   ", nil); !errors.Is(err, ErrEmptyLocator) {
		t.Errorf("Add() blank error = %v, want ErrEmptyLocator", err)
	}
}

func TestCatalogAddSameLocatorDifferentCategories(t *testing.T) {
	c := newTestCatalog()
	ctx := context.Background()
	loc := "https://x.test/shared.safetensors"

	if err := c.Add(ctx, "lora-models", loc, nil); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := c.Add(ctx, "checkpoint-models", loc, nil); err != nil {
		t.Fatalf("Add() to second category error: %v", err)
	}
}

func TestCatalogAddProbeFailure(t *testing.T) {
	c := newTestCatalog()
	probeErr := errors.New("HTTP 404")
	probe := probeFunc(func(ctx context.Context, locator string) error { return probeErr })

	err := c.Add(context.Background(), "lora-models", "https://x.test/missing.bin", probe)
	if !errors.Is(err, probeErr) {
		t.Fatalf("Add() error = %v, want probe error", err)
	}
	if c.Contains("lora-models", "https://x.test/missing.bin") {
		t.Error("locator added despite probe failure")
	}
}

func TestCatalogRemove(t *testing.T) {
	c := newTestCatalog()

	if !c.Remove("custom-extensions", "https://github.com/a/one") {
		t.Fatal("Remove() = false, want true")
	}
	if diff := cmp.Diff([]string{"https://github.com/a/two"}, c.List("custom-extensions")); diff != "" {
		t.Errorf("List() after Remove mismatch (-want +got):\n%s", diff)
	}
	if c.Remove("custom-extensions", "https://github.com/a/one") {
		t.Error("second Remove() = true, want false")
	}
}

func TestCatalogSnapshotIsIsolated(t *testing.T) {
	c := newTestCatalog()
	snap := c.Snapshot()

	if err := c.Add(context.Background(), "custom-extensions", "https://github.com/a/three", nil); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if got := len(snap.Entries["custom-extensions"]); got != 2 {
		t.Errorf("snapshot changed after Add: len = %d, want 2", got)
	}

	snap.Entries["custom-extensions"][0] = "mutated"
	if c.List("custom-extensions")[0] == "mutated" {
		t.Error("mutating the snapshot changed the catalog")
	}
	if snap.Len() != 2 {
		t.Errorf("Snapshot.Len() = %d, want 2", snap.Len())
	}
}

func TestCatalogSerializeRestoreRoundTrip(t *testing.T) {
	c := newTestCatalog()
	if err := c.Add(context.Background(), "lora-models", "https://x.test/style.safetensors", nil); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	data := c.Serialize()

	restored := NewCatalog(testCategories, nil)
	restored.Restore(data)
	if diff := cmp.Diff(c.Serialize(), restored.Serialize()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogRestoreMalformedKeepsDefaults(t *testing.T) {
	tests := []struct {
		name string
		data map[string][]string
	}{
		{"nil", nil},
		{"empty", map[string][]string{}},
		{"only unknown categories", map[string][]string{"bogus": {"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCatalog()
			before := c.Serialize()
			c.Restore(tt.data)
			if diff := cmp.Diff(before, c.Serialize()); diff != "" {
				t.Errorf("Restore changed catalog (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalogRestoreDedupes(t *testing.T) {
	c := newTestCatalog()
	c.Restore(map[string][]string{
		"lora-models": {"a", "b", "a", " ", "b"},
		"bogus":       {"x"},
	})
	if diff := cmp.Diff([]string{"a", "b"}, c.List("lora-models")); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	// Categories absent from persisted data are emptied, not re-seeded.
	if got := c.List("custom-extensions"); len(got) != 0 {
		t.Errorf("custom-extensions = %v, want empty", got)
	}
}

func TestCatalogReset(t *testing.T) {
	c := newTestCatalog()
	c.Remove("custom-extensions", "https://github.com/a/one")
	c.Reset()
	if !c.Contains("custom-extensions", "https://github.com/a/one") {
		t.Error("Reset() did not restore defaults")
	}
}

func TestCatalogConcurrentAdd(t *testing.T) {
	c := newTestCatalog()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Add(context.Background(), "lora-models", "https://x.test/same.bin", nil)
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("successful concurrent adds = %d, want 1", ok)
	}
	if got := len(c.List("lora-models")); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := NewDefaultCatalog()
	if err != nil {
		t.Fatalf("NewDefaultCatalog() error: %v", err)
	}
	cats := c.Categories()
	if len(cats) == 0 || cats[0].Key != "custom-extensions" {
		t.Fatalf("first category = %+v, want custom-extensions", cats)
	}
	if c.Len() == 0 {
		t.Error("default catalog is empty")
	}
}
