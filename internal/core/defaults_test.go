package core

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	d, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults() error: %v", err)
	}
	if len(d.Categories) != 8 {
		t.Errorf("categories = %d, want 8", len(d.Categories))
	}
	if last := d.Categories[len(d.Categories)-1]; last.Key != WorkflowCategory {
		t.Errorf("last category = %q, want %q", last.Key, WorkflowCategory)
	}
	if len(d.Catalog[ExtensionsCategory]) == 0 {
		t.Error("default catalog has no extensions")
	}
	if len(d.Dependencies) == 0 {
		t.Error("no default dependencies")
	}

	for key, list := range d.Catalog {
		for _, l := range list {
			if key == ExtensionsCategory && Classify(l) != LinkRepository {
				t.Errorf("default extension %q is not a repository locator", l)
			}
		}
	}
}

func TestParseDefaultsErrors(t *testing.T) {
	tests := []struct {
		name, doc, wantErr string
	}{
		{"no categories", "catalog: {}\n", "no categories"},
		{"missing dir", "categories:\n  - key: a\n", "key and dir are required"},
		{"duplicate", "categories:\n  - {key: a, dir: x}\n  - {key: a, dir: y}\n", "duplicate category"},
		{"unknown catalog key", "categories:\n  - {key: a, dir: x}\ncatalog:\n  b: [u]\n", "unknown category"},
		{"not yaml", "categories: [", "parsing defaults"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefaults([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseDefaults() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
