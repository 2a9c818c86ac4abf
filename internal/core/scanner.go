package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactStatus describes whether one catalog locator is on storage.
type ArtifactStatus struct {
	Category string
	Locator  string
	Kind     LinkKind
	Path     string
	Present  bool
	Size     int64
	Err      error
}

// UntrackedArtifact is an entry in a category directory that no catalog
// locator resolves to.
type UntrackedArtifact struct {
	Category string
	Name     string
	Path     string
	IsDir    bool
}

// ScanResult is the on-disk view of a catalog under a destination root.
type ScanResult struct {
	Artifacts []ArtifactStatus
	Untracked []UntrackedArtifact
}

// Missing returns the number of catalog locators not yet on storage.
func (r *ScanResult) Missing() int {
	n := 0
	for _, a := range r.Artifacts {
		if !a.Present {
			n++
		}
	}
	return n
}

// Scanner compares a catalog snapshot with what is installed under a root.
// It never touches the network.
type Scanner struct {
	resolver *Resolver
}

// NewScanner creates a Scanner for the given resolver.
func NewScanner(resolver *Resolver) *Scanner {
	return &Scanner{resolver: resolver}
}

// Scan resolves every locator in snap and checks its destination. Category
// directories are then read to find entries the catalog does not cover.
func (s *Scanner) Scan(snap Snapshot) (*ScanResult, error) {
	res := &ScanResult{}
	known := make(map[string]bool)

	for _, cat := range snap.Categories {
		for _, locator := range snap.Entries[cat.Key] {
			st := ArtifactStatus{Category: cat.Key, Locator: locator}
			path, kind, err := s.resolver.Resolve(cat.Key, locator)
			if err != nil {
				st.Err = err
				res.Artifacts = append(res.Artifacts, st)
				continue
			}
			st.Path, st.Kind = path, kind
			known[st.Path] = true
			st.Present = present(st.Path, st.Kind)
			if st.Present {
				st.Size = pathSize(st.Path)
			}
			res.Artifacts = append(res.Artifacts, st)
		}

		dir, err := s.resolver.CategoryDir(cat.Key)
		if err != nil {
			return nil, err
		}
		untracked, err := scanUntracked(cat.Key, dir, known)
		if err != nil {
			return nil, err
		}
		res.Untracked = append(res.Untracked, untracked...)
	}
	return res, nil
}

func scanUntracked(category, dir string, known map[string]bool) ([]UntrackedArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var out []UntrackedArtifact
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, partSuffix) || skipOnCopy[name] {
			continue
		}
		path := filepath.Join(dir, name)
		if known[path] {
			continue
		}
		out = append(out, UntrackedArtifact{Category: category, Name: name, Path: path, IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// pathSize returns the size of a file or the total size of a directory tree.
func pathSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	return treeSize(path)
}
