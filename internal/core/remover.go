package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Remover deletes installed artifacts from the destination tree.
type Remover struct {
	resolver *Resolver
}

// NewRemover creates a Remover for the given resolver.
func NewRemover(resolver *Resolver) *Remover {
	return &Remover{resolver: resolver}
}

// RemoveResult represents the result of an artifact removal.
type RemoveResult struct {
	Locator string
	Path    string // Path that was removed
	Kind    LinkKind
	Bytes   int64
}

// Purge removes whatever locator resolved to under category. Removing a
// locator from the catalog alone leaves its files on storage; Purge is the
// explicit second step.
func (r *Remover) Purge(category, locator string) (*RemoveResult, error) {
	if locator == "" {
		return nil, ErrEmptyLocator
	}

	path, kind, err := r.resolver.Resolve(category, locator)
	if err != nil {
		return nil, err
	}

	// Never follow a resolved path outside the destination root.
	rel, err := filepath.Rel(r.resolver.Root(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("refusing to remove %s outside %s", path, r.resolver.Root())
	}

	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s is not installed at %s", locator, path)
		}
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}

	res := &RemoveResult{Locator: locator, Path: path, Kind: kind, Bytes: pathSize(path)}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("removing %s: %w", path, err)
	}
	_ = os.Remove(path + partSuffix)
	return res, nil
}
