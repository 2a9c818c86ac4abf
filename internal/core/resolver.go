package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafeDestination is returned when a locator would resolve outside its
// category directory.
var ErrUnsafeDestination = errors.New("unsafe destination")

// WorkflowCategory is the category whose manifests may live in a dedicated directory.
const WorkflowCategory = "workflows"

// Resolver maps (category, locator) pairs to destination paths under a root.
type Resolver struct {
	root        string
	categories  map[string]Category
	workflowDir string
	classifier  Classifier
}

// NewResolver creates a Resolver. workflowDir, when non-empty, overrides
// the destination of manifests in the workflows category; relative values
// are taken relative to root.
func NewResolver(root string, categories []Category, workflowDir string, classifier Classifier) *Resolver {
	byKey := make(map[string]Category, len(categories))
	for _, c := range categories {
		byKey[c.Key] = c
	}
	if workflowDir != "" && !filepath.IsAbs(workflowDir) {
		workflowDir = filepath.Join(root, workflowDir)
	}
	return &Resolver{
		root:        root,
		categories:  byKey,
		workflowDir: workflowDir,
		classifier:  classifier,
	}
}

// Root returns the destination root.
func (r *Resolver) Root() string {
	return r.root
}

// CategoryDir returns the directory for a category.
func (r *Resolver) CategoryDir(category string) (string, error) {
	c, ok := r.categories[category]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return filepath.Join(r.root, filepath.FromSlash(c.Dir)), nil
}

// Resolve returns the destination path and link kind for a locator.
// Local paths keep their base name under the category directory.
func (r *Resolver) Resolve(category, locator string) (string, LinkKind, error) {
	dir, err := r.CategoryDir(category)
	if err != nil {
		return "", LinkFile, err
	}
	if isLocalPath(locator) {
		dest, err := within(dir, localDestName(locator), locator)
		return dest, localKind(locator), err
	}

	kind := r.classifier.Classify(locator)
	var name string
	switch kind {
	case LinkRepository:
		name = RepoName(locator)
	case LinkManifest:
		name = Basename(locator)
		if category == WorkflowCategory && r.workflowDir != "" {
			dir = r.workflowDir
		}
	default:
		name = Basename(locator)
	}

	dest, err := within(dir, name, locator)
	return dest, kind, err
}

// within joins a single path element onto dir. Names that are empty, dot
// segments or contain a separator are rejected, as is any result that is not
// strictly inside dir.
func within(dir, name, locator string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: cannot derive a file name from %q", ErrUnsafeDestination, locator)
	}
	dest := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes %s", ErrUnsafeDestination, dest, dir)
	}
	return dest, nil
}

// Installed reports whether the destination of locator already exists.
func (r *Resolver) Installed(category, locator string) (string, bool, error) {
	path, kind, err := r.Resolve(category, locator)
	if err != nil {
		return "", false, err
	}
	return path, present(path, kind), nil
}

// Dirs returns every category directory, plus the workflow directory when set.
func (r *Resolver) Dirs() []string {
	dirs := make([]string, 0, len(r.categories)+1)
	for key := range r.categories {
		d, _ := r.CategoryDir(key)
		dirs = append(dirs, d)
	}
	if r.workflowDir != "" {
		dirs = append(dirs, r.workflowDir)
	}
	return dirs
}
