package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrLocatorExists is returned when a locator is already in the category.
	ErrLocatorExists = errors.New("locator already exists")
	// ErrUnknownCategory is returned for a category outside the configured set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrEmptyLocator is returned when adding a blank locator.
	ErrEmptyLocator = errors.New("empty locator")
)

// LinkProbe checks that a locator is reachable before it is added.
type LinkProbe interface {
	Probe(ctx context.Context, locator string) error
}

// Catalog maps each category to an ordered, duplicate-free list of locators.
// Built-in and user-added locators share the same sequence.
type Catalog struct {
	mu         sync.RWMutex
	categories []Category
	entries    map[string][]string
	defaults   map[string][]string
}

// Snapshot is a read-only copy of a catalog taken for one installation run.
type Snapshot struct {
	Categories []Category
	Entries    map[string][]string
}

// Len returns the total number of locators in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, list := range s.Entries {
		n += len(list)
	}
	return n
}

// NewCatalog creates a catalog for the given categories seeded with defaults.
// Default entries for unknown categories are ignored.
func NewCatalog(categories []Category, defaults map[string][]string) *Catalog {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		entries:    make(map[string][]string, len(categories)),
		defaults:   make(map[string][]string, len(categories)),
	}
	for _, cat := range categories {
		list := dedupe(defaults[cat.Key])
		c.defaults[cat.Key] = list
		c.entries[cat.Key] = append([]string(nil), list...)
	}
	return c
}

// NewDefaultCatalog builds a catalog from the embedded defaults.
func NewDefaultCatalog() (*Catalog, error) {
	d, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewCatalog(d.Categories, d.Catalog), nil
}

// Categories returns the configured categories in processing order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Category looks up a category by key.
func (c *Catalog) Category(key string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Add appends locator to category. When probe is non-nil it runs before
// insertion and a probe failure blocks the add.
func (c *Catalog) Add(ctx context.Context, category, locator string, probe LinkProbe) error {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return ErrEmptyLocator
	}
	if _, ok := c.Category(category); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if c.Contains(category, locator) {
		return fmt.Errorf("%w in %s: %s", ErrLocatorExists, category, locator)
	}

	if probe != nil {
		if err := probe.Probe(ctx, locator); err != nil {
			return fmt.Errorf("validating %s: %w", locator, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock; the probe ran unlocked.
	for _, l := range c.entries[category] {
		if l == locator {
			return fmt.Errorf("%w in %s: %s", ErrLocatorExists, category, locator)
		}
	}
	c.entries[category] = append(c.entries[category], locator)
	return nil
}

// Remove deletes locator from category. Returns false if it was not present.
func (c *Catalog) Remove(category, locator string) bool {
	locator = strings.TrimSpace(locator)

	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.entries[category]
	for i, l := range list {
		if l == locator {
			c.entries[category] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether locator is present in category.
func (c *Catalog) Contains(category, locator string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.entries[category] {
		if l == locator {
			return true
		}
	}
	return false
}

// IsDefault reports whether locator ships with the built-in catalog.
func (c *Catalog) IsDefault(category, locator string) bool {
	for _, l := range c.defaults[category] {
		if l == locator {
			return true
		}
	}
	return false
}

// List returns a copy of the locators in category.
func (c *Catalog) List(category string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.entries[category]...)
}

// Len returns the total number of locators across all categories.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}

// Snapshot returns a deep copy for a single orchestration run.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		Categories: append([]Category(nil), c.categories...),
		Entries:    make(map[string][]string, len(c.entries)),
	}
	for k, list := range c.entries {
		s.Entries[k] = append([]string(nil), list...)
	}
	return s
}

// Serialize returns the flat persistence form of the catalog.
func (c *Catalog) Serialize() map[string][]string {
	return c.Snapshot().Entries
}

// Restore replaces the catalog with persisted lists. Missing or malformed
// data (nil, or no known categories) leaves the current entries untouched.
// Unknown categories are dropped; duplicates are collapsed.
func (c *Catalog) Restore(data map[string][]string) {
	if len(data) == 0 {
		return
	}
	restored := make(map[string][]string, len(c.categories))
	known := 0
	for _, cat := range c.categories {
		list, ok := data[cat.Key]
		if ok {
			known++
		}
		restored[cat.Key] = dedupe(list)
	}
	if known == 0 {
		return
	}

	c.mu.Lock()
	c.entries = restored
	c.mu.Unlock()
}

// Reset restores the built-in catalog.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, list := range c.defaults {
		c.entries[k] = append([]string(nil), list...)
	}
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, l := range list {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
