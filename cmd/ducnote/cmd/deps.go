package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ducnote/ducnote/internal/core"
)

// errNoFixedFolder is returned by commands that inspect the destination when
// folderMode creates a new folder on every run.
var errNoFixedFolder = errors.New(`folderMode "new" has no fixed destination to inspect`)

// deps holds shared dependencies for CLI commands.
type deps struct {
	config *core.ConfigManager

	// stored is the persisted record; cfg is stored plus flag and
	// environment overrides. Only stored is ever written back.
	stored *core.Config
	cfg    *core.Config

	catalog *core.Catalog

	// Python packages installed before extension requirements.
	dependencies []string
}

// newDeps creates shared dependencies. Called lazily by commands that need them.
func newDeps() (*deps, error) {
	config, err := core.NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}

	stored, err := config.Load()
	if err != nil {
		return nil, err
	}
	effective := *stored
	applyOverrides(&effective)

	defaults, err := core.LoadDefaults()
	if err != nil {
		return nil, fmt.Errorf("loading built-in catalog: %w", err)
	}
	catalog := core.NewCatalog(defaults.Categories, defaults.Catalog)
	catalog.Restore(stored.Catalog)

	return &deps{
		config:       config,
		stored:       stored,
		cfg:          &effective,
		catalog:      catalog,
		dependencies: defaults.Dependencies,
	}, nil
}

// saveSession persists the catalog and settings when remember is on.
// It reports whether anything was written.
func (d *deps) saveSession() (bool, error) {
	if !d.stored.Remember {
		return false, nil
	}
	d.stored.Catalog = d.catalog.Serialize()
	if err := d.config.Save(d.stored); err != nil {
		return false, err
	}
	return true, nil
}

// destination returns the application folder for inspection commands.
func (d *deps) destination() (string, error) {
	if d.cfg.FolderMode == core.FolderNew {
		return "", errNoFixedFolder
	}
	return core.ResolveDestination(d.cfg, time.Now())
}

// resolver returns a resolver rooted at the current destination.
func (d *deps) resolver() (*core.Resolver, error) {
	dest, err := d.destination()
	if err != nil {
		return nil, err
	}
	return core.NewResolver(dest, d.catalog.Categories(), d.cfg.Settings.WorkflowDir,
		core.NewClassifier(d.cfg.Settings.HostingDomains)), nil
}
