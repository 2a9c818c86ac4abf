// Package core provides the business logic for DucNote.
// It has zero UI dependencies and is independently testable.
package core

import "time"

// Config represents the DucNote configuration stored at ~/.ducnote/config.json.
type Config struct {
	AppVersion    VersionSelector     `json:"appVersion"`
	CustomVersion string              `json:"customVersion,omitempty"`
	FolderMode    FolderMode          `json:"folderMode"`
	FolderName    string              `json:"folderName,omitempty"`
	Remember      bool                `json:"remember"`
	Concurrency   int                 `json:"concurrency"`
	Catalog       map[string][]string `json:"catalog,omitempty"`
	Settings      Settings            `json:"settings"`
}

// Settings holds the environment DucNote provisions into.
type Settings struct {
	StorageRoot         string   `json:"storageRoot"`
	WorkflowDir         string   `json:"workflowDir,omitempty"`
	MountCommand        string   `json:"mountCommand,omitempty"`
	AppRepo             string   `json:"appRepo"`
	Python              string   `json:"python"`
	Host                string   `json:"host"`
	Port                int      `json:"port"`
	TunnelCommand       string   `json:"tunnelCommand,omitempty"`
	ReadyTimeoutSeconds int      `json:"readyTimeoutSeconds"`
	Accelerator         string   `json:"accelerator,omitempty"` // e.g. "aria2c"; empty uses the built-in transfer
	HostingDomains      []string `json:"hostingDomains,omitempty"`
}

// VersionSelector picks which revision of the application is checked out.
type VersionSelector string

const (
	VersionLatest VersionSelector = "latest"
	VersionCustom VersionSelector = "custom"
)

// FolderMode decides how the destination folder under the storage root is chosen.
type FolderMode string

const (
	// FolderFixed uses FolderName as-is, creating it when missing.
	FolderFixed FolderMode = "fixed"
	// FolderNew creates a fresh timestamped folder for every run.
	FolderNew FolderMode = "new"
	// FolderExisting requires FolderName to already exist.
	FolderExisting FolderMode = "existing"
)

// Category is a named bucket of locators with its own destination subtree.
type Category struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Dir   string `yaml:"dir"`
}

// LinkKind is the installation strategy chosen for a locator.
type LinkKind int

const (
	LinkFile LinkKind = iota
	LinkRepository
	LinkManifest
)

// String returns a short label for the link kind.
func (k LinkKind) String() string {
	switch k {
	case LinkRepository:
		return "repository"
	case LinkManifest:
		return "manifest"
	default:
		return "file"
	}
}

// Outcome is the terminal state of one locator in an installation run.
type Outcome string

const (
	OutcomeAlreadyPresent Outcome = "already-present"
	OutcomeInstalled      Outcome = "installed"
	OutcomeFailed         Outcome = "failed"
)

// InstallationRecord is the per-locator result of an installation run.
// Records are produced fresh on every run and never persisted as state.
type InstallationRecord struct {
	Locator  string
	Category string
	Kind     LinkKind
	Path     string
	Outcome  Outcome
	Err      error
	Bytes    int64
	Duration time.Duration
	// RequiredExtensions lists extension repositories a workflow manifest references.
	RequiredExtensions []string
}

// RunOutcome is the observable end state of an orchestration run.
type RunOutcome string

const (
	// RunPublic means the application is ready and reachable through a tunnel URL.
	RunPublic RunOutcome = "public"
	// RunLocalOnly means the application is ready but no public URL is available.
	RunLocalOnly RunOutcome = "local-only"
	// RunInstalled means installation finished and launch was skipped.
	RunInstalled RunOutcome = "installed"
	// RunAborted means a fatal step failed.
	RunAborted RunOutcome = "aborted"
)

// RunResult summarizes one orchestration run.
type RunResult struct {
	ID          string
	Outcome     RunOutcome
	Destination string
	PublicURL   string
	Port        int
	Records     []InstallationRecord
	Warnings    []string
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Count returns the number of records with the given outcome.
func (r *RunResult) Count(o Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == o {
			n++
		}
	}
	return n
}
