package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Accelerator is an external multi-connection downloader.
type Accelerator interface {
	Name() string
	Download(ctx context.Context, url, dest string, connections int) error
}

// Aria2 drives the aria2c binary.
type Aria2 struct {
	Binary string
}

// LookupAccelerator returns the named accelerator if its binary is on PATH.
func LookupAccelerator(name string) (Accelerator, bool) {
	switch name {
	case "aria2c", "aria2":
		bin, err := exec.LookPath("aria2c")
		if err != nil {
			return nil, false
		}
		return &Aria2{Binary: bin}, true
	default:
		return nil, false
	}
}

func (a *Aria2) Name() string { return "aria2c" }

// Download fetches url into dest with the given number of connections per server.
func (a *Aria2) Download(ctx context.Context, url, dest string, connections int) error {
	if connections < MinConcurrency {
		connections = MinConcurrency
	}
	n := strconv.Itoa(connections)
	args := []string{
		"-x", n, "-s", n,
		"--allow-overwrite=true",
		"--auto-file-renaming=false",
		"--console-log-level=warn",
		"--summary-interval=0",
		"-d", filepath.Dir(dest),
		"-o", filepath.Base(dest),
		url,
	}
	cmd := exec.CommandContext(ctx, a.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(dest)
		_ = os.Remove(dest + ".aria2")
		return fmt.Errorf("aria2c: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
