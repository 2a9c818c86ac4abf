package core

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const pipTimeout = 15 * time.Minute

// PackageInstaller installs the application's runtime dependencies.
type PackageInstaller interface {
	// Install installs a single package spec (e.g. "numpy" or "torch==2.3.0").
	Install(ctx context.Context, pkg string) error
	// InstallRequirements installs every entry of a requirements file.
	InstallRequirements(ctx context.Context, file string) error
}

// PipInstaller runs "<python> -m pip install".
type PipInstaller struct {
	Python  string
	Timeout time.Duration
}

// NewPipInstaller creates a PipInstaller for the given interpreter.
func NewPipInstaller(python string) *PipInstaller {
	if python == "" {
		python = "python3"
	}
	return &PipInstaller{Python: python, Timeout: pipTimeout}
}

func (p *PipInstaller) Install(ctx context.Context, pkg string) error {
	return p.pip(ctx, "install", "-q", pkg)
}

func (p *PipInstaller) InstallRequirements(ctx context.Context, file string) error {
	return p.pip(ctx, "install", "-q", "-r", file)
}

func (p *PipInstaller) pip(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, p.Python, append([]string{"-m", "pip"}, args...)...)
	output, err := runWithTimeout(cmd, p.Timeout)
	if err != nil {
		return fmt.Errorf("pip %s: %s", strings.Join(args, " "), lastLine(output))
	}
	return nil
}

// InstallDependencies installs packages one by one, then the requirements
// file if it exists. When the requirements file as a whole fails, its
// entries are retried one by one. Failures never stop the remaining
// packages; each is returned as a warning.
func InstallDependencies(ctx context.Context, pi PackageInstaller, packages []string, requirements string) []string {
	var warnings []string
	for _, pkg := range packages {
		if err := pi.Install(ctx, pkg); err != nil {
			warnings = append(warnings, fmt.Sprintf("dependency %s: %v", pkg, err))
		}
	}

	if requirements == "" || !fileExists(requirements) {
		return warnings
	}
	if err := pi.InstallRequirements(ctx, requirements); err == nil {
		return warnings
	}

	entries, err := readRequirements(requirements)
	if err != nil {
		return append(warnings, fmt.Sprintf("reading %s: %v", requirements, err))
	}
	for _, pkg := range entries {
		if err := pi.Install(ctx, pkg); err != nil {
			warnings = append(warnings, fmt.Sprintf("dependency %s: %v", pkg, err))
		}
	}
	return warnings
}

// readRequirements returns package lines of a requirements file, skipping
// comments, blank lines and pip options.
func readRequirements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
