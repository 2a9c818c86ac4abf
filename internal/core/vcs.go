package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	cloneTimeout = 10 * time.Minute
	pullTimeout  = 2 * time.Minute
)

// VCS clones and updates working copies.
type VCS interface {
	// Clone copies the remote repository into dest. ref selects a branch or
	// tag; empty means the default branch.
	Clone(ctx context.Context, url, dest, ref string, shallow bool) error
	// Update fast-forwards an existing working copy.
	Update(ctx context.Context, dest string) error
}

// GitVCS runs the git binary.
type GitVCS struct {
	CloneTimeout time.Duration
	PullTimeout  time.Duration
}

// NewGitVCS creates a GitVCS with default timeouts.
func NewGitVCS() *GitVCS {
	return &GitVCS{CloneTimeout: cloneTimeout, PullTimeout: pullTimeout}
}

// Clone runs git clone. A failed clone leaves no directory behind.
func (g *GitVCS) Clone(ctx context.Context, url, dest, ref string, shallow bool) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dest, err)
	}

	args := []string{"clone"}
	if shallow {
		args = append(args, "--depth", "1")
	}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, url, dest)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := runWithTimeout(cmd, g.CloneTimeout)
	if err != nil {
		_ = os.RemoveAll(dest)
		return ClassifyGitError("clone", url, FormatCloneCommand(url, ref, shallow), output)
	}
	return nil
}

// Update runs git pull --ff-only inside dest.
func (g *GitVCS) Update(ctx context.Context, dest string) error {
	if !dirExists(filepath.Join(dest, ".git")) {
		return &GitError{
			Kind:      GitErrRepoNotFound,
			Op:        "pull",
			Command:   "git pull --ff-only",
			RawOutput: fmt.Sprintf("%s is not a git working copy", dest),
			Hints:     []string{"The folder will be replaced by a fresh clone"},
		}
	}

	cmd := exec.CommandContext(ctx, "git", "-C", dest, "pull", "--ff-only")
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := runWithTimeout(cmd, g.PullTimeout)
	if err != nil {
		return ClassifyGitError("pull", "", "git -C "+dest+" pull --ff-only", output)
	}
	return nil
}
