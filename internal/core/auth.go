package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// GitErrorKind classifies why a git operation failed.
type GitErrorKind int

const (
	// GitErrUnknown is an unclassified failure.
	GitErrUnknown GitErrorKind = iota
	// GitErrAuth means the remote asked for credentials (usually a private or mistyped repo).
	GitErrAuth
	// GitErrRepoNotFound means the repository URL is wrong or inaccessible.
	GitErrRepoNotFound
	// GitErrNetwork means the host could not be reached.
	GitErrNetwork
	// GitErrDiverged means a fast-forward update was not possible.
	GitErrDiverged
	// GitErrRefNotFound means the requested branch or tag does not exist.
	GitErrRefNotFound
	// GitErrTimeout means the operation timed out.
	GitErrTimeout
)

// String returns a human-readable label for the error kind.
func (k GitErrorKind) String() string {
	switch k {
	case GitErrAuth:
		return "Authentication Required"
	case GitErrRepoNotFound:
		return "Repository Not Found"
	case GitErrNetwork:
		return "Network Error"
	case GitErrDiverged:
		return "Local Changes Block Update"
	case GitErrRefNotFound:
		return "Version Not Found"
	case GitErrTimeout:
		return "Timeout"
	default:
		return "Unknown Error"
	}
}

// GitError is a structured error returned when a git command fails.
// It wraps the raw git output with classification and actionable hints.
type GitError struct {
	Kind      GitErrorKind
	Op        string   // "clone" or "pull"
	URL       string   // Remote URL, empty for pulls of an existing checkout
	Command   string   // The git command that was run (for display)
	RawOutput string   // Raw stderr/stdout from git
	Hints     []string // Actionable suggestions for the user
}

// Error implements the error interface.
func (e *GitError) Error() string {
	return fmt.Sprintf("git %s failed (%s): %s", e.Op, e.Kind, e.firstLine())
}

// firstLine returns the first meaningful line of raw output.
func (e *GitError) firstLine() string {
	for _, line := range strings.Split(e.RawOutput, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "Cloning into") {
			return line
		}
	}
	return e.Op + " failed"
}

// IsGitError checks whether err wraps a *GitError and returns it.
func IsGitError(err error) (*GitError, bool) {
	var ge *GitError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// ClassifyGitError examines git output and returns a structured GitError.
func ClassifyGitError(op, remoteURL, command, rawOutput string) *GitError {
	kind := classifyGitOutput(rawOutput)
	return &GitError{
		Kind:      kind,
		Op:        op,
		URL:       remoteURL,
		Command:   command,
		RawOutput: strings.TrimSpace(rawOutput),
		Hints:     hintsForGitError(kind, remoteURL),
	}
}

// gitOutputRules map lowercase git output to a kind. Rules are checked in
// order; a rule matches when every entry of all is present and, if any is
// non-empty, at least one of any is present.
var gitOutputRules = []struct {
	kind GitErrorKind
	all  []string
	any  []string
}{
	// Emitted by runWithTimeout, not git.
	{kind: GitErrTimeout, any: []string{"timed out after"}},
	{kind: GitErrDiverged, any: []string{
		"not possible to fast-forward", "diverging branches",
		"would be overwritten by merge", "local changes",
	}},
	{kind: GitErrRefNotFound, all: []string{"remote branch", "not found"}},
	{kind: GitErrAuth, any: []string{
		"could not read username", "could not read password",
		"authentication failed", "permission denied", "403",
	}},
	{kind: GitErrRepoNotFound, any: []string{"does not appear to be a git repository", "not found"}},
	{kind: GitErrNetwork, any: []string{
		"could not resolve host", "connection refused", "connection timed out",
		"network is unreachable", "name or service not known",
	}},
}

func classifyGitOutput(output string) GitErrorKind {
	lower := strings.ToLower(output)
	has := func(s string) bool { return strings.Contains(lower, s) }

	for _, r := range gitOutputRules {
		ok := true
		for _, s := range r.all {
			ok = ok && has(s)
		}
		if ok && len(r.any) > 0 {
			ok = slices.ContainsFunc(r.any, has)
		}
		if ok {
			return r.kind
		}
	}
	return GitErrUnknown
}

var gitHints = map[GitErrorKind][]string{
	GitErrAuth: {
		"Check the repository URL for typos",
		"Private repositories cannot be cloned without credentials",
	},
	GitErrNetwork: {
		"Check the runtime's internet connection",
		"Verify the hostname in the URL is correct",
	},
	GitErrDiverged: {
		"The checkout has local modifications; it will be replaced by a fresh clone",
	},
	GitErrRefNotFound: {
		"Verify the custom version names an existing branch or tag",
		"Switch the version selector back to latest",
	},
	GitErrTimeout: {
		"The remote did not answer in time; try again",
	},
	GitErrUnknown: {
		"Check the git output above for details",
	},
}

// hintsForGitError returns suggestions for kind. SSH URLs that failed on
// access also get their HTTPS form suggested.
func hintsForGitError(kind GitErrorKind, remoteURL string) []string {
	lookup := kind
	if kind == GitErrRepoNotFound {
		lookup = GitErrAuth
	}
	hints := slices.Clone(gitHints[lookup])
	if lookup == GitErrAuth {
		if u := sshToHTTPS(remoteURL); u != "" {
			hints = append(hints, "Try the HTTPS form instead: "+u)
		}
	}
	return hints
}

// sshToHTTPS converts an SSH git URL to HTTPS format.
// Returns empty string if conversion is not possible.
func sshToHTTPS(url string) string {
	if !strings.HasPrefix(url, "git@") {
		return ""
	}
	parts := strings.SplitN(strings.TrimPrefix(url, "git@"), ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return "https://" + parts[0] + "/" + parts[1]
}

// FormatCloneCommand builds the display string for a git clone command.
func FormatCloneCommand(url, ref string, shallow bool) string {
	args := []string{"git", "clone"}
	if shallow {
		args = append(args, "--depth", "1")
	}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, url)
	return strings.Join(args, " ")
}
