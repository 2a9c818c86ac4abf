package core

import (
	"fmt"
	"strings"
	"testing"
)

func TestClassifyGitOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		wantKind GitErrorKind
	}{
		{
			name:     "https could not read username",
			output:   "fatal: could not read Username for 'https://github.com': terminal prompts disabled",
			wantKind: GitErrAuth,
		},
		{
			name:     "https 403",
			output:   "fatal: unable to access 'https://github.com/owner/repo.git/': The requested URL returned error: 403",
			wantKind: GitErrAuth,
		},
		{
			name:     "repository not found",
			output:   "remote: Repository not found.\nfatal: repository 'https://github.com/owner/nope.git/' not found",
			wantKind: GitErrRepoNotFound,
		},
		{
			name:     "not a git repository",
			output:   "fatal: '/tmp/nothing' does not appear to be a git repository",
			wantKind: GitErrRepoNotFound,
		},
		{
			name:     "unknown branch",
			output:   "Cloning into 'ComfyUI'...\nwarning: Could not find remote branch v9.9.9 to clone.\nfatal: Remote branch v9.9.9 not found in upstream origin",
			wantKind: GitErrRefNotFound,
		},
		{
			name:     "pull not fast-forward",
			output:   "hint: Diverging branches can't be fast-forwarded\nfatal: Not possible to fast-forward, aborting.",
			wantKind: GitErrDiverged,
		},
		{
			name:     "local changes",
			output:   "error: Your local changes to the following files would be overwritten by merge:\n\tmain.py",
			wantKind: GitErrDiverged,
		},
		{
			name:     "dns failure",
			output:   "fatal: unable to access 'https://github.com/o/r/': Could not resolve host: github.com",
			wantKind: GitErrNetwork,
		},
		{
			name:     "timeout from runner",
			output:   "command timed out after 1m0s",
			wantKind: GitErrTimeout,
		},
		{
			name:     "something else",
			output:   "fatal: early EOF",
			wantKind: GitErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGitOutput(tt.output)
			if got != tt.wantKind {
				t.Errorf("classifyGitOutput() = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

func TestGitError_Message(t *testing.T) {
	ge := ClassifyGitError("clone", "https://github.com/o/r", "git clone https://github.com/o/r",
		"Cloning into 'r'...\nremote: Repository not found.\n")

	msg := ge.Error()
	if !strings.Contains(msg, "git clone failed") {
		t.Errorf("Error() = %q, want it to mention the operation", msg)
	}
	if !strings.Contains(msg, "Repository not found") {
		t.Errorf("Error() = %q, want first meaningful output line", msg)
	}
	if strings.Contains(msg, "Cloning into") {
		t.Errorf("Error() = %q, should skip the progress line", msg)
	}
	if len(ge.Hints) == 0 {
		t.Error("expected hints for a not-found error")
	}
}

func TestIsGitError_Wrapped(t *testing.T) {
	ge := ClassifyGitError("pull", "", "git pull --ff-only", "fatal: Not possible to fast-forward, aborting.")
	wrapped := fmt.Errorf("updating app: %w", ge)

	got, ok := IsGitError(wrapped)
	if !ok {
		t.Fatal("IsGitError() = false, want true")
	}
	if got.Kind != GitErrDiverged {
		t.Errorf("Kind = %v, want %v", got.Kind, GitErrDiverged)
	}

	if _, ok := IsGitError(fmt.Errorf("plain")); ok {
		t.Error("IsGitError() = true for plain error")
	}
	if _, ok := IsGitError(nil); ok {
		t.Error("IsGitError(nil) = true")
	}
}

func TestSSHToHTTPS(t *testing.T) {
	if got := sshToHTTPS("git@github.com:owner/repo.git"); got != "https://github.com/owner/repo.git" {
		t.Errorf("sshToHTTPS() = %q", got)
	}
	if got := sshToHTTPS("https://github.com/owner/repo"); got != "" {
		t.Errorf("sshToHTTPS() = %q, want empty", got)
	}
}

func TestFormatCloneCommand(t *testing.T) {
	got := FormatCloneCommand("https://github.com/o/r", "v1.2", true)
	want := "git clone --depth 1 --branch v1.2 https://github.com/o/r"
	if got != want {
		t.Errorf("FormatCloneCommand() = %q, want %q", got, want)
	}
}
