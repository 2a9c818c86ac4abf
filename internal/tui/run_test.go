package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ducnote/ducnote/internal/core"
)

func TestSummaryMarkdown(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		res  *core.RunResult
		err  error
		want []string
	}{
		{
			name: "public",
			res: &core.RunResult{
				Outcome:     core.RunPublic,
				PublicURL:   "https://quiet-lake.trycloudflare.com",
				Destination: "/content/drive/MyDrive/ComfyUI",
				Records: []core.InstallationRecord{
					{Locator: "https://x.test/a.safetensors", Outcome: core.OutcomeInstalled, Bytes: 2048},
					{Locator: "https://x.test/b.pth", Outcome: core.OutcomeAlreadyPresent},
				},
				StartedAt:  start,
				FinishedAt: start.Add(90 * time.Second),
			},
			want: []string{"## Ready", "https://quiet-lake.trycloudflare.com", "| 1 | 1 | 0 | 2.0 kB | 1m30s |"},
		},
		{
			name: "local only",
			res:  &core.RunResult{Outcome: core.RunLocalOnly, Port: 8188, Warnings: []string{"tunnel exited"}},
			want: []string{"## Ready (local only)", "**8188**", "### Warnings", "- tunnel exited"},
		},
		{
			name: "aborted with failures",
			res: &core.RunResult{
				Outcome: core.RunAborted,
				Err:     errors.New("checkout failed"),
				Records: []core.InstallationRecord{
					{Locator: "https://x.test/c.ckpt", Outcome: core.OutcomeFailed, Err: errors.New("HTTP 404")},
				},
			},
			want: []string{"## Run aborted", "checkout failed", "### Failed", "**c.ckpt**: HTTP 404"},
		},
		{
			name: "no result",
			err:  errors.New("run already in progress"),
			want: []string{"## Run failed", "run already in progress"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summaryMarkdown(tt.res, tt.err)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("summary missing %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestRunModel_AppendLine(t *testing.T) {
	m := newRunModel().setSize(80, 20)
	m, _ = m.start()
	m = m.appendLine(runLineMsg{text: "Installing ComfyUI-Manager"})
	m = m.appendLine(runLineMsg{text: "HTTP 404", isErr: true})

	if len(m.lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(m.lines))
	}
	if !m.running {
		t.Error("run should be marked running after start")
	}
	if !strings.Contains(m.content(), "Installing ComfyUI-Manager") {
		t.Error("content should include progress lines")
	}
}
