package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ducnote/ducnote/internal/core"
)

// gitRetryMsg restarts the run. A non-empty repoURL replaces the
// application repository first.
type gitRetryMsg struct {
	repoURL string
}

// gitErrorModel replaces the run view when the application checkout fails
// with a classified *core.GitError. Pressing e edits the repository URL in
// place; enter or r retries.
type gitErrorModel struct {
	width  int
	height int

	gitErr       *core.GitError
	editing      bool
	input        textinput.Model
	scrollOffset int
}

func newGitErrorModel() gitErrorModel {
	ti := textinput.New()
	ti.Placeholder = "https://github.com/comfyanonymous/ComfyUI"
	ti.CharLimit = 512
	return gitErrorModel{input: ti}
}

func (m gitErrorModel) setSize(width, height int) gitErrorModel {
	m.width, m.height = width, height
	m.input.Width = max(10, width-8)
	return m
}

// activate shows ge for a run that used repoURL.
func (m gitErrorModel) activate(ge *core.GitError, repoURL string) gitErrorModel {
	m.gitErr = ge
	m.editing = false
	m.scrollOffset = 0
	m.input.Blur()
	m.input.SetValue(repoURL)
	return m
}

func (m gitErrorModel) retry() tea.Cmd {
	url := strings.TrimSpace(m.input.Value())
	return func() tea.Msg { return gitRetryMsg{repoURL: url} }
}

func (m gitErrorModel) update(msg tea.Msg) (gitErrorModel, tea.Cmd) {
	if m.gitErr == nil {
		return m, nil
	}
	kmsg, isKey := msg.(tea.KeyMsg)

	if m.editing {
		switch {
		case isKey && key.Matches(kmsg, keys.Back):
			m.editing = false
			m.input.Blur()
			return m, nil
		case isKey && key.Matches(kmsg, keys.Enter):
			m.editing = false
			m.input.Blur()
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			return m, m.retry()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if !isKey {
		return m, nil
	}
	switch {
	case key.Matches(kmsg, keys.Edit):
		m.editing = true
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(kmsg, keys.Retry):
		return m, m.retry()
	case key.Matches(kmsg, keys.Down):
		m.scrollOffset++
	case key.Matches(kmsg, keys.Up):
		m.scrollOffset = max(0, m.scrollOffset-1)
	}
	return m, nil
}

func (m gitErrorModel) view() string {
	ge := m.gitErr
	if ge == nil {
		return ""
	}

	var out []string
	section := func(label string, lines ...string) {
		if len(lines) == 0 {
			return
		}
		out = append(out, mutedStyle.Render("  "+label))
		out = append(out, lines...)
		out = append(out, "")
	}

	out = append(out, "  "+errorStyle.Bold(true).Render("Checkout failed: "+ge.Kind.String()), "")
	if ge.Command != "" {
		section("$", "    "+normalItemStyle.Render(ge.Command))
	}

	var output []string
	for _, line := range strings.Split(ge.RawOutput, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			output = append(output, "    "+errorStyle.Render(line))
		}
	}
	section("git said", output...)

	hints := make([]string, 0, len(ge.Hints))
	for _, h := range ge.Hints {
		hints = append(hints, "    "+hintBulletStyle.Render("›")+" "+normalItemStyle.Render(h))
	}
	section("Try", hints...)

	if m.editing {
		section("Application repository", "  "+m.input.View())
	} else {
		out = append(out, "  "+gitErrorActions())
	}

	if m.scrollOffset > 0 && m.scrollOffset < len(out) {
		out = out[m.scrollOffset:]
	}
	return strings.Join(out, "\n")
}

var (
	hintBulletStyle = lipgloss.NewStyle().Foreground(colorWarning)
	hintKeyStyle    = lipgloss.NewStyle().Foreground(colorSoft).Bold(true)
)

func gitErrorActions() string {
	return strings.Join([]string{
		hintKeyStyle.Render("e") + " " + normalItemStyle.Render("edit repository URL"),
		hintKeyStyle.Render("r") + " " + normalItemStyle.Render("retry run"),
		hintKeyStyle.Render("esc") + " " + normalItemStyle.Render("back"),
	}, mutedStyle.Render("  ·  "))
}
