package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ducnote/ducnote/internal/core"
)

// runDoneMsg is sent when an orchestration run returns.
type runDoneMsg struct {
	result *core.RunResult
	err    error
}

// runSummaryRenderedMsg is sent when background glamour rendering completes.
type runSummaryRenderedMsg struct {
	content  string
	renderer *glamour.TermRenderer
}

// runModel streams the progress of an orchestration run and shows a
// summary once it returns.
type runModel struct {
	width  int
	height int

	viewport viewport.Model
	spinner  spinner.Model

	lines   []string
	running bool
	summary string // Rendered markdown, empty until the run finishes.

	// Cached glamour renderer (lazy-initialized on first summary).
	renderer *glamour.TermRenderer
}

func newRunModel() runModel {
	return runModel{
		viewport: viewport.New(0, 0),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(spinnerStyle),
		),
	}
}

func (m runModel) setSize(width, height int) runModel {
	m.width = width
	m.height = height
	// Title line, blank line, blank line and footer.
	m.viewport.Width = width
	m.viewport.Height = max(0, height-4)
	m.viewport.SetContent(m.content())
	return m
}

// start clears the log for a new run.
func (m runModel) start() (runModel, tea.Cmd) {
	m.lines = nil
	m.summary = ""
	m.running = true
	m.viewport.SetContent("")
	m.viewport.GotoTop()
	return m, m.spinner.Tick
}

func (m runModel) appendLine(msg runLineMsg) runModel {
	line := msg.text
	if msg.isErr {
		line = errorStyle.Render("✗ " + line)
	}
	atBottom := m.viewport.AtBottom()
	m.lines = append(m.lines, line)
	m.viewport.SetContent(m.content())
	if atBottom {
		m.viewport.GotoBottom()
	}
	return m
}

// finish stops the spinner and renders the summary in the background.
func (m runModel) finish(res *core.RunResult, err error) (runModel, tea.Cmd) {
	m.running = false
	raw := summaryMarkdown(res, err)
	width := m.width
	cached := m.renderer
	return m, func() tea.Msg {
		r := cached
		if r == nil {
			var rerr error
			r, rerr = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(max(20, width)),
			)
			if rerr != nil {
				return runSummaryRenderedMsg{content: raw}
			}
		}
		out, rerr := r.Render(raw)
		if rerr != nil {
			out = raw
		}
		return runSummaryRenderedMsg{content: strings.TrimRight(out, "\n"), renderer: r}
	}
}

func (m runModel) update(msg tea.Msg) (runModel, tea.Cmd) {
	switch msg := msg.(type) {
	case runSummaryRenderedMsg:
		m.summary = msg.content
		if msg.renderer != nil {
			m.renderer = msg.renderer
		}
		m.viewport.SetContent(m.content())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m runModel) content() string {
	body := strings.Join(m.lines, "\n")
	if m.summary != "" {
		body += "\n\n" + m.summary
	}
	return body
}

func (m runModel) view() string {
	titleText := " Installation "
	if m.running {
		titleText = " Installing "
	}
	title := viewportTitleStyle.Render(titleText)
	status := ""
	if m.running {
		status = " " + m.spinner.View()
	}
	line := strings.Repeat("─", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(status)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, status, mutedStyle.Render(line))

	if len(m.lines) == 0 && m.summary == "" {
		return header + "\n\n" + mutedStyle.Render("  Starting...")
	}

	pct := fmt.Sprintf(" %3.0f%% ", m.viewport.ScrollPercent()*100)
	footer := scrollPctStyle.Render(pct)
	return header + "\n\n" + m.viewport.View() + "\n\n" + footer
}

// summaryMarkdown describes a finished run as markdown.
func summaryMarkdown(res *core.RunResult, err error) string {
	var b strings.Builder
	if res == nil {
		b.WriteString("## Run failed\n\n")
		if err != nil {
			fmt.Fprintf(&b, "%s\n", err)
		}
		return b.String()
	}

	switch res.Outcome {
	case core.RunPublic:
		b.WriteString("## Ready\n\n")
		fmt.Fprintf(&b, "Public URL: **%s**\n\n", res.PublicURL)
	case core.RunLocalOnly:
		b.WriteString("## Ready (local only)\n\n")
		fmt.Fprintf(&b, "No public URL. The application listens on port **%d**.\n\n", res.Port)
	case core.RunInstalled:
		b.WriteString("## Installed\n\n")
	default:
		b.WriteString("## Run aborted\n\n")
		if res.Err != nil {
			fmt.Fprintf(&b, "%s\n\n", res.Err)
		}
	}

	if res.Destination != "" {
		fmt.Fprintf(&b, "Destination: `%s`\n\n", res.Destination)
	}

	var bytes int64
	for _, rec := range res.Records {
		bytes += rec.Bytes
	}
	b.WriteString("| Installed | Already present | Failed | Downloaded | Took |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %s | %s |\n\n",
		res.Count(core.OutcomeInstalled),
		res.Count(core.OutcomeAlreadyPresent),
		res.Count(core.OutcomeFailed),
		humanize.Bytes(uint64(bytes)),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Second),
	)

	if res.Count(core.OutcomeFailed) > 0 {
		b.WriteString("### Failed\n\n")
		for _, rec := range res.Records {
			if rec.Outcome == core.OutcomeFailed {
				fmt.Fprintf(&b, "- **%s**: %v\n", core.Basename(rec.Locator), rec.Err)
			}
		}
		b.WriteString("\n")
	}

	if len(res.Warnings) > 0 {
		b.WriteString("### Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
