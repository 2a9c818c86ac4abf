package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type statusMsgKind int

const (
	statusSuccess statusMsgKind = iota
	statusError
	statusWarning
)

const statusAutoDismiss = 3 * time.Second

var statusKinds = map[statusMsgKind]struct {
	icon  string
	style lipgloss.Style
}{
	statusSuccess: {"✓", statusSuccessStyle},
	statusError:   {"✗", statusErrorStyle},
	statusWarning: {"!", statusWarningStyle},
}

type (
	// statusDismissMsg fires when a message's timer expires. Timers of
	// replaced messages carry an old id and are ignored.
	statusDismissMsg struct{ id int }

	// taskStartedMsg and taskDoneMsg bracket background work such as link
	// validation or an installation run.
	taskStartedMsg struct{ label string }
	taskDoneMsg    struct{}
)

// statusBarModel is the footer line. A transient message, when set, takes
// the place of the key help. Background tasks show on the right with a
// spinner and, when they overlap, a done/total counter.
type statusBarModel struct {
	width int

	msg     string
	msgKind statusMsgKind
	msgID   int
	nextID  int

	tasks   int
	done    int
	label   string
	spinner spinner.Model
}

func newStatusBarModel() statusBarModel {
	return statusBarModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle)),
	}
}

func (m statusBarModel) showMsg(text string, kind statusMsgKind) (statusBarModel, tea.Cmd) {
	m.nextID++
	m.msgID = m.nextID
	m.msg, m.msgKind = text, kind

	id := m.msgID
	return m, tea.Tick(statusAutoDismiss, func(time.Time) tea.Msg { return statusDismissMsg{id: id} })
}

func (m statusBarModel) tasksRunning() bool {
	return m.done < m.tasks
}

func (m statusBarModel) update(msg tea.Msg) (statusBarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statusDismissMsg:
		if msg.id == m.msgID {
			m.msg = ""
		}

	case taskStartedMsg:
		m.tasks++
		m.label = msg.label
		if m.tasks == 1 {
			return m, m.spinner.Tick
		}

	case taskDoneMsg:
		if m.done++; m.done >= m.tasks {
			m.tasks, m.done, m.label = 0, 0, ""
		}

	case spinner.TickMsg:
		if m.tasksRunning() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// view lays out the left zone and the task zone on one line of m.width.
func (m statusBarModel) view(help string) string {
	left := m.renderLeft()
	if left == "" {
		left = help
	}
	right := m.renderRight()
	if right == "" {
		return left
	}
	gap := max(2, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m statusBarModel) renderLeft() string {
	if m.msg == "" {
		return ""
	}
	k := statusKinds[m.msgKind]
	return k.style.Render(k.icon + " " + m.msg)
}

func (m statusBarModel) renderRight() string {
	if !m.tasksRunning() {
		return ""
	}
	label := m.label
	if label == "" {
		label = "working"
	}
	if m.tasks > 1 {
		label = fmt.Sprintf("%s %d/%d", label, m.done, m.tasks)
	}
	return statusTaskStyle.Render(m.spinner.View() + " " + label)
}
