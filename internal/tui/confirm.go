package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const confirmWidth = 44

// confirmResultMsg reports how a confirmation was answered.
type confirmResultMsg struct {
	confirmed bool
}

// confirmModel asks a yes/no question before a catalog edit or a purge.
// While active it swallows every key so nothing reaches the views below.
// No is focused when the dialog opens.
type confirmModel struct {
	active    bool
	message   string
	detail    string // optional second line, e.g. the path a purge deletes
	onConfirm tea.Cmd
	focusYes  bool

	width  int
	height int
}

var confirmKeys = struct {
	yes, no, swap key.Binding
}{
	yes:  key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
	no:   key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "no")),
	swap: key.NewBinding(key.WithKeys("left", "right", "h", "l", "tab", "shift+tab")),
}

func newConfirmModel() confirmModel {
	return confirmModel{}
}

func (m confirmModel) show(message, detail string, onConfirm tea.Cmd) confirmModel {
	return confirmModel{
		active:    true,
		message:   message,
		detail:    detail,
		onConfirm: onConfirm,
		width:     m.width,
		height:    m.height,
	}
}

func (m confirmModel) setSize(width, height int) confirmModel {
	m.width = width
	m.height = height
	return m
}

func (m confirmModel) dismiss() confirmModel {
	return confirmModel{width: m.width, height: m.height}
}

// answer closes the dialog. A yes runs onConfirm alongside the result.
func (m confirmModel) answer(yes bool) (confirmModel, tea.Cmd) {
	action := m.onConfirm
	m = m.dismiss()
	result := func() tea.Msg { return confirmResultMsg{confirmed: yes} }
	if !yes {
		return m, result
	}
	return m, tea.Batch(action, result)
}

// update reports whether msg was consumed by the dialog.
func (m confirmModel) update(msg tea.Msg) (confirmModel, tea.Cmd, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !m.active || !ok {
		return m, nil, false
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(kmsg, confirmKeys.yes):
		m, cmd = m.answer(true)
	case key.Matches(kmsg, confirmKeys.no), key.Matches(kmsg, keys.Back):
		m, cmd = m.answer(false)
	case key.Matches(kmsg, keys.Enter):
		m, cmd = m.answer(m.focusYes)
	case key.Matches(kmsg, confirmKeys.swap):
		m.focusYes = !m.focusYes
	}
	return m, cmd, true
}

func (m confirmModel) view() string {
	if !m.active {
		return ""
	}

	button := func(label string, focused bool) string {
		if focused {
			return dialogActiveButtonStyle.Render(label)
		}
		return dialogButtonStyle.Render(label)
	}
	centered := lipgloss.NewStyle().Width(confirmWidth).Align(lipgloss.Center)

	rows := []string{centered.Render(m.message)}
	if m.detail != "" {
		rows = append(rows, centered.Inherit(mutedStyle).Render(m.detail))
	}
	rows = append(rows, "",
		lipgloss.JoinHorizontal(lipgloss.Top, button("Yes", m.focusYes), "  ", button("No", !m.focusYes)),
		"",
		mutedStyle.Render("y/n answer · ←/→ switch · esc cancel"),
	)
	box := dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, rows...))

	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
