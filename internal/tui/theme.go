package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// Palette. Adaptive colors keep the interface readable on light notebook
// terminals as well as dark ones.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#14B8A6"} // teal
	colorSoft    = lipgloss.AdaptiveColor{Light: "#115E59", Dark: "#99F6E4"}
	colorOK      = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorFail    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorFrame   = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#3F3F46"}
	colorText    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"}
)

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Header.
var (
	logoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#042F2E")).
			Background(colorAccent).
			Padding(0, 1)
	headerPathStyle = fg(colorText).Bold(true).Padding(0, 1)
	headerHintStyle = fg(colorDim)
)

// Body.
var (
	contentStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(1, 2)

	selectedItemStyle = fg(colorAccent).Bold(true)
	normalItemStyle   = fg(colorText)
	mutedStyle        = fg(colorDim)
	badgeStyle        = fg(colorSoft)
	installedStyle    = fg(colorOK)
	errorStyle        = fg(colorFail)
	warningStyle      = fg(colorWarning)
	helpStyle         = fg(colorDim)
	spinnerStyle      = fg(colorAccent)

	viewportTitleStyle = fg(colorText).Bold(true).Background(colorFrame).Padding(0, 1)
	scrollPctStyle     = fg(colorText).Background(colorFrame)
)

// Status bar.
var (
	statusSuccessStyle = fg(colorOK)
	statusErrorStyle   = fg(colorFail).Bold(true)
	statusWarningStyle = fg(colorWarning)
	statusTaskStyle    = fg(colorSoft)
)

// Category tabs.
var (
	tabActiveStyle    = fg(colorAccent).Bold(true)
	tabInactiveStyle  = fg(colorDim)
	tabSeparatorStyle = fg(colorFrame)
	tabUnderlineStyle = fg(colorAccent)
)

// Confirm dialog.
var (
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorWarning).
			Padding(1, 3)
	dialogButtonStyle       = fg(colorText).Background(colorFrame).Padding(0, 2)
	dialogActiveButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(colorFail).
				Bold(true).
				Padding(0, 2)
)

// renderSectionHeader renders a settings group label followed by a rule
// that fills the available width:
//
//	STORAGE ─────────────────
func renderSectionHeader(label string, width int) string {
	head := "  " + fg(colorDim).Bold(true).Render(label) + " "
	n := max(2, min(40, width-lipgloss.Width(head)-2))
	return head + fg(colorFrame).Render(strings.Repeat("─", n))
}

// newCatalogDelegate styles catalog rows: file name over badge and locator,
// with a left bar on the selected row.
func newCatalogDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	pad := lipgloss.NewStyle().Padding(0, 0, 0, 2)
	bar := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(colorAccent).
		Padding(0, 0, 0, 1)

	d.Styles.NormalTitle = pad.Foreground(colorText)
	d.Styles.NormalDesc = pad.Foreground(colorDim)
	d.Styles.SelectedTitle = bar.Foreground(colorAccent).Bold(true)
	d.Styles.SelectedDesc = bar.Foreground(colorSoft)
	d.Styles.DimmedTitle = pad.Foreground(colorDim)
	d.Styles.DimmedDesc = pad.Foreground(colorFrame)
	d.Styles.FilterMatch = lipgloss.NewStyle().Underline(true)
	d.SetSpacing(1)
	return d
}
