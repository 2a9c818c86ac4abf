package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ducnote/ducnote/internal/core"
)

// tabActiveMsg is emitted after the active tab changes.
type tabActiveMsg int

// tabsModel is the category tab bar.
//
// Visual style:
//
//	Custom Extensions (2)  │  LoRA Models (0)  │  …
//	─────────────────────
//
// When the labels do not fit, the bar scrolls so the active tab stays visible.
type tabsModel struct {
	keys      []string // category keys, in processing order
	tabs      []string // labels including counts, e.g. "LoRA Models (3)"
	activeTab int
	width     int
}

func newTabsModel() tabsModel {
	return tabsModel{}
}

func (m tabsModel) setWidth(width int) tabsModel {
	m.width = width
	return m
}

// setCategories rebuilds the labels from the catalog.
func (m tabsModel) setCategories(categories []core.Category, count func(key string) int) tabsModel {
	m.keys = make([]string, 0, len(categories))
	m.tabs = make([]string, 0, len(categories))
	for _, c := range categories {
		m.keys = append(m.keys, c.Key)
		m.tabs = append(m.tabs, fmt.Sprintf("%s (%d)", c.Label, count(c.Key)))
	}
	if m.activeTab >= len(m.tabs) {
		m.activeTab = 0
	}
	return m
}

// activeKey returns the category key of the active tab.
func (m tabsModel) activeKey() string {
	if m.activeTab < len(m.keys) {
		return m.keys[m.activeTab]
	}
	return ""
}

// update handles Tab / Shift+Tab to cycle through tabs.
// Returns the updated model, an optional command, and whether the key was consumed.
// blocked should be true when the parent wants to prevent tab switching (e.g. during filter mode).
func (m tabsModel) update(msg tea.Msg, blocked bool) (tabsModel, tea.Cmd, bool) {
	if blocked {
		return m, nil, false
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, false
	}

	n := len(m.tabs)
	if n == 0 {
		return m, nil, false
	}

	switch {
	case key.Matches(kmsg, keys.Tab):
		m.activeTab = (m.activeTab + 1) % n
		return m, func() tea.Msg { return tabActiveMsg(m.activeTab) }, true

	case key.Matches(kmsg, keys.ShiftTab):
		m.activeTab = (m.activeTab - 1 + n) % n
		return m, func() tea.Msg { return tabActiveMsg(m.activeTab) }, true
	}

	return m, nil, false
}

// window returns the first visible tab so the active one fits in width.
func (m tabsModel) window(sepW int) int {
	if m.width <= 0 {
		return 0
	}
	first := 0
	for first < m.activeTab {
		w := 2
		for i := first; i <= m.activeTab; i++ {
			w += lipgloss.Width(m.tabs[i])
			if i > first {
				w += sepW
			}
		}
		if w <= m.width {
			break
		}
		first++
	}
	return first
}

// view renders the tab bar and the underline below the active tab.
func (m tabsModel) view() string {
	if len(m.tabs) == 0 {
		return ""
	}

	sep := tabSeparatorStyle.Render("  │  ")
	first := m.window(lipgloss.Width(sep))

	var parts []string
	for i := first; i < len(m.tabs); i++ {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(m.tabs[i]))
		} else {
			parts = append(parts, tabInactiveStyle.Render(m.tabs[i]))
		}
	}

	lead := "  "
	if first > 0 {
		lead = mutedStyle.Render("… ")
	}
	tabLine := lead + strings.Join(parts, sep)

	offset := 2
	for i := first; i < m.activeTab; i++ {
		offset += lipgloss.Width(m.tabs[i]) + lipgloss.Width(sep)
	}
	underline := strings.Repeat(" ", offset) +
		tabUnderlineStyle.Render(strings.Repeat("─", lipgloss.Width(m.tabs[m.activeTab])))

	return tabLine + "\n" + underline
}
