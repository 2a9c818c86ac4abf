package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ducnote/ducnote/internal/core"
)

// catalogAddDoneMsg is sent when an add (including its link check) finishes.
type catalogAddDoneMsg struct {
	category string
	locator  string
	err      error
}

// catalogChangedMsg is sent after a remove, purge or reset.
type catalogChangedMsg struct {
	text string
	err  error
}

// catalogModel is the main view: one tab per category, each listing its
// locators with their kind, origin and presence on storage.
type catalogModel struct {
	width  int
	height int

	tabs tabsModel
	list list.Model

	// Inline "add link" input.
	adding bool
	input  textinput.Model
}

func newCatalogModel() catalogModel {
	l := list.New(nil, newCatalogDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.SetShowPagination(false)

	ti := textinput.New()
	ti.Placeholder = "Paste a download URL, repository URL or local path..."
	ti.CharLimit = 1024
	ti.Prompt = "  + "

	return catalogModel{
		tabs:  newTabsModel(),
		list:  l,
		input: ti,
	}
}

func (m catalogModel) setSize(width, height int) catalogModel {
	m.width = width
	m.height = height
	m.tabs = m.tabs.setWidth(width)
	m.input.Width = max(10, width-8)
	m.list.SetSize(width, max(1, height))
	return m
}

// setData rebuilds tabs and the active category's items.
func (m catalogModel) setData(c *core.Catalog, resolver *core.Resolver) catalogModel {
	if c == nil {
		return m
	}
	m.tabs = m.tabs.setCategories(c.Categories(), func(k string) int { return len(c.List(k)) })
	m.list.SetItems(catalogToItems(c, m.tabs.activeKey(), resolver))
	return m
}

func (m catalogModel) inputFocused() bool {
	return m.adding
}

func (m catalogModel) selected() (catalogItem, bool) {
	it, ok := m.list.SelectedItem().(catalogItem)
	return it, ok
}

func (m catalogModel) update(msg tea.Msg, app *App) (catalogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tabActiveMsg:
		m.list.ResetFilter()
		m.list.Select(0)
		m.list.SetItems(catalogToItems(app.catalog, m.tabs.activeKey(), app.resolver))
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			switch {
			case key.Matches(msg, keys.Back):
				m.adding = false
				m.input.Blur()
				m.input.SetValue("")
				return m, nil
			case key.Matches(msg, keys.Enter):
				value := strings.TrimSpace(m.input.Value())
				m.adding = false
				m.input.Blur()
				m.input.SetValue("")
				if value == "" {
					return m, nil
				}
				var taskCmd tea.Cmd
				app.statusBar, taskCmd = app.statusBar.update(taskStartedMsg{label: "validating link"})
				return m, tea.Batch(m.addCmd(app, m.tabs.activeKey(), value), taskCmd)
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
		}

		if m.list.SettingFilter() {
			break
		}

		var cmd tea.Cmd
		var consumed bool
		m.tabs, cmd, consumed = m.tabs.update(msg, m.list.IsFiltered())
		if consumed {
			return m, cmd
		}

		switch {
		case key.Matches(msg, keys.Add):
			m.adding = true
			m.input.Focus()
			return m, textinput.Blink

		case key.Matches(msg, keys.Delete):
			return m, m.confirmRemove(app, false)

		case key.Matches(msg, keys.Purge):
			return m, m.confirmRemove(app, true)

		case key.Matches(msg, keys.Reset):
			app.confirm = app.confirm.show(
				"Reset the catalog to its built-in entries?",
				"Links you added are dropped. Files on storage are kept.",
				func() tea.Msg {
					app.catalog.Reset()
					return catalogChangedMsg{text: "Catalog reset"}
				},
			)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// addCmd adds locator to category after the link check.
func (m catalogModel) addCmd(app *App, category, locator string) tea.Cmd {
	ctx := app.ctx
	c := app.catalog
	probe := app.probe
	return func() tea.Msg {
		err := c.Add(ctx, category, locator, probe)
		return catalogAddDoneMsg{category: category, locator: locator, err: err}
	}
}

// confirmRemove asks before removing the selected entry. With purge the
// artifact is also deleted from storage.
func (m catalogModel) confirmRemove(app *App, purge bool) tea.Cmd {
	it, ok := m.selected()
	if !ok {
		return nil
	}
	name := core.Basename(it.locator)
	label := it.category
	if cat, ok := app.catalog.Category(it.category); ok {
		label = cat.Label
	}

	c := app.catalog
	resolver := app.resolver
	if !purge {
		app.confirm = app.confirm.show(
			fmt.Sprintf("Remove %s from %s?", name, label),
			"Files on storage are kept.",
			func() tea.Msg {
				c.Remove(it.category, it.locator)
				return catalogChangedMsg{text: fmt.Sprintf("Removed %s", name)}
			},
		)
		return nil
	}

	if resolver == nil {
		return func() tea.Msg {
			return catalogChangedMsg{err: errors.New(`folderMode "new" has no fixed destination to delete from`)}
		}
	}
	app.confirm = app.confirm.show(
		fmt.Sprintf("Remove %s and delete it from storage?", name),
		it.path,
		func() tea.Msg {
			c.Remove(it.category, it.locator)
			if !it.present {
				return catalogChangedMsg{text: fmt.Sprintf("Removed %s (nothing on storage)", name)}
			}
			res, err := core.NewRemover(resolver).Purge(it.category, it.locator)
			if err != nil {
				return catalogChangedMsg{err: fmt.Errorf("deleting %s: %w", name, err)}
			}
			return catalogChangedMsg{text: fmt.Sprintf("Deleted %s (%s)", name, humanize.Bytes(uint64(res.Bytes)))}
		},
	)
	return nil
}

func (m catalogModel) view() string {
	tabBar := m.tabs.view()
	if tabBar == "" {
		return mutedStyle.Render("  Loading catalog...")
	}

	// Render-then-measure: chrome first, then give the list what remains.
	var footer string
	if m.adding {
		footer = "\n\n" + m.input.View()
	} else {
		footer = "\n\n  " + mutedStyle.Render("[a] add link") +
			"  " + mutedStyle.Render("[i] install") +
			"  " + mutedStyle.Render("[s] settings")
	}
	header := tabBar + "\n\n"
	chromeH := lipgloss.Height(header) + lipgloss.Height(footer)

	count := len(m.list.Items())
	if count > 0 {
		maxH := max(1, m.height-chromeH)
		// Height(2) + Spacing(1) per item, +1 for the list's filter bar line.
		listH := min(count*3+1, maxH)
		m.list.SetSize(m.width, listH)
	}

	var b strings.Builder
	b.WriteString(header)
	if count == 0 {
		b.WriteString(mutedStyle.Render("  No links in this category."))
	} else {
		b.WriteString(m.list.View())
	}
	b.WriteString(footer)
	return b.String()
}
