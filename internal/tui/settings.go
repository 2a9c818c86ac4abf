package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ducnote/ducnote/internal/core"
)

// settingsField identifies one row of the settings form.
type settingsField int

const (
	fieldStorageRoot settingsField = iota
	fieldFolderMode
	fieldFolderName
	fieldAppVersion
	fieldCustomVersion
	fieldConcurrency
	fieldAppRepo
	fieldHost
	fieldPort
	fieldTunnel
	fieldRemember
	fieldCount
)

// settingsSavedMsg is sent after the draft has been applied.
type settingsSavedMsg struct {
	err error
}

var folderModes = []core.FolderMode{core.FolderFixed, core.FolderNew, core.FolderExisting}

// settingsModel edits a draft copy of the configuration. Nothing changes
// until the draft is saved with ctrl+s.
type settingsModel struct {
	width  int
	height int

	cursor settingsField

	editing bool
	input   textinput.Model

	draft core.Config
	dirty bool
}

func newSettingsModel() settingsModel {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Prompt = ""
	return settingsModel{input: ti}
}

func (m settingsModel) setSize(width, height int) settingsModel {
	m.width = width
	m.height = height
	m.input.Width = max(10, width-30)
	return m
}

// activate starts a fresh draft from cfg.
func (m settingsModel) activate(cfg *core.Config) settingsModel {
	m.draft = *cfg
	m.draft.Settings.HostingDomains = append([]string(nil), cfg.Settings.HostingDomains...)
	m.cursor = fieldStorageRoot
	m.editing = false
	m.dirty = false
	m.input.Blur()
	return m
}

func (m settingsModel) inputFocused() bool {
	return m.editing
}

func (m settingsModel) update(msg tea.Msg, app *App) (settingsModel, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.editing {
		switch {
		case key.Matches(kmsg, keys.Back):
			m.editing = false
			m.input.Blur()
			return m, nil
		case key.Matches(kmsg, keys.Enter):
			if err := m.commit(strings.TrimSpace(m.input.Value())); err != nil {
				var cmd tea.Cmd
				app.statusBar, cmd = app.statusBar.showMsg(err.Error(), statusError)
				return m, cmd
			}
			m.editing = false
			m.input.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(kmsg)
			return m, cmd
		}
	}

	switch {
	case key.Matches(kmsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(kmsg, keys.Down):
		if m.cursor < fieldCount-1 {
			m.cursor++
		}
	case key.Matches(kmsg, keys.Toggle):
		m = m.cycle()
	case key.Matches(kmsg, keys.Enter):
		if m.isChoice(m.cursor) {
			m = m.cycle()
			return m, nil
		}
		m.editing = true
		m.input.SetValue(m.value(m.cursor))
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(kmsg, keys.Save):
		return m.save(app)
	}
	return m, nil
}

// isChoice reports whether field cycles through fixed values instead of
// taking free text.
func (m settingsModel) isChoice(f settingsField) bool {
	return f == fieldFolderMode || f == fieldAppVersion || f == fieldRemember
}

// cycle advances a choice field to its next value.
func (m settingsModel) cycle() settingsModel {
	switch m.cursor {
	case fieldFolderMode:
		next := 0
		for i, fm := range folderModes {
			if fm == m.draft.FolderMode {
				next = (i + 1) % len(folderModes)
			}
		}
		m.draft.FolderMode = folderModes[next]
	case fieldAppVersion:
		if m.draft.AppVersion == core.VersionLatest {
			m.draft.AppVersion = core.VersionCustom
		} else {
			m.draft.AppVersion = core.VersionLatest
		}
	case fieldRemember:
		m.draft.Remember = !m.draft.Remember
	default:
		return m
	}
	m.dirty = true
	return m
}

// commit writes the edited text into the draft.
func (m *settingsModel) commit(value string) error {
	switch m.cursor {
	case fieldStorageRoot:
		if value == "" {
			return fmt.Errorf("storage root cannot be empty")
		}
		m.draft.Settings.StorageRoot = value
	case fieldFolderName:
		m.draft.FolderName = value
	case fieldCustomVersion:
		m.draft.CustomVersion = value
	case fieldConcurrency:
		n, err := strconv.Atoi(value)
		if err != nil || n < core.MinConcurrency || n > core.MaxConcurrency {
			return fmt.Errorf("concurrency must be a number between %d and %d", core.MinConcurrency, core.MaxConcurrency)
		}
		m.draft.Concurrency = n
	case fieldAppRepo:
		if value == "" {
			return fmt.Errorf("repository URL cannot be empty")
		}
		m.draft.Settings.AppRepo = value
	case fieldHost:
		m.draft.Settings.Host = value
	case fieldPort:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("port must be a number between 1 and 65535")
		}
		m.draft.Settings.Port = n
	case fieldTunnel:
		m.draft.Settings.TunnelCommand = value
	}
	m.dirty = true
	return nil
}

// save validates the draft and applies it to the session config.
func (m settingsModel) save(app *App) (settingsModel, tea.Cmd) {
	draft := m.draft
	if err := draft.Validate(); err != nil {
		return m, func() tea.Msg { return settingsSavedMsg{err: err} }
	}
	draft.Catalog = app.stored.Catalog
	*app.stored = draft
	m.dirty = false
	return m, func() tea.Msg { return settingsSavedMsg{} }
}

func (m settingsModel) value(f settingsField) string {
	d := m.draft
	switch f {
	case fieldStorageRoot:
		return d.Settings.StorageRoot
	case fieldFolderMode:
		return string(d.FolderMode)
	case fieldFolderName:
		return d.FolderName
	case fieldAppVersion:
		return string(d.AppVersion)
	case fieldCustomVersion:
		return d.CustomVersion
	case fieldConcurrency:
		return strconv.Itoa(d.Concurrency)
	case fieldAppRepo:
		return d.Settings.AppRepo
	case fieldHost:
		return d.Settings.Host
	case fieldPort:
		return strconv.Itoa(d.Settings.Port)
	case fieldTunnel:
		return d.Settings.TunnelCommand
	case fieldRemember:
		if d.Remember {
			return "on"
		}
		return "off"
	}
	return ""
}

func fieldLabel(f settingsField) string {
	switch f {
	case fieldStorageRoot:
		return "Storage root"
	case fieldFolderMode:
		return "Folder mode"
	case fieldFolderName:
		return "Folder name"
	case fieldAppVersion:
		return "Version"
	case fieldCustomVersion:
		return "Branch or tag"
	case fieldConcurrency:
		return "Parallel downloads"
	case fieldAppRepo:
		return "Repository"
	case fieldHost:
		return "Listen host"
	case fieldPort:
		return "Port"
	case fieldTunnel:
		return "Tunnel command"
	case fieldRemember:
		return "Remember"
	}
	return ""
}

func (m settingsModel) view() string {
	var b strings.Builder

	sections := map[settingsField]string{
		fieldStorageRoot: "STORAGE",
		fieldAppVersion:  "APPLICATION",
		fieldHost:        "NETWORK",
		fieldRemember:    "SESSION",
	}

	for f := settingsField(0); f < fieldCount; f++ {
		if title, ok := sections[f]; ok {
			if f > 0 {
				b.WriteString("\n")
			}
			b.WriteString(renderSectionHeader(title, m.width))
			b.WriteString("\n")
		}
		b.WriteString(m.renderRow(f))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.draft.FolderMode == core.FolderNew:
		b.WriteString(mutedStyle.Render("  A new timestamped folder is created for every run."))
	case m.draft.FolderMode == core.FolderExisting:
		b.WriteString(mutedStyle.Render("  The folder must already exist on storage."))
	}
	if m.dirty {
		b.WriteString("\n" + warningStyle.Render("  Unsaved changes. Press ctrl+s to save."))
	}
	return b.String()
}

func (m settingsModel) renderRow(f settingsField) string {
	selected := f == m.cursor
	indicator := "    "
	if selected {
		indicator = "  > "
	}

	label := fmt.Sprintf("%-20s", fieldLabel(f))
	if selected {
		label = selectedItemStyle.Render(label)
	} else {
		label = normalItemStyle.Render(label)
	}

	var val string
	switch {
	case selected && m.editing:
		val = m.input.View()
	case m.isChoice(f):
		val = badgeStyle.Render("‹ " + m.value(f) + " ›")
	case m.value(f) == "":
		val = mutedStyle.Render("(not set)")
	default:
		val = m.value(f)
	}
	if f == fieldCustomVersion && m.draft.AppVersion != core.VersionCustom && !(selected && m.editing) {
		val = mutedStyle.Render(m.value(f) + " (unused)")
	}
	return indicator + label + "  " + val
}
