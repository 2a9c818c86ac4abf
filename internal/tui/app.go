package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/ducnote/ducnote/internal/core"
)

// appView represents the active screen.
type appView int

const (
	viewCatalog  appView = iota // Category tabs (default)
	viewSettings                // Settings form
	viewRun                     // Installation log and summary
	viewGitError                // Application checkout failure
)

// Options wires the TUI to the rest of the program.
type Options struct {
	Config *core.ConfigManager

	// Stored is the persisted configuration. Edits made in the TUI are
	// applied to it and written back only when Remember is on.
	Stored  *core.Config
	Catalog *core.Catalog

	// Effective applies session overrides to a copy of the stored config.
	// Nil uses the stored config as-is.
	Effective func(stored *core.Config) *core.Config

	// NewOrchestrator builds an orchestrator for one run of cfg.
	NewOrchestrator func(cfg *core.Config, sink core.Sink) *core.Orchestrator

	// Probe checks links before they are added. Nil skips the check.
	Probe core.LinkProbe

	Logger  *zap.Logger
	Version string
}

// App is the root Bubbletea model for DucNote.
type App struct {
	ctx     context.Context
	config  *core.ConfigManager
	stored  *core.Config
	catalog *core.Catalog
	probe   core.LinkProbe
	logger  *zap.Logger
	version string

	effective       func(*core.Config) *core.Config
	newOrchestrator func(*core.Config, core.Sink) *core.Orchestrator
	sink            *programSink

	// Whether the file on disk has remember on. Turning remember off
	// writes the file once more so the switch itself sticks.
	rememberOnDisk bool

	// Resolver for the current destination; nil when folderMode is "new".
	resolver *core.Resolver

	// View state.
	activeView appView
	width      int
	height     int
	ready      bool
	running    bool

	// Sub-models.
	catalogView catalogModel
	settings    settingsModel
	run         runModel
	gitError    gitErrorModel

	help      help.Model
	statusBar statusBarModel
	confirm   confirmModel
}

// NewApp creates the root model.
func NewApp(ctx context.Context, opts Options) App {
	h := help.New()
	h.ShortSeparator = "  |  "

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	effective := opts.Effective
	if effective == nil {
		effective = func(stored *core.Config) *core.Config {
			cfg := *stored
			return &cfg
		}
	}

	a := App{
		ctx:             ctx,
		config:          opts.Config,
		stored:          opts.Stored,
		catalog:         opts.Catalog,
		probe:           opts.Probe,
		logger:          logger.Named("tui"),
		version:         opts.Version,
		effective:       effective,
		newOrchestrator: opts.NewOrchestrator,
		sink:            &programSink{},
		rememberOnDisk:  opts.Stored.Remember,
		catalogView:     newCatalogModel(),
		settings:        newSettingsModel(),
		run:             newRunModel(),
		gitError:        newGitErrorModel(),
		help:            h,
		statusBar:       newStatusBarModel(),
		confirm:         newConfirmModel(),
	}
	a.refreshResolver()
	a.catalogView = a.catalogView.setData(a.catalog, a.resolver)
	return a
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	app := NewApp(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.sink.attach(p)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// --- Init / Update / View ---

func (a App) Init() tea.Cmd {
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.help.Width = msg.Width
		a.statusBar.width = msg.Width
		a.propagateSize()
		return a, nil

	case catalogAddDoneMsg:
		var taskCmd tea.Cmd
		a.statusBar, taskCmd = a.statusBar.update(taskDoneMsg{})
		if msg.err != nil {
			a.logger.Info("add rejected", zap.String("locator", msg.locator), zap.Error(msg.err))
			return a, tea.Batch(taskCmd, a.showError(msg.err))
		}
		a.catalogView = a.catalogView.setData(a.catalog, a.resolver)
		text := fmt.Sprintf("Added %s", core.Basename(msg.locator))
		if a.resolver != nil {
			if _, ok, err := a.resolver.Installed(msg.category, msg.locator); err == nil && ok {
				text += " (already on storage)"
			}
		}
		return a, tea.Batch(taskCmd, a.afterEdit(text))

	case catalogChangedMsg:
		if msg.err != nil {
			a.catalogView = a.catalogView.setData(a.catalog, a.resolver)
			return a, a.showError(msg.err)
		}
		a.catalogView = a.catalogView.setData(a.catalog, a.resolver)
		return a, a.afterEdit(msg.text)

	case settingsSavedMsg:
		if msg.err != nil {
			return a, a.showError(msg.err)
		}
		a.refreshResolver()
		a.catalogView = a.catalogView.setData(a.catalog, a.resolver)
		a.activeView = viewCatalog
		a.propagateSize()
		return a, a.afterEdit("Settings saved")

	case runLineMsg:
		a.run = a.run.appendLine(msg)
		return a, nil

	case runDoneMsg:
		a.running = false
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.statusBar, cmd = a.statusBar.update(taskDoneMsg{})
		cmds = append(cmds, cmd)
		a.run, cmd = a.run.finish(msg.result, msg.err)
		cmds = append(cmds, cmd)

		a.refreshResolver()
		a.catalogView = a.catalogView.setData(a.catalog, a.resolver)
		if _, err := a.persist(); err != nil {
			a.logger.Warn("saving session", zap.Error(err))
		}

		if ge, ok := core.IsGitError(msg.err); ok {
			a.activeView = viewGitError
			a.gitError = a.gitError.activate(ge, a.stored.Settings.AppRepo)
			return a, tea.Batch(cmds...)
		}
		if msg.err != nil {
			cmds = append(cmds, a.showError(msg.err))
		} else if msg.result != nil {
			a.statusBar, cmd = a.statusBar.showMsg("Run finished: "+string(msg.result.Outcome), statusSuccess)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case gitRetryMsg:
		if msg.repoURL != "" && msg.repoURL != a.stored.Settings.AppRepo {
			a.stored.Settings.AppRepo = msg.repoURL
			if _, err := a.persist(); err != nil {
				a.logger.Warn("saving session", zap.Error(err))
			}
		}
		return a.startRun()

	case runSummaryRenderedMsg:
		var cmd tea.Cmd
		a.run, cmd = a.run.update(msg)
		return a, cmd

	case spinner.TickMsg:
		// Spinners ignore ticks carrying another spinner's ID.
		var statusCmd, runCmd tea.Cmd
		a.statusBar, statusCmd = a.statusBar.update(msg)
		a.run, runCmd = a.run.update(msg)
		return a, tea.Batch(statusCmd, runCmd)

	case statusDismissMsg:
		var cmd tea.Cmd
		a.statusBar, cmd = a.statusBar.update(msg)
		return a, cmd

	case confirmResultMsg:
		// Callers react via the onConfirm command they provided.
		return a, nil

	case tea.KeyMsg:
		// Confirmation dialog intercepts all keys when active.
		if a.confirm.active {
			var cmd tea.Cmd
			var consumed bool
			a.confirm, cmd, consumed = a.confirm.update(msg)
			if consumed {
				return a, cmd
			}
		}

		if a.inputFocused() {
			break
		}

		if key.Matches(msg, keys.Quit) {
			if a.running {
				var cmd tea.Cmd
				a.statusBar, cmd = a.statusBar.showMsg("Installation in progress", statusWarning)
				return a, cmd
			}
			return a, tea.Quit
		}

		if key.Matches(msg, keys.Help) {
			a.help.ShowAll = !a.help.ShowAll
			a.propagateSize()
			return a, nil
		}

		if key.Matches(msg, keys.Back) && a.activeView != viewCatalog {
			if a.activeView == viewRun && a.running {
				break
			}
			a.activeView = viewCatalog
			return a, nil
		}

		if a.activeView == viewCatalog && !a.catalogView.list.SettingFilter() {
			switch {
			case key.Matches(msg, keys.Install):
				return a.startRun()
			case key.Matches(msg, keys.Settings):
				a.settings = a.settings.activate(a.stored)
				a.activeView = viewSettings
				return a, nil
			}
		}

		if a.activeView == viewRun && !a.running && key.Matches(msg, keys.Install) {
			return a.startRun()
		}
	}

	// Delegate to active sub-model.
	var cmd tea.Cmd
	switch a.activeView {
	case viewCatalog:
		a.catalogView, cmd = a.catalogView.update(msg, &a)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg, &a)
	case viewRun:
		a.run, cmd = a.run.update(msg)
	case viewGitError:
		a.gitError, cmd = a.gitError.update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	if !a.ready {
		return "Starting ducnote..."
	}

	header, footer := a.renderHeader(), a.renderFooter()
	textW, textH := a.innerContentSize()

	var body string
	switch {
	case a.confirm.active:
		body = a.confirm.view()
	case a.activeView == viewSettings:
		body = a.settings.view()
	case a.activeView == viewRun:
		body = a.run.view()
	case a.activeView == viewGitError:
		body = a.gitError.view()
	default:
		body = a.catalogView.view()
	}

	box := contentStyle.
		Width(textW + contentStyle.GetHorizontalPadding()).
		Height(textH + contentStyle.GetVerticalPadding()).
		Render(fitBox(body, textW, textH))
	return lipgloss.JoinVertical(lipgloss.Left, header, box, footer)
}

func (a App) renderHeader() string {
	logo := logoStyle.Render("ducnote")
	path := headerPathStyle.Render(shortenPath(a.destinationLabel()))

	var hint string
	switch a.activeView {
	case viewCatalog:
		hint = fmt.Sprintf("%d links", a.catalog.Len())
	case viewSettings:
		hint = "Settings"
	case viewRun:
		hint = "Install"
	case viewGitError:
		hint = "Checkout Failed"
	}
	if a.version != "" && a.activeView == viewCatalog {
		hint += "  " + a.version
	}
	hints := headerHintStyle.Render(hint)

	// Indent 1 char to align with content box's left border.
	left := lipgloss.JoinHorizontal(lipgloss.Top, " ", logo, " ", path)
	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(hints)-1)
	return left + strings.Repeat(" ", gap) + hints
}

func (a App) renderFooter() string {
	var km help.KeyMap
	switch a.activeView {
	case viewCatalog:
		km = catalogHelpKeyMap{adding: a.catalogView.adding}
	case viewSettings:
		km = settingsHelpKeyMap{editing: a.settings.editing}
	case viewRun:
		km = runHelpKeyMap{running: a.running}
	case viewGitError:
		km = gitErrorHelpKeyMap{editing: a.gitError.editing}
	}
	return " " + a.statusBar.view(helpStyle.Render(a.help.View(km)))
}

// inputFocused reports whether a text input or list filter owns the keyboard.
func (a App) inputFocused() bool {
	switch a.activeView {
	case viewCatalog:
		return a.catalogView.inputFocused() || a.catalogView.list.SettingFilter()
	case viewSettings:
		return a.settings.inputFocused()
	case viewGitError:
		return a.gitError.editing
	}
	return false
}

// --- Actions ---

// startRun launches an orchestration run against a snapshot of the catalog.
func (a App) startRun() (tea.Model, tea.Cmd) {
	if a.running {
		var cmd tea.Cmd
		a.statusBar, cmd = a.statusBar.showMsg(core.ErrRunInProgress.Error(), statusWarning)
		return a, cmd
	}
	if a.newOrchestrator == nil {
		return a, a.showError(errors.New("installation is not available"))
	}
	cfg := a.effective(a.stored)
	if err := cfg.Validate(); err != nil {
		return a, a.showError(fmt.Errorf("invalid settings: %w", err))
	}

	orch := a.newOrchestrator(cfg, a.sink)
	snap := a.catalog.Snapshot()
	ctx := a.ctx
	a.logger.Info("starting run", zap.Int("locators", snap.Len()))

	a.running = true
	a.activeView = viewRun
	var startCmd, taskCmd tea.Cmd
	a.run, startCmd = a.run.start()
	a.statusBar, taskCmd = a.statusBar.update(taskStartedMsg{label: "installing"})

	runCmd := func() tea.Msg {
		res, err := orch.Run(ctx, snap, core.RunOptions{})
		return runDoneMsg{result: res, err: err}
	}
	return a, tea.Batch(startCmd, taskCmd, runCmd)
}

// afterEdit persists the session and reports text in the status bar.
func (a *App) afterEdit(text string) tea.Cmd {
	saved, err := a.persist()
	if err != nil {
		return a.showError(fmt.Errorf("saving configuration: %w", err))
	}
	var cmd tea.Cmd
	if !saved {
		a.statusBar, cmd = a.statusBar.showMsg(text+" (not saved: remember is off)", statusWarning)
		return cmd
	}
	a.statusBar, cmd = a.statusBar.showMsg(text, statusSuccess)
	return cmd
}

// persist writes the catalog and settings when remember is on, or once
// more when it has just been turned off.
func (a *App) persist() (bool, error) {
	if a.config == nil || (!a.stored.Remember && !a.rememberOnDisk) {
		return false, nil
	}
	a.stored.Catalog = a.catalog.Serialize()
	if err := a.config.Save(a.stored); err != nil {
		return false, err
	}
	a.rememberOnDisk = a.stored.Remember
	return a.stored.Remember, nil
}

func (a *App) showError(err error) tea.Cmd {
	var cmd tea.Cmd
	a.statusBar, cmd = a.statusBar.showMsg(err.Error(), statusError)
	return cmd
}

// refreshResolver rebuilds the resolver after settings change.
func (a *App) refreshResolver() {
	a.resolver = nil
	cfg := a.effective(a.stored)
	if cfg.FolderMode == core.FolderNew {
		return
	}
	dest, err := core.ResolveDestination(cfg, time.Now())
	if err != nil {
		return
	}
	a.resolver = core.NewResolver(dest, a.catalog.Categories(), cfg.Settings.WorkflowDir,
		core.NewClassifier(cfg.Settings.HostingDomains))
}

// destinationLabel describes where the next run installs to.
func (a App) destinationLabel() string {
	if a.resolver != nil {
		return a.resolver.Root()
	}
	cfg := a.effective(a.stored)
	if cfg.FolderMode == core.FolderNew {
		return filepath.Join(core.StorageRootOf(cfg), "ComfyUI_<timestamp>")
	}
	return filepath.Join(core.StorageRootOf(cfg), cfg.FolderName)
}

func (a *App) propagateSize() {
	w, h := a.innerContentSize()
	a.catalogView = a.catalogView.setSize(w, h)
	a.settings = a.settings.setSize(w, h)
	a.run = a.run.setSize(w, h)
	a.gitError = a.gitError.setSize(w, h)
	a.confirm = a.confirm.setSize(w, h)
}

// innerContentSize computes the text area inside contentStyle after border
// and padding, given the rendered header and footer heights.
func (a App) innerContentSize() (width, height int) {
	chromeH := lipgloss.Height(a.renderHeader()) + lipgloss.Height(a.renderFooter()) + 2
	width = max(0, a.width-contentStyle.GetHorizontalFrameSize())
	height = max(0, a.height-chromeH-contentStyle.GetVerticalFrameSize())
	return width, height
}

// shortenPath returns a display-friendly path using ~ for the home directory.
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home || strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}

// fitBox cuts content to w columns and h lines so the content box never
// wraps or grows past the terminal.
func fitBox(content string, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	lines := strings.SplitN(content, "\n", h+1)
	if len(lines) > h {
		lines = lines[:h]
	}
	for i, line := range lines {
		if lipgloss.Width(line) > w {
			lines[i] = ansi.Truncate(line, w, "…")
		}
	}
	return strings.Join(lines, "\n")
}
