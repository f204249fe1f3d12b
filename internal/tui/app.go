// Package tui provides the interactive Bubble Tea dashboard for nestegg.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/model"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/tui/components"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

// SimulationDoneMsg is sent when a run finishes or fails.
type SimulationDoneMsg struct {
	Outcome *pipeline.Outcome
	Err     error
	Elapsed time.Duration
}

// ProgressMsg reports trial progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RunsLoadedMsg carries stored run history.
type RunsLoadedMsg struct {
	Runs []model.RunRecord
	Err  error
}

// RunLister reads stored runs. *store.Store satisfies it.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Options configures the dashboard.
type Options struct {
	Context  context.Context
	Runner   *pipeline.Runner
	Request  pipeline.Request
	History  RunLister // nil hides stored runs
	Profiles []string
	// EditFirst opens the parameter form before the first run.
	EditFirst bool
}

// historyLimit caps the runs shown on the History tab.
const historyLimit = 100

// App is the root Bubble Tea model.
type App struct {
	ctx      context.Context
	runner   *pipeline.Runner
	req      pipeline.Request
	history  RunLister
	profiles []string

	// Latest run
	outcome *pipeline.Outcome
	runErr  error
	elapsed time.Duration
	running bool

	// History tab
	runs       []model.RunRecord
	runsErr    error
	runsCursor int

	// Parameter form
	form     *huh.Form
	formVals FormValues
	formErr  error

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 160
	minContentHeight = 5
)

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	a := App{
		ctx:         ctx,
		runner:      opts.Runner,
		req:         opts.Request,
		history:     opts.History,
		profiles:    opts.Profiles,
		spinner:     sp,
		progressMax: opts.Request.Trials,
		loadSub:     make(chan tea.Msg, 1),
	}
	if opts.EditFirst {
		a.openForm()
	} else {
		a.running = true
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		loadRunsCmd(a.ctx, a.history),
	}
	if a.form != nil {
		cmds = append(cmds, a.form.Init())
	} else {
		cmds = append(cmds, simulateCmd(a.ctx, a.runner, a.req, a.loadSub), a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) openForm() {
	a.formVals = ValuesFromRequest(a.req)
	a.form = NewParamsForm(&a.formVals, a.profiles)
	if a.width > 0 {
		a.form = a.form.WithWidth(min(a.width, 72)).WithHeight(a.height)
	}
}

// startRun launches a simulation for the current request.
func (a *App) startRun() tea.Cmd {
	a.running = true
	a.runErr = nil
	a.progress = 0
	a.progressMax = a.req.Trials
	a.loadSub = make(chan tea.Msg, 1)
	return tea.Batch(simulateCmd(a.ctx, a.runner, a.req, a.loadSub), a.spinner.Tick)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(min(msg.Width, 72)).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if a.running || a.showHelp || a.form != nil {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.form != nil {
			return a.updateForm(msg)
		}
		return a.updateKeys(msg)

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case SimulationDoneMsg:
		a.running = false
		a.elapsed = msg.Elapsed
		if msg.Err != nil {
			a.runErr = msg.Err
			return a, nil
		}
		a.outcome = msg.Outcome
		if msg.Outcome.Stored {
			return a, loadRunsCmd(a.ctx, a.history)
		}
		return a, nil

	case RunsLoadedMsg:
		a.runs = msg.Runs
		a.runsErr = msg.Err
		a.runsCursor = max(0, min(a.runsCursor, len(a.runs)-1))
		return a, nil

	case spinner.TickMsg:
		if a.running {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to the form (cursor blinks, etc.)
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if a.running {
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "n":
		// A nil seed makes the runner draw a fresh one.
		a.req.Seed = nil
		return a, a.startRun()
	case "e":
		a.openForm()
		return a, a.form.Init()
	case "r":
		return a, loadRunsCmd(a.ctx, a.history)
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if a.activeTab == tabHistory {
		switch key {
		case "j", "down":
			if a.runsCursor < len(a.runs)-1 {
				a.runsCursor++
			}
			return a, nil
		case "k", "up":
			if a.runsCursor > 0 {
				a.runsCursor--
			}
			return a, nil
		case "g":
			a.runsCursor = 0
			return a, nil
		case "G":
			a.runsCursor = max(0, len(a.runs)-1)
			return a, nil
		}
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabHistory && a.runsCursor > 0 {
			a.runsCursor--
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabHistory && a.runsCursor < len(a.runs)-1 {
			a.runsCursor++
		}
	case tea.MouseButtonLeft:
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.form = nil
		if err := a.formVals.ApplyRequest(&a.req); err != nil {
			a.formErr = err
			return a, nil
		}
		a.formErr = nil
		return a, a.startRun()
	case huh.StateAborted:
		a.form = nil
		if a.outcome == nil {
			return a, a.startRun()
		}
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.form != nil {
		return a.viewForm()
	}
	if a.running {
		return a.viewLoading()
	}
	if a.outcome == nil {
		return a.viewError()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  nestegg needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewForm() string {
	t := theme.Active
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	body := titleStyle.Render("◈ nestegg") + "\n\n" + a.form.View()
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, body)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)
	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	countStyle := lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ nestegg"))
	b.WriteString(subtitleStyle.Render(" · savings projection"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(fmt.Sprintf(" Simulating %d years", a.req.HorizonYears)))
	b.WriteString("\n\n")

	barW := max(min(40, a.width-30), 20)
	pct := 0.0
	if a.progressMax > 0 {
		pct = float64(a.progress) / float64(a.progressMax)
	}
	b.WriteString(components.ProgressBar(pct, barW))
	b.WriteString("\n")
	b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
	b.WriteString(subtitleStyle.Render(" / "))
	b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	b.WriteString(subtitleStyle.Render(" trials"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewError() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Bad).
		Padding(1, 3)
	errStyle := lipgloss.NewStyle().Foreground(t.Bad).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	msg := "No result"
	if a.runErr != nil {
		msg = a.runErr.Error()
	} else if a.formErr != nil {
		msg = a.formErr.Error()
	}
	body := errStyle.Render("Simulation failed") + "\n\n" + msg + "\n\n" +
		hintStyle.Render("[e] edit parameters  [n] retry  [q] quit")
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"o d f h", "Jump to tab"},
			{"← → tab", "Previous / Next tab"},
			{"j k", "Move through stored runs"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"n", "Re-run with a new seed"},
			{"e", "Edit parameters"},
			{"r", "Reload run history"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height
	out := a.outcome

	// 1. Header: tab bar + run pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pillAccent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	pill := pillStyle.Render(" ") +
		pillAccent.Render(out.Profile.Name) +
		pillStyle.Render(" │ ") + pillAccent.Render(fmt.Sprintf("%dy", out.Params.HorizonYears)) +
		pillStyle.Render(" │ ") + pillAccent.Render(cli.FormatNumber(int64(out.Params.Trials))+" trials") +
		pillStyle.Render(" │ seed ") + pillAccent.Render(fmt.Sprintf("%d", out.Record.Seed))
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(pill)

	// 2. Status bar
	status := fmt.Sprintf("%s · %s", string(out.Origin), cli.FormatDuration(a.elapsed.Milliseconds()))
	if out.Stored {
		status += " · saved"
	}
	if a.runErr != nil {
		status = "last run failed: " + a.runErr.Error()
	}
	statusBar := components.RenderStatusBar(w, status)

	// 3. Content zone height
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	// 4. Tab content
	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabDistribution:
		content = a.renderDistributionTab(cw, contentH)
	case tabFan:
		content = a.renderFanTab(cw, contentH)
	case tabHistory:
		content = a.renderHistoryTab(cw, contentH)
	}

	// 5. Truncate + pad to exactly contentH lines, fill with background
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabDistribution
	tabFan
	tabHistory
)

// ─── Commands ───────────────────────────────────────────────────

// simulateCmd runs the pipeline in a background goroutine. It streams
// ProgressMsg updates and a final SimulationDoneMsg through sub.
func simulateCmd(ctx context.Context, runner *pipeline.Runner, req pipeline.Request, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			r := *runner
			// Non-blocking send so workers aren't stalled; the next update catches up.
			r.Progress = func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			out, err := r.Run(ctx, req)
			sub <- SimulationDoneMsg{Outcome: out, Err: err, Elapsed: time.Since(start)}
		}()

		// Block until the first message (either ProgressMsg or SimulationDoneMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the runner goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func loadRunsCmd(ctx context.Context, history RunLister) tea.Cmd {
	if history == nil {
		return nil
	}
	return func() tea.Msg {
		runs, err := history.ListRuns(ctx, historyLimit)
		return RunsLoadedMsg{Runs: runs, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes use the same widths as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background colour.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
