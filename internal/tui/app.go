// Package tui provides the interactive terminal UI for pomo.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/pomo/internal/lifecycle"
	"github.com/fentz26/pomo/internal/models"
)

// opTimeout bounds a single backend round trip started from the UI.
const opTimeout = 15 * time.Second

var (
	// Colors
	primaryColor = lipgloss.Color("#EF4444")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(fgColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	statusPending   = lipgloss.NewStyle().Foreground(warningColor)
	statusActive    = lipgloss.NewStyle().Foreground(cyanColor).Bold(true)
	statusCompleted = lipgloss.NewStyle().Foreground(successColor)
	statusSkipped   = lipgloss.NewStyle().Foreground(mutedColor)
)

// Messages
type stateChangedMsg struct{}

type opDoneMsg struct {
	message string
	err     error
}

// App is the main TUI application model.
type App struct {
	ctrl        *lifecycle.Controller
	state       lifecycle.State
	selectedIdx int
	width       int
	height      int
	message     string
	busy        bool
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
	updates     <-chan struct{}
	unsubscribe func()
	done        chan struct{}
}

// New creates a new TUI application over ctrl.
func New(ctrl *lifecycle.Controller) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	updates, unsubscribe := ctrl.Subscribe()
	return &App{
		ctrl:        ctrl,
		state:       ctrl.State(),
		spinner:     sp,
		help:        help.New(),
		keys:        defaultKeyMap(),
		updates:     updates,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
		busy:        true,
	}
}

// Run starts the countdown clock and the TUI application.
func (a *App) Run() error {
	a.ctrl.StartClock()
	defer a.ctrl.StopClock()
	defer a.close()

	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (a *App) close() {
	select {
	case <-a.done:
	default:
		close(a.done)
		a.unsubscribe()
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.run("Loaded", func(ctx context.Context) error {
			_, err := a.ctrl.Load(ctx)
			return err
		}),
		a.waitForChange(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width

	case stateChangedMsg:
		a.syncState()
		return a, a.waitForChange()

	case opDoneMsg:
		a.busy = false
		if msg.err != nil {
			a.message = "Error: " + msg.err.Error()
		} else {
			a.message = msg.message
		}
		a.syncState()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.close()
		return tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return nil
	case key.Matches(msg, a.keys.Up):
		if a.selectedIdx > 0 {
			a.selectedIdx--
		}
		return nil
	case key.Matches(msg, a.keys.Down):
		if a.selectedIdx < len(a.state.Tasks)-1 {
			a.selectedIdx++
		}
		return nil
	case key.Matches(msg, a.keys.Pause):
		return a.togglePause()
	case key.Matches(msg, a.keys.Refresh):
		return a.run("Refreshed", func(ctx context.Context) error {
			_, err := a.ctrl.Refresh(ctx)
			return err
		})
	case key.Matches(msg, a.keys.Generate):
		return a.run("Plan generated", func(ctx context.Context) error {
			_, err := a.ctrl.Generate(ctx)
			return err
		})
	case key.Matches(msg, a.keys.Complete):
		// Complete always targets the running task.
		active, ok := a.state.Active()
		if !ok {
			a.message = "No active task"
			return nil
		}
		return a.taskOp("Completed", active, a.ctrl.Complete)
	}

	task, ok := a.selected()
	if !ok {
		return nil
	}
	switch {
	case key.Matches(msg, a.keys.Start):
		return a.taskOp("Started", task, a.ctrl.Start)
	case key.Matches(msg, a.keys.Skip):
		return a.taskOp("Skipped", task, a.ctrl.Skip)
	case key.Matches(msg, a.keys.Reset):
		return a.taskOp("Reset", task, a.ctrl.Reset)
	case key.Matches(msg, a.keys.Delete):
		return a.taskOp("Deleted", task, a.ctrl.Delete)
	}
	return nil
}

func (a *App) togglePause() tea.Cmd {
	var err error
	if a.state.Snapshot.IsRunning {
		err = a.ctrl.Pause()
	} else {
		err = a.ctrl.Resume()
	}
	if err != nil {
		a.message = "Error: " + err.Error()
	}
	a.syncState()
	return nil
}

func (a *App) taskOp(verb string, task models.PomodoroTask, op func(context.Context, string) ([]models.PomodoroTask, error)) tea.Cmd {
	return a.run(fmt.Sprintf("%s: %s", verb, task.Title), func(ctx context.Context) error {
		_, err := op(ctx, task.ID)
		return err
	})
}

// run executes fn off the UI goroutine and reports the outcome.
func (a *App) run(message string, fn func(ctx context.Context) error) tea.Cmd {
	a.busy = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{message: message, err: fn(ctx)}
	}
}

func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.updates:
			return stateChangedMsg{}
		case <-a.done:
			return nil
		}
	}
}

func (a *App) syncState() {
	a.state = a.ctrl.State()
	if a.selectedIdx >= len(a.state.Tasks) {
		a.selectedIdx = max(0, len(a.state.Tasks)-1)
	}
}

func (a *App) selected() (models.PomodoroTask, bool) {
	if a.selectedIdx < 0 || a.selectedIdx >= len(a.state.Tasks) {
		return models.PomodoroTask{}, false
	}
	return a.state.Tasks[a.selectedIdx], true
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("🍅 POMO")
	if a.busy {
		header += " " + a.spinner.View()
	}
	b.WriteString(header + "\n")
	b.WriteString(a.renderClock() + "\n")
	b.WriteString(a.renderTaskList() + "\n")

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(msgStyle.Render(a.message))
	}
	b.WriteString("\n" + a.help.View(a.keys) + "\n")

	status := fmt.Sprintf(" Tasks: %d | Session: %d min", len(a.state.Tasks), a.state.PlannedMinutes)
	b.WriteString(statusBarStyle.Width(a.width).Render(status))
	return b.String()
}

func (a *App) renderClock() string {
	snap := a.state.Snapshot
	if !snap.HasActive() {
		return clockStyle.Render(fmt.Sprintf("%02d:00  idle", a.state.PlannedMinutes))
	}

	icon := "▶"
	if !snap.IsRunning {
		icon = "⏸"
	}
	title := snap.ActiveTaskID
	if task, ok := a.state.Active(); ok {
		title = task.Title
	}
	return clockStyle.Render(fmt.Sprintf("%s %s  %s", icon, FormatClock(snap.MinutesRemaining, snap.SecondsRemaining), title))
}

func (a *App) renderTaskList() string {
	if len(a.state.Tasks) == 0 {
		return "\n  No tasks. Press g to generate a plan.\n"
	}

	var lines []string
	for i, task := range a.state.Tasks {
		progress := fmt.Sprintf("%d/%d (%d%%)", task.PomodorosCompleted, task.EstimatedPomodoros, task.Progress())
		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("▶ %-9s %s  %s", task.Status, task.Title, progress)))
			continue
		}
		lines = append(lines, taskItemStyle.Render(fmt.Sprintf("  %s %s  %s", formatStatus(task.Status), task.Title, progress)))
	}

	// Limit visible lines
	if limit := a.height - 10; limit > 0 && len(lines) > limit {
		start := max(0, min(a.selectedIdx-limit/2, len(lines)-limit))
		lines = lines[start : start+limit]
	}
	return strings.Join(lines, "\n")
}

func formatStatus(status models.TaskStatus) string {
	label := fmt.Sprintf("%-9s", status)
	switch status {
	case models.TaskStatusPending:
		return statusPending.Render(label)
	case models.TaskStatusActive:
		return statusActive.Render(label)
	case models.TaskStatusCompleted:
		return statusCompleted.Render(label)
	case models.TaskStatusSkipped:
		return statusSkipped.Render(label)
	default:
		return label
	}
}

// FormatClock renders a countdown as MM:SS.
func FormatClock(minutes, seconds int) string {
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
