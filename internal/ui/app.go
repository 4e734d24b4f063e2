package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/prefs"
	"github.com/five82/taskclock/internal/reconcile"
	"github.com/five82/taskclock/internal/state"
	"github.com/five82/taskclock/internal/timer"
)

// Options configures the board.
type Options struct {
	Context    context.Context
	Timers     *timer.Store
	Reconciler *reconcile.Client
	Board      *state.Store
	// Refresh re-fetches the task list on demand.
	Refresh   func(context.Context) error
	SyncEvery time.Duration
	ThemeName string
	HideDone  bool
	PrefsPath string
	Log       *slog.Logger
}

// Model is the root board state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	timers     *timer.Store
	reconciler *reconcile.Client
	board      *state.Store
	refresh    func(context.Context) error
	syncEvery  time.Duration
	prefsPath  string
	log        *slog.Logger

	// UI state
	keys     keyMap
	help     help.Model
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	hideDone bool

	// Data state
	snapshot  state.Snapshot
	timerSnap timer.Snapshot
	now       time.Time

	// Selection: index into visibleColumns and a row per column.
	column int
	rows   [3]int

	// tickTask is the task the display and sync ticks are armed for. Every
	// re-arm bumps gen, and a tick carrying an older gen is dropped.
	tickTask string
	gen      uint64

	// flash is the last action failure, cleared by the next success.
	flash string
}

// New creates a board model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	syncEvery := opts.SyncEvery
	if syncEvery <= 0 {
		syncEvery = timer.ResyncEvery
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Defaults().Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return Model{
		ctx:        ctx,
		timers:     opts.Timers,
		reconciler: opts.Reconciler,
		board:      opts.Board,
		refresh:    opts.Refresh,
		syncEvery:  syncEvery,
		prefsPath:  prefsPath,
		log:        log,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		theme:      GetTheme(themeName),
		hideDone:   opts.HideDone,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return pollMsg{} }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case pollMsg:
		m.loadSnapshots()
		return m, tea.Batch(m.rearm(), pollCmd(DefaultUIInterval))

	case displayTickMsg:
		if !m.tickLive(msg.gen, msg.taskID) {
			return m, nil
		}
		m.now = m.timers.Clock().Now()
		return m, displayTickCmd(msg.gen, msg.taskID)

	case syncTickMsg:
		if !m.tickLive(msg.gen, msg.taskID) {
			return m, nil
		}
		return m, tea.Batch(m.statusCmd(msg.taskID), syncTickCmd(m.syncEvery, msg.gen, msg.taskID))

	case actionMsg:
		m.handleAction(msg)
		m.loadSnapshots()
		return m, m.rearm()

	case refreshedMsg:
		if msg.err != nil {
			m.flash = "refresh failed: " + backend.Message(msg.err)
		} else {
			m.flash = ""
		}
		m.loadSnapshots()
		return m, m.rearm()
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTimerBar())
	b.WriteString("\n")
	b.WriteString(m.renderBoard())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.HideDone):
		m.hideDone = !m.hideDone
		m.clampSelection()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Up):
		m.moveRow(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveRow(1)
	case key.Matches(msg, m.keys.Left):
		m.moveColumn(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveColumn(1)
	case key.Matches(msg, m.keys.Top):
		m.rows[m.currentColumn()] = 0
	case key.Matches(msg, m.keys.Bottom):
		m.rows[m.currentColumn()] = maxInt(len(m.columnTasks(m.currentColumn()))-1, 0)

	case key.Matches(msg, m.keys.Toggle):
		if id := m.selectedID(); id != "" {
			return m, m.actionCmd("toggle", id, m.reconciler.Toggle)
		}
	case key.Matches(msg, m.keys.Stop):
		if id := m.selectedID(); id != "" {
			return m, m.actionCmd("stop", id, m.reconciler.Stop)
		}
	case key.Matches(msg, m.keys.Reset):
		if id := m.selectedID(); id != "" {
			m.timers.Reset(id)
			m.loadSnapshots()
			return m, m.rearm()
		}
	}

	return m, nil
}

// loadSnapshots copies both stores into the model.
func (m *Model) loadSnapshots() {
	if m.board != nil {
		m.snapshot = m.board.Snapshot()
	}
	if m.timers != nil {
		m.timerSnap = m.timers.Snapshot()
		m.now = m.timers.Clock().Now()
	}
	m.clampSelection()
}

// rearm points the display and sync ticks at the running task. It is a
// no-op while that task is unchanged.
func (m *Model) rearm() tea.Cmd {
	active, _, _ := m.timerSnap.Running()
	if active == m.tickTask {
		return nil
	}
	m.tickTask = active
	m.gen++
	if active == "" {
		return nil
	}
	return tea.Batch(
		displayTickCmd(m.gen, active),
		syncTickCmd(m.syncEvery, m.gen, active),
	)
}

// tickLive reports whether a tick for taskID tagged gen should still run.
// A tick for a task that stopped running also disarms the schedule so the
// next start re-arms it.
func (m *Model) tickLive(gen uint64, taskID string) bool {
	if gen != m.gen || taskID != m.tickTask {
		return false
	}
	if m.timers == nil || !m.timers.IsRunning(taskID) {
		m.tickTask = ""
		m.gen++
		return false
	}
	return true
}

func (m *Model) handleAction(msg actionMsg) {
	if msg.err != nil {
		m.flash = fmt.Sprintf("%s failed: %s", msg.action, backend.Message(msg.err))
		return
	}
	m.flash = ""
	// A timer started from To Do moves the card ahead of the next poll.
	if m.board != nil && m.timers.IsRunning(msg.taskID) {
		if task, ok := m.snapshot.Task(msg.taskID); ok && task.Column() == backend.ColumnTodo {
			m.board.SetStatus(msg.taskID, "in-progress")
		}
	}
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, HideDone: m.hideDone}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn("save prefs failed", slog.String("error", err.Error()))
	}
}

// Messages

type pollMsg struct{}

type displayTickMsg struct {
	gen    uint64
	taskID string
}

type syncTickMsg struct {
	gen    uint64
	taskID string
}

type actionMsg struct {
	action string
	taskID string
	err    error
}

type refreshedMsg struct{ err error }

// Commands

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return pollMsg{} })
}

func displayTickCmd(gen uint64, taskID string) tea.Cmd {
	return tea.Tick(timer.DisplayTick, func(time.Time) tea.Msg {
		return displayTickMsg{gen: gen, taskID: taskID}
	})
}

func syncTickCmd(d time.Duration, gen uint64, taskID string) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return syncTickMsg{gen: gen, taskID: taskID}
	})
}

func (m Model) actionCmd(action, taskID string, fn func(context.Context, string) error) tea.Cmd {
	if m.reconciler == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		actx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		return actionMsg{action: action, taskID: taskID, err: fn(actx, taskID)}
	}
}

// statusCmd re-syncs the running task. Failures land in the timer store's
// error and are not surfaced here.
func (m Model) statusCmd(taskID string) tea.Cmd {
	if m.reconciler == nil {
		return nil
	}
	ctx, log, rc := m.ctx, m.log, m.reconciler
	return func() tea.Msg {
		actx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		if err := rc.Status(actx, taskID); err != nil {
			log.Debug("timer re-sync failed", slog.String("task", taskID), slog.String("error", err.Error()))
		}
		return nil
	}
}

func (m Model) refreshCmd() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	ctx, refresh := m.ctx, m.refresh
	return func() tea.Msg {
		return refreshedMsg{err: refresh(ctx)}
	}
}

// Run starts the board and blocks until the user quits or the context ends.
func Run(opts Options) error {
	if opts.Timers == nil || opts.Board == nil {
		return errors.New("board requires timer and task stores")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		return nil
	}
	return err
}
