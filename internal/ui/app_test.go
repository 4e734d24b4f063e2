package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/clock"
	"github.com/five82/taskclock/internal/prefs"
	"github.com/five82/taskclock/internal/reconcile"
	"github.com/five82/taskclock/internal/state"
	"github.com/five82/taskclock/internal/timer"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// stubAPI answers every timer call from the fake clock: start and resume run,
// pause stops, status reports whatever the last call left behind.
type stubAPI struct {
	clk      *clock.Fake
	startErr error
	running  map[string]bool
}

func (s *stubAPI) task(id string, running bool) *backend.Task {
	tracked := backend.Millis(0)
	st := &backend.TimerState{IsRunning: running}
	if running {
		st.CurrentSessionStart = s.clk.Now().Format(time.RFC3339)
	}
	return &backend.Task{ID: id, TotalTrackedTime: &tracked, CurrentTotalTime: &tracked, TimerState: st}
}

func (s *stubAPI) StartTimer(_ context.Context, id string) (*backend.Task, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.running[id] = true
	return s.task(id, true), nil
}

func (s *stubAPI) PauseTimer(_ context.Context, id string) (*backend.Task, error) {
	s.running[id] = false
	return s.task(id, false), nil
}

func (s *stubAPI) ResumeTimer(_ context.Context, id string) (*backend.Task, error) {
	s.running[id] = true
	return s.task(id, true), nil
}

func (s *stubAPI) TimerStatus(_ context.Context, id string) (*backend.TimerStatus, error) {
	tracked := backend.Millis(0)
	st := &backend.TimerStatus{TaskID: id, IsRunning: s.running[id], TotalTrackedTime: &tracked, TotalTime: &tracked}
	if st.IsRunning {
		st.CurrentSessionStart = s.clk.Now().Format(time.RFC3339)
	}
	return st, nil
}

type fixture struct {
	api       *stubAPI
	clk       *clock.Fake
	timers    *timer.Store
	board     *state.Store
	prefsPath string
	refreshes int
}

func newModel(t *testing.T) (Model, *fixture) {
	t.Helper()
	f := &fixture{clk: clock.NewFake(t0), board: &state.Store{}}
	f.api = &stubAPI{clk: f.clk, running: map[string]bool{}}
	f.timers = timer.NewStore(f.clk, timer.State{})
	f.prefsPath = filepath.Join(t.TempDir(), "prefs.toml")
	f.board.Update([]backend.Task{
		{ID: "T1", Title: "Write report", Status: "pending"},
		{ID: "T2", Title: "Review PR", Status: "pending"},
		{ID: "T3", Title: "Fix bug", Status: "in-progress"},
		{ID: "T4", Title: "Ship release", Status: "completed"},
	}, nil)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rc := reconcile.New(f.api, f.timers, log)
	t.Cleanup(rc.Close)

	m := New(Options{
		Timers:     f.timers,
		Reconciler: rc,
		Board:      f.board,
		Refresh: func(context.Context) error {
			f.refreshes++
			return nil
		},
		PrefsPath: f.prefsPath,
		Log:       log,
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = update(t, m, pollMsg{})
	return m, f
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

func TestModel_RendersColumns(t *testing.T) {
	m, _ := newModel(t)
	view := m.View()
	for _, want := range []string{"To Do (2)", "In Progress (1)", "Done (1)", "Write report", "Fix bug", "No timer running"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_NotReadyBeforeSize(t *testing.T) {
	m := New(Options{})
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View() = %q, want Loading...", got)
	}
}

func TestModel_Navigation(t *testing.T) {
	m, _ := newModel(t)
	steps := []struct {
		key  string
		want string
	}{
		{"", "T1"},
		{"j", "T2"},
		{"j", "T2"},
		{"k", "T1"},
		{"l", "T3"},
		{"l", "T4"},
		{"l", "T4"},
		{"h", "T3"},
		{"h", "T1"},
		{"G", "T2"},
		{"g", "T1"},
	}
	for i, step := range steps {
		if step.key != "" {
			m = update(t, m, runes(step.key))
		}
		if got := m.selectedID(); got != step.want {
			t.Fatalf("step %d (%q): selected %q, want %q", i, step.key, got, step.want)
		}
	}
}

func TestModel_ToggleStartsSelectedTask(t *testing.T) {
	m, f := newModel(t)

	m, cmd := updateCmd(t, m, space)
	if cmd == nil {
		t.Fatal("space produced no command")
	}
	msg, ok := cmd().(actionMsg)
	if !ok {
		t.Fatalf("command returned %T, want actionMsg", msg)
	}
	if msg.err != nil || msg.taskID != "T1" {
		t.Fatalf("actionMsg = %+v", msg)
	}

	m, cmd = updateCmd(t, m, msg)
	if !f.timers.IsRunning("T1") {
		t.Fatal("T1 not running after toggle")
	}
	if m.tickTask != "T1" || cmd == nil {
		t.Fatalf("ticks not armed: tickTask=%q cmd=%v", m.tickTask, cmd)
	}
	if task, _ := f.board.Snapshot().Task("T1"); task.Column() != backend.ColumnInProgress {
		t.Fatalf("T1 column = %s, want In Progress", task.Column())
	}
	if !strings.Contains(m.View(), "▶") {
		t.Fatal("view does not mark the running task")
	}
}

func TestModel_ToggleFailureShowsFlash(t *testing.T) {
	m, f := newModel(t)
	f.api.startErr = &backend.APIError{Path: "/tasks/T1/timer/start", Status: 500, Message: "Failed to start timer"}

	m, cmd := updateCmd(t, m, space)
	m = update(t, m, cmd())

	if !strings.Contains(m.flash, "Failed to start timer") {
		t.Fatalf("flash = %q", m.flash)
	}
	if !strings.Contains(m.View(), "toggle failed") {
		t.Fatal("footer does not show the failure")
	}
}

func TestModel_StaleTicksAreDropped(t *testing.T) {
	m, f := newModel(t)
	f.timers.Start("T3")
	m = update(t, m, pollMsg{})
	if m.tickTask != "T3" {
		t.Fatalf("tickTask = %q, want T3", m.tickTask)
	}
	gen := m.gen

	if _, cmd := updateCmd(t, m, displayTickMsg{gen: gen - 1, taskID: "T3"}); cmd != nil {
		t.Fatal("stale display tick was rescheduled")
	}
	if _, cmd := updateCmd(t, m, syncTickMsg{gen: gen - 1, taskID: "T3"}); cmd != nil {
		t.Fatal("stale sync tick was rescheduled")
	}

	f.clk.Advance(5 * time.Second)
	m, cmd := updateCmd(t, m, displayTickMsg{gen: gen, taskID: "T3"})
	if cmd == nil {
		t.Fatal("live display tick was not rescheduled")
	}
	if !m.now.Equal(f.clk.Now()) {
		t.Fatalf("now = %v, want %v", m.now, f.clk.Now())
	}
	if !strings.Contains(m.View(), "0:05") {
		t.Fatal("view does not show projected time")
	}
	if _, cmd := updateCmd(t, m, syncTickMsg{gen: gen, taskID: "T3"}); cmd == nil {
		t.Fatal("live sync tick was not rescheduled")
	}

	f.timers.Pause("T3")
	m, cmd = updateCmd(t, m, displayTickMsg{gen: gen, taskID: "T3"})
	if cmd != nil {
		t.Fatal("tick for a paused task was rescheduled")
	}
	if m.tickTask != "" || m.gen == gen {
		t.Fatalf("schedule not disarmed: tickTask=%q gen=%d", m.tickTask, m.gen)
	}

	// Starting again re-arms under a new generation.
	f.timers.Start("T3")
	m = update(t, m, pollMsg{})
	if m.tickTask != "T3" || m.gen <= gen {
		t.Fatalf("not re-armed: tickTask=%q gen=%d", m.tickTask, m.gen)
	}
}

func TestModel_SwitchingTasksBumpsGeneration(t *testing.T) {
	m, f := newModel(t)
	f.timers.Start("T1")
	m = update(t, m, pollMsg{})
	first := m.gen

	f.timers.Start("T2")
	m = update(t, m, pollMsg{})
	if m.tickTask != "T2" || m.gen == first {
		t.Fatalf("tickTask=%q gen=%d, want T2 with a new generation", m.tickTask, m.gen)
	}
	if _, cmd := updateCmd(t, m, displayTickMsg{gen: first, taskID: "T1"}); cmd != nil {
		t.Fatal("tick for the preempted task survived")
	}
}

func TestModel_StopAndReset(t *testing.T) {
	m, f := newModel(t)
	f.timers.Start("T1")
	f.api.running["T1"] = true
	f.clk.Advance(90 * time.Second)
	m = update(t, m, pollMsg{})

	m, cmd := updateCmd(t, m, runes("s"))
	m = update(t, m, cmd())
	if f.timers.IsRunning("T1") {
		t.Fatal("T1 still running after stop")
	}
	if m.tickTask != "" {
		t.Fatalf("tickTask = %q after stop", m.tickTask)
	}

	f.timers.Start("T2")
	f.clk.Advance(time.Minute)
	m = update(t, m, pollMsg{})
	m = update(t, m, runes("j"))
	m = update(t, m, runes("x"))
	rec, _ := f.timers.Record("T2")
	if rec.IsRunning || rec.TotalTime != 0 || f.timers.ActiveTaskID() != "" {
		t.Fatalf("T2 after reset = %+v active=%q", rec, f.timers.ActiveTaskID())
	}
}

func TestModel_HideDoneSavesPrefs(t *testing.T) {
	m, f := newModel(t)
	m = update(t, m, runes("l"))
	m = update(t, m, runes("l"))

	m = update(t, m, runes("d"))
	if strings.Contains(m.View(), "Done (1)") {
		t.Fatal("done column still drawn")
	}
	if got := m.selectedID(); got != "T3" {
		t.Fatalf("selection after hiding done = %q, want T3", got)
	}
	if !prefs.Load(f.prefsPath).HideDone {
		t.Fatal("hide_done not saved")
	}

	m = update(t, m, runes("d"))
	if !strings.Contains(m.View(), "Done (1)") {
		t.Fatal("done column not restored")
	}
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	m, f := newModel(t)
	m = update(t, m, runes("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	if got := prefs.Load(f.prefsPath).Theme; got != "Kanagawa" {
		t.Fatalf("saved theme = %q, want Kanagawa", got)
	}
}

func TestModel_HelpOverlay(t *testing.T) {
	m, _ := newModel(t)
	m = update(t, m, runes("?"))
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help not shown")
	}
	m = update(t, m, runes("j"))
	if m.showHelp {
		t.Fatal("help not closed by a key")
	}
	if got := m.selectedID(); got != "T1" {
		t.Fatalf("closing key also moved the selection to %q", got)
	}
}

func TestModel_RefreshAndQuit(t *testing.T) {
	m, f := newModel(t)

	m, cmd := updateCmd(t, m, runes("r"))
	msg := cmd()
	if _, ok := msg.(refreshedMsg); !ok || f.refreshes != 1 {
		t.Fatalf("refresh command returned %T, refreshes=%d", msg, f.refreshes)
	}
	m = update(t, m, refreshedMsg{err: errors.New("boom")})
	if !strings.Contains(m.flash, "boom") {
		t.Fatalf("flash = %q", m.flash)
	}

	_, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c did not quit")
	}
	_, cmd = updateCmd(t, m, runes("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestModel_HeaderShowsOffline(t *testing.T) {
	m, f := newModel(t)
	f.board.Update(nil, errors.New("dial tcp: connection refused"))
	f.board.Update(nil, errors.New("dial tcp: connection refused"))
	m = update(t, m, pollMsg{})
	view := m.View()
	if !strings.Contains(view, "OFFLINE") {
		t.Fatalf("header does not show offline state:\n%s", view)
	}
	if !strings.Contains(view, "Write report") {
		t.Fatal("task list lost while offline")
	}
}

func TestRun_RequiresStores(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("Run without stores succeeded")
	}
}
