package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/term"

	"github.com/five82/taskclock/internal/app"
	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/timer"
)

const (
	defaultTitleWidth = 40
	minTitleWidth     = 16
	// tableChrome is roughly what the non-title columns take.
	tableChrome = 56
)

func terminalWidth(fd int) int {
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

func titleWidth() int {
	w := stdoutWidth()
	if w == 0 {
		return defaultTitleWidth
	}
	if w-tableChrome < minTitleWidth {
		return minTitleWidth
	}
	return w - tableChrome
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func printTasks(w io.Writer, tasks []backend.Task, snap timer.Snapshot, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	width := titleWidth()
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		id := t.Key()
		if id == "" {
			continue
		}
		timerState, elapsed := "", ""
		if rec, ok := snap.Tasks[id]; ok {
			timerState = recordState(rec)
			elapsed = timer.FormatElapsed(timer.Elapsed(rec, now))
		}
		rows = append(rows, []string{
			id,
			truncate.StringWithTail(t.Title, uint(width), "..."),
			t.Column().String(),
			dueDate(t),
			timerState,
			elapsed,
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "TITLE", "STATUS", "DUE", "TIMER", "TIME"}, rows))
}

func dueDate(t backend.Task) string {
	due := t.ParsedDueDate()
	if due.IsZero() {
		return "-"
	}
	return due.Format(time.DateOnly)
}

func printTimers(w io.Writer, snap timer.Snapshot, now time.Time) {
	if len(snap.Tasks) == 0 {
		fmt.Fprintln(w, "no timers")
		return
	}
	ids := make([]string, 0, len(snap.Tasks))
	for id := range snap.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rec := snap.Tasks[id]
		started := "-"
		if at, ok := rec.SessionStart(); ok {
			started = at.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{id, recordState(rec), timer.FormatElapsed(timer.Elapsed(rec, now)), started})
	}
	fmt.Fprintln(w, renderTable([]string{"TASK", "STATE", "TIME", "STARTED"}, rows))
}

func printTimerLine(w io.Writer, verb string, a *app.App, taskID string) error {
	rec, _ := a.Timers.Record(taskID)
	now := a.Timers.Clock().Now()
	_, err := fmt.Fprintf(w, "%s %s %s (%s)\n", verb, taskID, timer.FormatElapsed(timer.Elapsed(rec, now)), recordState(rec))
	return err
}

func recordState(rec timer.Record) string {
	if rec.IsRunning {
		return "running"
	}
	return "paused"
}
