package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/timer"
)

// columnStatus maps a board column onto the status key used for its color.
func columnStatus(c backend.Column) string {
	switch c {
	case backend.ColumnInProgress:
		return "in-progress"
	case backend.ColumnDone:
		return "completed"
	default:
		return "pending"
	}
}

// visibleColumns returns the columns drawn, in order.
func (m Model) visibleColumns() []backend.Column {
	if !m.hideDone {
		return backend.Columns
	}
	out := make([]backend.Column, 0, len(backend.Columns))
	for _, c := range backend.Columns {
		if c != backend.ColumnDone {
			out = append(out, c)
		}
	}
	return out
}

func (m Model) currentColumn() backend.Column {
	cols := m.visibleColumns()
	if m.column < 0 || m.column >= len(cols) {
		return cols[0]
	}
	return cols[m.column]
}

func (m Model) columnTasks(c backend.Column) []backend.Task {
	return m.snapshot.Columns()[c]
}

// selectedID returns the id of the highlighted task, or "" when the current
// column is empty.
func (m Model) selectedID() string {
	col := m.currentColumn()
	tasks := m.columnTasks(col)
	row := m.rows[col]
	if row < 0 || row >= len(tasks) {
		return ""
	}
	return tasks[row].Key()
}

func (m *Model) moveRow(delta int) {
	col := m.currentColumn()
	n := len(m.columnTasks(col))
	if n == 0 {
		return
	}
	row := m.rows[col] + delta
	if row < 0 {
		row = 0
	}
	if row > n-1 {
		row = n - 1
	}
	m.rows[col] = row
}

func (m *Model) moveColumn(delta int) {
	n := len(m.visibleColumns())
	m.column += delta
	if m.column < 0 {
		m.column = 0
	}
	if m.column > n-1 {
		m.column = n - 1
	}
}

// clampSelection keeps the selection inside the visible board after the
// task list or the column set changed.
func (m *Model) clampSelection() {
	cols := m.visibleColumns()
	if m.column > len(cols)-1 {
		m.column = len(cols) - 1
	}
	if m.column < 0 {
		m.column = 0
	}
	grouped := m.snapshot.Columns()
	for _, c := range backend.Columns {
		n := len(grouped[c])
		if m.rows[c] > n-1 {
			m.rows[c] = maxInt(n-1, 0)
		}
	}
}

// renderBoard lays the visible columns side by side.
func (m Model) renderBoard() string {
	cols := m.visibleColumns()
	height := m.height - headerLines - footerLines - 1
	if height < 4 {
		height = 4
	}
	width := maxInt(m.width/len(cols), LayoutMinColumnWidth)

	grouped := m.snapshot.Columns()
	rendered := make([]string, 0, len(cols))
	for i, c := range cols {
		rendered = append(rendered, m.renderColumn(c, grouped[c], i == m.column, width, height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(c backend.Column, tasks []backend.Task, focused bool, width, height int) string {
	styles := m.theme.Styles()

	borderColor := m.theme.BorderMuted
	if focused {
		borderColor = m.theme.BorderFocus
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Width(width - 2).
		Height(height - 2)

	// Inside the border: one title line, the rest for tasks.
	inner := width - 2
	title := styles.StatusStyle(columnStatus(c)).Render(fmt.Sprintf("%s (%d)", c, len(tasks)))

	lines := []string{title}
	visible := height - 3
	if len(tasks) == 0 {
		lines = append(lines, styles.FaintText.Render("No tasks"))
	}

	selected := m.rows[c]
	start := 0
	if visible > 0 && selected >= visible {
		start = selected - visible + 1
	}
	for i := start; i < len(tasks) && i-start < visible; i++ {
		lines = append(lines, m.renderTaskLine(tasks[i], inner, focused && i == selected))
	}

	return box.Render(strings.Join(lines, "\n"))
}

// renderTaskLine draws one card: a run marker, the title and, when the task
// has a timer record, its projected time flush right.
func (m Model) renderTaskLine(t backend.Task, width int, selected bool) string {
	styles := m.theme.Styles()
	id := t.Key()

	rec, hasRec := m.timerSnap.Tasks[id]
	running := hasRec && rec.IsRunning

	marker := "  "
	if running {
		marker = "▶ "
	}
	elapsed := ""
	if hasRec {
		elapsed = timer.FormatElapsed(timer.Elapsed(rec, m.now))
	}

	name := t.Title
	if strings.TrimSpace(name) == "" {
		name = id
	}
	titleWidth := width - lipgloss.Width(marker) - lipgloss.Width(elapsed) - 1
	name = truncateText(name, titleWidth)

	gap := width - lipgloss.Width(marker) - lipgloss.Width(name) - lipgloss.Width(elapsed)
	if gap < 1 {
		gap = 1
	}
	line := marker + name + strings.Repeat(" ", gap) + elapsed

	switch {
	case selected:
		return styles.Selected.Width(width).Render(line)
	case running:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.StatusColors["running"])).
			Width(width).
			Render(line)
	default:
		return styles.Text.Width(width).Render(line)
	}
}
