package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/taskclock/internal/timer"
)

// renderHeader renders the connection and task-list status bar.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	sep := bg.Spaces(2)

	parts := []string{bg.Render("taskclock", styles.Logo)}

	snap := m.snapshot
	switch {
	case !snap.HasTasks && snap.LastError == nil:
		parts = append(parts, bg.Render("Loading tasks...", styles.WarningText.Bold(true)))
	case snap.IsOffline():
		parts = append(parts,
			bg.Render("● "+classifyConnectionError(snap.LastError), styles.DangerText),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
		)
	default:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if snap.HasTasks {
		cols := snap.Columns()
		counts := make([]string, 0, len(cols))
		for _, c := range m.visibleColumns() {
			label := c.String()
			if compact {
				label = string([]rune(label)[0])
			}
			counts = append(counts,
				bg.Render(label+":", styles.MutedText)+bg.Space()+
					bg.Render(fmt.Sprintf("%d", len(cols[c])), styles.Text))
		}
		parts = append(parts, bg.Join(counts, "  "))
	}

	if ts := formatUpdated(snap.LastUpdated, m.now); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if snap.LastError != nil && !snap.IsOffline() {
		maxErr := 80
		if compact {
			maxErr = 40
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncateText(snap.LastError.Error(), maxErr), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
}

// renderTimerBar renders the active timer line: the running task, its
// projected time and the store's transient loading and error state.
func (m Model) renderTimerBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	var parts []string
	if id, rec, ok := m.timerSnap.Running(); ok {
		name := id
		if task, found := m.snapshot.Task(id); found && task.Title != "" {
			name = task.Title
		}
		runStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColors["running"]))
		parts = append(parts,
			bg.Render("▶", runStyle)+bg.Space()+
				bg.Render(truncateText(name, 40), styles.Text)+bg.Space()+
				bg.Render(timer.FormatElapsed(timer.Elapsed(rec, m.now)), styles.AccentText.Bold(true)))
	} else {
		parts = append(parts, bg.Render("No timer running", styles.MutedText))
	}

	if m.timerSnap.Loading {
		parts = append(parts, bg.Render("syncing...", styles.InfoText))
	}
	if m.timerSnap.Err != "" {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncateText(m.timerSnap.Err, 60), styles.WarningText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
}

// renderFooter shows the last action failure, or the short key help.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.flash != "" {
		return styles.Footer.Width(m.width).Render(styles.DangerText.Render(truncateText(m.flash, maxInt(m.width-2, 10))))
	}
	hints := m.help.ShortHelpView(m.keys.ShortHelp())
	theme := styles.AccentText.Render("T") + styles.FaintText.Render(":"+m.theme.Name)
	return styles.Footer.Width(m.width).Render(hints + "  " + theme)
}
