package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// truncateText shortens a string to the given cell width, adding an ellipsis
// if needed. Width is measured in terminal cells, not bytes.
func truncateText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return ""
	}
	if lipgloss.Width(value) <= limit {
		return value
	}
	if limit <= 3 {
		return truncate.String(value, uint(limit))
	}
	return truncate.StringWithTail(value, uint(limit), "...")
}

// formatUpdated formats the last update time with a relative indicator.
func formatUpdated(at, now time.Time) string {
	if at.IsZero() {
		return ""
	}
	since := now.Sub(at)
	out := at.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// classifyConnectionError returns a short description of a poll error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"):
		return "UNAUTHORIZED"
	default:
		return "ERROR"
	}
}

// maxInt returns the larger of two integers.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
