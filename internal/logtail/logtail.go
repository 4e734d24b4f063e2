package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// LineLevel extracts the level=... field written by slog's text handler.
func LineLevel(line string) (slog.Level, bool) {
	for _, field := range strings.Fields(line) {
		value, ok := strings.CutPrefix(field, "level=")
		if !ok {
			continue
		}
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			return 0, false
		}
		return level, true
	}
	return 0, false
}

// Filter keeps lines at or above minLevel. Lines without a level field belong to
// the record before them and follow its fate.
func Filter(lines []string, minLevel slog.Level) []string {
	out := make([]string, 0, len(lines))
	keep := true
	for _, line := range lines {
		if level, ok := LineLevel(line); ok {
			keep = level >= minLevel
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dbc074")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d")).Bold(true)
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#71839b"))
)

// Colorize styles a line by its level for terminal output. Info and
// unlevelled lines are returned unchanged.
func Colorize(line string) string {
	level, ok := LineLevel(line)
	if !ok {
		return line
	}
	switch {
	case level >= slog.LevelError:
		return errorStyle.Render(line)
	case level >= slog.LevelWarn:
		return warnStyle.Render(line)
	case level < slog.LevelInfo:
		return debugStyle.Render(line)
	default:
		return line
	}
}
