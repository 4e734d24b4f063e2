package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutMinColumnWidth is the narrowest a board column is drawn.
	LayoutMinColumnWidth = 18
)

// Chrome heights: header, command bar and footer.
const (
	headerLines = 2
	footerLines = 1

	helpModalWidth = 40
)

// Timing constants.
const (
	// DefaultUIInterval is how often the board re-reads the stores.
	DefaultUIInterval = time.Second

	// ActionTimeout bounds a single timer action issued from the board.
	ActionTimeout = 15 * time.Second
)
