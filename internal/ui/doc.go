// Package ui provides the taskclock terminal board.
//
// The board is a Bubble Tea program over two stores: state.Store holds the
// last fetched task list, timer.Store holds the timer records. Neither is
// owned by the board; it copies both on a one second poll and after every
// action it issues.
//
// # Layout
//
//   - Header: connection state, per-column counts, last update time
//   - Timer bar: the running task with its projected time, plus the timer
//     store's loading and error state
//   - Board: To Do, In Progress and Done columns (Done can be hidden)
//   - Footer: short key help, or the last action failure
//
// # Timer ticks
//
// While a task runs, two ticks are armed for it: a display tick every
// second that only re-projects elapsed time, and a sync tick on the
// configured interval that polls the server's status for that task. Both
// carry a generation; starting, pausing or switching tasks bumps it, and a
// tick whose generation is stale or whose task stopped running is dropped
// instead of rescheduled.
//
// # Keys
//
// See DefaultKeyMap. Timer actions go through reconcile.Client, so the
// board never talks to the backend directly.
package ui
