// Package persist keeps the timer store alive across restarts.
//
// # Overview
//
// The Gateway is the only reader and writer of the timer slot, a single JSON
// document stored as <state_dir>/timerState.json:
//
//	{"activeTaskId": "T1" | null,
//	 "tasks": {"T1": {"totalTime": 61500, "isRunning": true,
//	                  "sessionStartTime": 1741597200000, ...}}}
//
// # Loading
//
// Load normalises what it reads before the store sees it:
//   - A running record needs a numeric session start less than 24 hours old.
//     Anything else is stopped with its accumulated total kept.
//   - At most one record stays running. A valid active pointer wins,
//     otherwise the latest start.
//   - A missing slot is empty. A corrupt slot is logged and also empty.
//
// # Saving
//
// Attach subscribes to store changes. Every change re-arms a 500 ms timer on
// the injected clock, so a burst of transitions produces one write. Flush
// writes a pending save immediately and Clear drops it and removes the slot
// on logout. Write failures are logged and never reach the caller of a
// timer action.
//
// FileSlot writes through github.com/google/renameio/v2, so a crash mid-write
// leaves the previous slot intact.
package persist
