// Package timer holds the client-side timer state for tasks and the rules
// that mutate it.
//
// # Overview
//
// Every task that has ever been timed has a Record: its accumulated time, whether
// a session is open, when that session started, and the last server-confirmed
// total together with the instant it was confirmed. The Store keeps these records
// plus a single active-task pointer and is the only place they change.
//
// # Invariants
//
//   - A record is running exactly when its SessionStartTime is set.
//   - At most one record is running, and ActiveTaskID names it when it exists.
//   - Preemption (starting B while A runs) adds exactly now-start to A's total.
//   - Pausing a task that is not running changes nothing.
//
// # Sources of truth
//
// TotalTime is the locally accumulated figure; ServerTotalTime and
// LastServerSync are the anchor of the last server fold-in. They are kept apart
// on purpose: local transitions (Start, Resume, Pause, Stop) drop the anchor so
// the display counts from TotalTime, and server folds (ApplyStarted,
// ApplyPaused, ApplyStatus, SyncFromTaskList) set it again.
//
// # Files
//
//   - store.go: Store, local transitions, selectors
//   - fold.go: folding server snapshots into the store
//   - sync.go: reconciling against the authoritative task list
//   - projector.go: display-only elapsed time and formatting
//
// # Concurrency
//
// Mutations take the store lock for their whole duration. Change listeners and
// the session observer run after the lock is released, in the calling
// goroutine, so they may read the store but should not block.
package timer
