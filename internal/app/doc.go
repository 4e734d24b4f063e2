// Package app is the composition root for taskclock.
//
// # Overview
//
// New wires configuration, the persisted timer slot, the backend client,
// the reconciler, the optional session archive and the task-list store into
// one App. The CLI commands and the board both work through it.
//
//	┌──────────────┐
//	│   New()      │
//	└──────┬───────┘
//	       │
//	       ├─────> persist.NewGateway()  Load the timer slot
//	       ├─────> timer.NewStore()      Seed the store, attach the saver
//	       ├─────> backend.NewClient()   Skipped when Offline
//	       ├─────> reconcile.New()       Timer actions with server folds
//	       └─────> archivemysql.Open()   Only when archive_dsn is set
//
//	RunBoard():
//	┌─────────────────────────────────────────┐
//	│ StartPoller() goroutine                 │
//	│  ├─> ListTasks()                        │
//	│  ├─> state.Store.Update()               │
//	│  └─> timer.Store.SyncFromTaskList()     │
//	│      (only when a task has timer data)  │
//	└─────────────────────────────────────────┘
//	ui.Run() blocks until the user quits
//
// # Polling Behavior
//
// The poller refreshes the task list every refresh_seconds. Consecutive
// failures double the wait up to five minutes; the first success resets it.
// Failures are logged and never end the board.
//
// # Offline Mode
//
// Options.Offline builds an App without a backend client. Only commands
// that touch the persisted slot (timers, stop, reset, logout) use it.
//
// # Shutdown
//
// Close cancels background status polls, flushes a pending slot write and
// drains the session archive before closing its database.
package app
