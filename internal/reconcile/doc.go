// Package reconcile keeps the local timer store and the server's timer API
// in agreement.
//
// Every action is optimistic: the store transitions first so the board
// reacts at once, then the server is called and its task snapshot is folded
// back in with lastServerSync set to now.
//
//	Start(B) with A running:
//	  store.Start(B)          A paused locally, B running
//	  POST /tasks/B/timer/start
//	  store.ApplyStarted()    B anchored on the server's totals
//	  go Status(A)            A reconciled with the server's closed session
//
// Actions on the same task are serialised; actions on different tasks may
// overlap. A failed action re-polls the task's status so local state
// converges on the server's view, records the message in the store's
// error, and returns the original error.
//
// Close waits for outstanding background polls, which a one-shot CLI
// command needs before it exits. Abort cancels them instead.
package reconcile
