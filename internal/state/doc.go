// Package state holds the latest task list shared between the background
// poller and the board.
//
// # Overview
//
// The poller is the single writer: every refresh calls Store.Update with the
// fetched list or the error that prevented it. The board is the reader and
// renders from Store.Snapshot, which returns a copy so rendering never races
// a refresh.
//
//	Producer (poller):             Consumer (board):
//	ListTasks()                    store.Snapshot()
//	     |                              |
//	store.Update() ----(mutex)----> render columns
//
// # Failure Tracking
//
// A failed poll keeps the previous list and increments ConsecutiveFailures.
// Two or more consecutive failures mark the snapshot offline, which the board
// shows in its header. The first successful poll resets the counter.
//
// # Timer State
//
// Timer records do not live here. They are owned by timer.Store, which the
// poller feeds through SyncFromTaskList; this package only carries the task
// metadata (title, status, assignee) the board needs for layout.
package state
