package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/taskclock/internal/backend"
)

// Snapshot represents the latest task list available to the board.
type Snapshot struct {
	Tasks               []backend.Task
	HasTasks            bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Task returns the listed task with the given id.
func (s Snapshot) Task(id string) (backend.Task, bool) {
	for _, t := range s.Tasks {
		if t.Key() == id {
			return t, true
		}
	}
	return backend.Task{}, false
}

// Columns groups the tasks by board column, keeping list order within a
// column. Tasks without an id are left out.
func (s Snapshot) Columns() map[backend.Column][]backend.Task {
	out := make(map[backend.Column][]backend.Task, len(backend.Columns))
	for _, t := range s.Tasks {
		if t.Key() == "" {
			continue
		}
		col := t.Column()
		out[col] = append(out[col], t)
	}
	return out
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored task list. When err is non-nil the previous
// list is kept but the error is recorded for visibility.
func (s *Store) Update(tasks []backend.Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Tasks = cloneTasks(tasks)
	s.snapshot.HasTasks = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetStatus moves a listed task to a new status locally, ahead of the next
// poll. It reports whether the task was found.
func (s *Store) SetStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.snapshot.Tasks {
		if s.snapshot.Tasks[i].Key() == id {
			s.snapshot.Tasks[i].Status = status
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Tasks = cloneTasks(s.snapshot.Tasks)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneTasks(items []backend.Task) []backend.Task {
	if len(items) == 0 {
		return nil
	}
	dup := make([]backend.Task, len(items))
	copy(dup, items)
	return dup
}

// SortByTitle orders tasks by title, then id, for stable listings.
func SortByTitle(tasks []backend.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Title != tasks[j].Title {
			return tasks[i].Title < tasks[j].Title
		}
		return tasks[i].Key() < tasks[j].Key()
	})
}
