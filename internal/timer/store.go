package timer

import (
	"sync"

	"github.com/five82/taskclock/internal/clock"
)

// Store owns every timer record mutation. Each exported mutation runs under
// the store lock, so readers never observe a half-applied transition.
type Store struct {
	mu      sync.RWMutex
	clock   clock.Clock
	state   State
	loading bool
	err     string

	listeners []func()
	onSession func(Session)
}

// NewStore returns a Store seeded with initial. A nil clock uses the system clock.
func NewStore(c clock.Clock, initial State) *Store {
	if c == nil {
		c = clock.New()
	}
	st := initial.Clone()
	return &Store{clock: c, state: st}
}

// OnChange registers fn to run after every mutation. Listeners run outside
// the store lock and may read the store.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnSessionClosed registers fn to receive every session the store closes
// locally (pause, stop or preemption).
func (s *Store) OnSessionClosed(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSession = fn
}

// Clock returns the store's time source.
func (s *Store) Clock() clock.Clock { return s.clock }

// mutate applies fn under the lock, then notifies session observers and
// change listeners.
func (s *Store) mutate(fn func(now int64) []Session) {
	s.mu.Lock()
	closed := fn(clock.Millis(s.clock.Now()))
	listeners := append([]func(){}, s.listeners...)
	observer := s.onSession
	s.mu.Unlock()

	if observer != nil {
		for _, sess := range closed {
			observer(sess)
		}
	}
	for _, l := range listeners {
		l()
	}
}

// Start opens a session for taskID, closing any other running session first.
// Starting a task that is already running leaves its session untouched.
func (s *Store) Start(taskID string) {
	if taskID == "" {
		return
	}
	s.mutate(func(now int64) []Session {
		if rec, ok := s.state.Tasks[taskID]; ok && rec.IsRunning && s.state.ActiveTaskID == taskID {
			return nil
		}
		closed := s.preemptLocked(taskID, now, false)
		rec := s.state.Tasks[taskID]
		s.openLocked(taskID, rec, now)
		return closed
	})
}

// Resume reopens a session for an existing record, closing any other running
// session first. It reports false and changes nothing when taskID has no record.
func (s *Store) Resume(taskID string) bool {
	known := false
	s.mutate(func(now int64) []Session {
		rec, ok := s.state.Tasks[taskID]
		if !ok {
			return nil
		}
		known = true
		if rec.IsRunning && s.state.ActiveTaskID == taskID {
			return nil
		}
		closed := s.preemptLocked(taskID, now, false)
		s.openLocked(taskID, s.state.Tasks[taskID], now)
		return closed
	})
	return known
}

// Pause folds the running session of taskID (or of the active task when
// taskID is empty) into its total. It is a no-op for a task that is not running.
func (s *Store) Pause(taskID string) {
	s.mutate(func(now int64) []Session {
		id := s.targetLocked(taskID)
		if id == "" {
			return nil
		}
		rec, ok := s.state.Tasks[id]
		if !ok || !rec.IsRunning {
			return nil
		}
		sess := s.foldLocked(id, now, false)
		return []Session{sess}
	})
}

// Stop is Pause for forced resets: the record ends stopped even when it was
// not running.
func (s *Store) Stop(taskID string) {
	s.mutate(func(now int64) []Session {
		id := s.targetLocked(taskID)
		if id == "" {
			return nil
		}
		rec, ok := s.state.Tasks[id]
		if !ok {
			return nil
		}
		var closed []Session
		if rec.IsRunning {
			closed = append(closed, s.foldLocked(id, now, false))
		} else {
			rec.SessionStartTime = nil
			s.state.Tasks[id] = rec
		}
		if s.state.ActiveTaskID == id {
			s.state.ActiveTaskID = ""
		}
		return closed
	})
}

// Reset zeroes the record for taskID. A running session is discarded.
func (s *Store) Reset(taskID string) {
	s.mutate(func(int64) []Session {
		if _, ok := s.state.Tasks[taskID]; !ok {
			return nil
		}
		s.state.Tasks[taskID] = Record{}
		if s.state.ActiveTaskID == taskID {
			s.state.ActiveTaskID = ""
		}
		return nil
	})
}

// Clear drops every record and the transient fields.
func (s *Store) Clear() {
	s.mutate(func(int64) []Session {
		s.state = State{Tasks: map[string]Record{}}
		s.err = ""
		s.loading = false
		return nil
	})
}

// SetLoading records whether a timer request is in flight.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// SetError records a transient, display-only error. An empty msg clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// ActiveTaskID returns the running task, or "".
func (s *Store) ActiveTaskID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveTaskID
}

// IsRunning reports whether taskID has an open session.
func (s *Store) IsRunning(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Tasks[taskID].IsRunning
}

// TotalTime returns the stored total for taskID in milliseconds.
func (s *Store) TotalTime(taskID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Tasks[taskID].TotalTime
}

// Record returns a copy of the record for taskID.
func (s *Store) Record(taskID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.state.Tasks[taskID]
	return rec.clone(), ok
}

// State returns a copy of the persisted state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Snapshot returns a copy of the full store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state.Clone(), Loading: s.loading, Err: s.err}
}

func (s *Store) targetLocked(taskID string) string {
	if taskID != "" {
		return taskID
	}
	return s.state.ActiveTaskID
}

// preemptLocked closes every running session other than keep. When anchor is
// true the folded total also becomes the record's sync anchor.
func (s *Store) preemptLocked(keep string, now int64, anchor bool) []Session {
	var closed []Session
	if id := s.state.ActiveTaskID; id != "" && id != keep {
		if rec, ok := s.state.Tasks[id]; ok && rec.IsRunning {
			closed = append(closed, s.foldLocked(id, now, anchor))
		}
		s.state.ActiveTaskID = ""
	}
	for id, rec := range s.state.Tasks {
		if id != keep && rec.IsRunning {
			closed = append(closed, s.foldLocked(id, now, anchor))
		}
	}
	return closed
}

// foldLocked adds the elapsed session time of a running record to its total
// and marks it stopped.
func (s *Store) foldLocked(taskID string, now int64, anchor bool) Session {
	rec := s.state.Tasks[taskID]
	start := now
	if rec.SessionStartTime != nil {
		start = *rec.SessionStartTime
	}
	elapsed := now - start
	if elapsed < 0 {
		elapsed = 0
	}
	rec.TotalTime += elapsed
	rec.IsRunning = false
	rec.SessionStartTime = nil
	if anchor {
		rec.ServerTotalTime = ptr(rec.TotalTime)
		rec.LastServerSync = ptr(now)
	} else {
		rec.ServerTotalTime = nil
		rec.LastServerSync = nil
	}
	s.state.Tasks[taskID] = rec
	if s.state.ActiveTaskID == taskID {
		s.state.ActiveTaskID = ""
	}
	return Session{
		TaskID: taskID,
		Start:  clock.FromMillis(start),
		End:    clock.FromMillis(start + elapsed),
	}
}

// openLocked marks rec running from now. Local transitions drop the server
// anchor so the display counts from the local total.
func (s *Store) openLocked(taskID string, rec Record, now int64) {
	rec.IsRunning = true
	rec.SessionStartTime = ptr(now)
	rec.ServerTotalTime = nil
	rec.LastServerSync = nil
	s.state.Tasks[taskID] = rec
	s.state.ActiveTaskID = taskID
}
