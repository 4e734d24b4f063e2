package timer

import (
	"strings"
	"time"
)

const legacyTimestampLayout = "2006-01-02 15:04:05"

// ServerTimer is an authoritative timer snapshot for one task, as returned by
// the start, pause, resume and status endpoints.
type ServerTimer struct {
	TaskID string
	// TotalTracked is the accumulated time of closed sessions.
	TotalTracked int64
	// CurrentTotal is the server-computed total including any open session.
	// Nil falls back to TotalTracked.
	CurrentTotal *int64
	Running      bool
	// SessionStart is the raw session-start timestamp; unparseable values
	// are treated as absent.
	SessionStart string
}

func (t ServerTimer) currentTotal() int64 {
	if t.CurrentTotal != nil {
		return *t.CurrentTotal
	}
	return t.TotalTracked
}

// ApplyStarted folds the snapshot returned by a successful start or resume.
// Any other running session is closed first and anchored to the fold instant.
func (s *Store) ApplyStarted(snap ServerTimer) {
	if snap.TaskID == "" {
		return
	}
	s.mutate(func(now int64) []Session {
		closed := s.preemptLocked(snap.TaskID, now, true)
		s.overwriteLocked(snap, now)
		return closed
	})
}

// ApplyPaused folds the snapshot returned by a successful pause. The record
// ends stopped whatever the snapshot's running flag says.
func (s *Store) ApplyPaused(snap ServerTimer) {
	if snap.TaskID == "" {
		return
	}
	snap.Running = false
	s.mutate(func(now int64) []Session {
		s.overwriteLocked(snap, now)
		return nil
	})
}

// ApplyStatus folds a status poll. A status poll never preempts: when another
// task holds the active slot, a running snapshot is stored stopped and the
// local active session keeps precedence until its own next sync.
func (s *Store) ApplyStatus(snap ServerTimer) {
	if snap.TaskID == "" {
		return
	}
	s.mutate(func(now int64) []Session {
		if snap.Running {
			if other := s.state.ActiveTaskID; other != "" && other != snap.TaskID && s.state.Tasks[other].IsRunning {
				snap.Running = false
			}
		}
		s.overwriteLocked(snap, now)
		return nil
	})
}

// overwriteLocked replaces the record for snap.TaskID with the server's view
// and anchors it at now.
func (s *Store) overwriteLocked(snap ServerTimer, now int64) {
	prev, hadPrev := s.state.Tasks[snap.TaskID]
	rec := Record{
		TotalTime:       snap.TotalTracked,
		ServerTotalTime: ptr(snap.currentTotal()),
		LastServerSync:  ptr(now),
	}
	if snap.Running {
		rec.IsRunning = true
		if start, ok := ParseTimestamp(snap.SessionStart); ok {
			rec.SessionStartTime = ptr(start)
		} else if hadPrev && prev.IsRunning && prev.SessionStartTime != nil {
			rec.SessionStartTime = cloneInt(prev.SessionStartTime)
		} else {
			rec.SessionStartTime = ptr(now)
		}
		s.state.Tasks[snap.TaskID] = rec
		s.state.ActiveTaskID = snap.TaskID
		return
	}
	s.state.Tasks[snap.TaskID] = rec
	if s.state.ActiveTaskID == snap.TaskID {
		s.state.ActiveTaskID = ""
	}
}

// ParseTimestamp converts a server timestamp to epoch milliseconds. It
// reports false for empty, unparseable or non-positive values.
func ParseTimestamp(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return positiveMillis(t)
		}
	}
	if t, err := time.ParseInLocation(legacyTimestampLayout, value, time.Local); err == nil {
		return positiveMillis(t)
	}
	return 0, false
}

func positiveMillis(t time.Time) (int64, bool) {
	ms := t.UnixMilli()
	if ms <= 0 {
		return 0, false
	}
	return ms, true
}
