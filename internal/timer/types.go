package timer

import "time"

// MaxSessionAge bounds how old a running session may be before it is treated
// as abandoned.
const MaxSessionAge = 24 * time.Hour

// Record is the per-task timer state. All times are milliseconds; instants
// are milliseconds since the Unix epoch.
type Record struct {
	// TotalTime is the accumulated tracked time.
	TotalTime int64 `json:"totalTime"`
	IsRunning bool  `json:"isRunning"`
	// SessionStartTime is set exactly when IsRunning is true.
	SessionStartTime *int64 `json:"sessionStartTime"`
	// ServerTotalTime is the last server-computed total, used as the display
	// baseline. It may lag TotalTime between syncs.
	ServerTotalTime *int64 `json:"serverTotalTime,omitempty"`
	LastServerSync  *int64 `json:"lastServerSync,omitempty"`
}

// SessionStart returns the session start as a time.Time.
func (r Record) SessionStart() (time.Time, bool) {
	if r.SessionStartTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*r.SessionStartTime), true
}

// plausiblyRunning reports whether r is running with a positive start no
// older than MaxSessionAge at now.
func (r Record) plausiblyRunning(now int64) bool {
	if !r.IsRunning || r.SessionStartTime == nil {
		return false
	}
	start := *r.SessionStartTime
	return start > 0 && now-start < MaxSessionAge.Milliseconds()
}

// State is the persisted part of the store.
type State struct {
	// ActiveTaskID is empty when no task is running.
	ActiveTaskID string            `json:"activeTaskId"`
	Tasks        map[string]Record `json:"tasks"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{ActiveTaskID: s.ActiveTaskID, Tasks: make(map[string]Record, len(s.Tasks))}
	for id, rec := range s.Tasks {
		out.Tasks[id] = rec.clone()
	}
	return out
}

func (r Record) clone() Record {
	out := r
	out.SessionStartTime = cloneInt(r.SessionStartTime)
	out.ServerTotalTime = cloneInt(r.ServerTotalTime)
	out.LastServerSync = cloneInt(r.LastServerSync)
	return out
}

// Snapshot is a copy of the store for readers, including transient fields
// that are never persisted.
type Snapshot struct {
	State
	Loading bool
	Err     string
}

// Running returns the active record, if any.
func (s Snapshot) Running() (string, Record, bool) {
	if s.ActiveTaskID == "" {
		return "", Record{}, false
	}
	rec, ok := s.Tasks[s.ActiveTaskID]
	if !ok || !rec.IsRunning {
		return "", Record{}, false
	}
	return s.ActiveTaskID, rec, true
}

// Session is one closed running interval.
type Session struct {
	TaskID string
	Start  time.Time
	End    time.Time
}

// Duration returns End-Start.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	dup := *v
	return &dup
}

func ptr(v int64) *int64 { return &v }
