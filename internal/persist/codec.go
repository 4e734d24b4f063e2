package persist

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/five82/taskclock/internal/timer"
)

// slotState is the JSON shape of the slot: {activeTaskId, tasks}.
type slotState struct {
	ActiveTaskID *string               `json:"activeTaskId"`
	Tasks        map[string]slotRecord `json:"tasks"`
}

// slotRecord accepts loosely typed numbers so a hand-edited or older slot
// still loads. SessionStartTime may be a number, a numeric string or null.
type slotRecord struct {
	TotalTime        float64  `json:"totalTime"`
	IsRunning        bool     `json:"isRunning"`
	SessionStartTime any      `json:"sessionStartTime"`
	ServerTotalTime  *float64 `json:"serverTotalTime,omitempty"`
	LastServerSync   *float64 `json:"lastServerSync,omitempty"`
}

func encode(st timer.State) ([]byte, error) {
	out := slotState{Tasks: make(map[string]slotRecord, len(st.Tasks))}
	if st.ActiveTaskID != "" {
		id := st.ActiveTaskID
		out.ActiveTaskID = &id
	}
	for id, rec := range st.Tasks {
		sr := slotRecord{
			TotalTime: float64(rec.TotalTime),
			IsRunning: rec.IsRunning,
		}
		if rec.SessionStartTime != nil {
			sr.SessionStartTime = *rec.SessionStartTime
		}
		if rec.ServerTotalTime != nil {
			v := float64(*rec.ServerTotalTime)
			sr.ServerTotalTime = &v
		}
		if rec.LastServerSync != nil {
			v := float64(*rec.LastServerSync)
			sr.LastServerSync = &v
		}
		out.Tasks[id] = sr
	}
	return json.Marshal(out)
}

// decode parses the slot and normalises it at now: a record that claims to
// run without a valid, positive session start younger than
// timer.MaxSessionAge is forced stopped, and the active pointer is made
// consistent with what is left running.
func decode(data []byte, now time.Time) (timer.State, error) {
	var raw slotState
	if err := json.Unmarshal(data, &raw); err != nil {
		return timer.State{}, err
	}

	st := timer.State{Tasks: make(map[string]timer.Record, len(raw.Tasks))}
	if raw.ActiveTaskID != nil {
		st.ActiveTaskID = *raw.ActiveTaskID
	}
	nowMs := now.UnixMilli()
	maxAge := timer.MaxSessionAge.Milliseconds()

	for id, sr := range raw.Tasks {
		rec := timer.Record{
			TotalTime: int64(sr.TotalTime),
			IsRunning: sr.IsRunning,
		}
		if sr.ServerTotalTime != nil {
			v := int64(*sr.ServerTotalTime)
			rec.ServerTotalTime = &v
		}
		if sr.LastServerSync != nil {
			v := int64(*sr.LastServerSync)
			rec.LastServerSync = &v
		}
		if rec.IsRunning {
			start, ok := numeric(sr.SessionStartTime)
			if ok && start > 0 && nowMs-start < maxAge {
				rec.SessionStartTime = &start
			} else {
				rec.IsRunning = false
			}
		}
		if !rec.IsRunning && st.ActiveTaskID == id {
			st.ActiveTaskID = ""
		}
		st.Tasks[id] = rec
	}

	reconcileActive(&st)
	return st, nil
}

// reconcileActive keeps at most one running record. A valid active pointer
// wins; otherwise the latest session start is adopted.
func reconcileActive(st *timer.State) {
	if rec, ok := st.Tasks[st.ActiveTaskID]; !ok || !rec.IsRunning {
		st.ActiveTaskID = ""
	}
	var running []string
	for id, rec := range st.Tasks {
		if rec.IsRunning {
			running = append(running, id)
		}
	}
	if len(running) == 0 {
		return
	}
	if st.ActiveTaskID == "" {
		sort.Slice(running, func(i, j int) bool {
			return *st.Tasks[running[i]].SessionStartTime > *st.Tasks[running[j]].SessionStartTime
		})
		st.ActiveTaskID = running[0]
	}
	for _, id := range running {
		if id == st.ActiveTaskID {
			continue
		}
		rec := st.Tasks[id]
		rec.IsRunning = false
		rec.SessionStartTime = nil
		st.Tasks[id] = rec
	}
}

func numeric(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
