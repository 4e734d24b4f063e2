package timer

// TaskTimer carries the timer-relevant fields of one task from the
// authoritative task list.
type TaskTimer struct {
	ID               string
	TotalTrackedTime *int64
	CurrentTotalTime *int64
	// TimerState is nil when the task carries no timer state at all.
	TimerState *TaskTimerState
}

// TaskTimerState is the nested running state of a listed task.
type TaskTimerState struct {
	IsRunning           bool
	CurrentSessionStart string
}

// HasTimerData reports whether the task has ever been timed.
func (t TaskTimer) HasTimerData() bool {
	return t.TotalTrackedTime != nil || t.TimerState != nil
}

// AnyTimerData reports whether at least one task carries timer fields.
func AnyTimerData(tasks []TaskTimer) bool {
	for _, t := range tasks {
		if t.HasTimerData() {
			return true
		}
	}
	return false
}

// SyncFromTaskList replaces the record map with the view from the task list.
//
// A task the server reports running (with a valid session start) becomes the
// active task. Without one, a locally running active record that is still
// plausible keeps its session and takes the listed total as its new baseline.
// Every other listed task is stored stopped. Tasks without timer fields are
// skipped, so they drop out of the store.
func (s *Store) SyncFromTaskList(tasks []TaskTimer) {
	s.mutate(func(now int64) []Session {
		savedActive := s.state.ActiveTaskID
		local, hasLocal := s.state.Tasks[savedActive]
		keepLocal := savedActive != "" && hasLocal && local.plausiblyRunning(now)

		winner, winnerStart := serverRunningTask(tasks)
		if winner != "" {
			keepLocal = false
		}

		next := make(map[string]Record, len(tasks))
		active := ""
		for _, task := range tasks {
			if task.ID == "" || !task.HasTimerData() {
				continue
			}
			tracked := int64(0)
			if task.TotalTrackedTime != nil {
				tracked = *task.TotalTrackedTime
			}
			current := tracked
			if task.CurrentTotalTime != nil {
				current = *task.CurrentTotalTime
			}

			switch {
			case task.ID == winner:
				next[task.ID] = Record{
					TotalTime:        tracked,
					IsRunning:        true,
					SessionStartTime: ptr(winnerStart),
					ServerTotalTime:  ptr(current),
					LastServerSync:   ptr(now),
				}
				active = task.ID
			case keepLocal && task.ID == savedActive:
				rec := local.clone()
				rec.TotalTime = tracked
				next[task.ID] = rec
				active = task.ID
			default:
				next[task.ID] = Record{
					TotalTime:       tracked,
					ServerTotalTime: ptr(current),
					LastServerSync:  ptr(now),
				}
			}
		}

		s.state.Tasks = next
		s.state.ActiveTaskID = active
		return nil
	})
}

// serverRunningTask picks the task the server reports running. When the
// server reports several, the most recent session start wins; later list
// entries win ties.
func serverRunningTask(tasks []TaskTimer) (string, int64) {
	var (
		id    string
		start int64
	)
	for _, task := range tasks {
		if task.ID == "" || task.TimerState == nil || !task.TimerState.IsRunning {
			continue
		}
		at, ok := ParseTimestamp(task.TimerState.CurrentSessionStart)
		if !ok {
			continue
		}
		if id == "" || at >= start {
			id, start = task.ID, at
		}
	}
	return id, start
}
