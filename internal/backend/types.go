package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/five82/taskclock/internal/timer"
)

// TaskListResponse mirrors GET /tasks/alltasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskResponse mirrors the start, pause and resume responses.
type TaskResponse struct {
	Task *Task `json:"task"`
}

// TimerStatusResponse mirrors GET /tasks/{id}/timer/status.
type TimerStatusResponse struct {
	Timer TimerStatus `json:"timer"`
}

// TimerStatus is the server's view of one task's timer.
type TimerStatus struct {
	TaskID              string  `json:"-"`
	IsRunning           bool    `json:"isRunning"`
	CurrentSessionStart string  `json:"currentSessionStart"`
	TotalTrackedTime    *Millis `json:"totalTrackedTime"`
	TotalTime           *Millis `json:"totalTime"`
}

// ServerTimer converts the status into the store's snapshot form.
func (s TimerStatus) ServerTimer() timer.ServerTimer {
	return timer.ServerTimer{
		TaskID:       s.TaskID,
		TotalTracked: s.TotalTrackedTime.Int64(),
		CurrentTotal: s.TotalTime.Ptr(),
		Running:      s.IsRunning,
		SessionStart: s.CurrentSessionStart,
	}
}

// Task is one entry of the task list.
type Task struct {
	ID               string      `json:"_id"`
	AltID            string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Status           string      `json:"status"`
	Priority         string      `json:"priority"`
	Assignee         Person      `json:"assignee"`
	DueDate          string      `json:"dueDate"`
	TotalTrackedTime *Millis     `json:"totalTrackedTime"`
	CurrentTotalTime *Millis     `json:"currentTotalTime"`
	TimerState       *TimerState `json:"timerState"`
}

// TimerState is the nested running state of a task.
type TimerState struct {
	IsRunning           bool   `json:"isRunning"`
	CurrentSessionStart string `json:"currentSessionStart"`
}

// Key returns the task identifier, preferring _id.
func (t Task) Key() string {
	if id := strings.TrimSpace(t.ID); id != "" {
		return id
	}
	return strings.TrimSpace(t.AltID)
}

// HasTimerData reports whether the task carries any timer field.
func (t Task) HasTimerData() bool {
	return t.TotalTrackedTime != nil || t.TimerState != nil
}

// Column returns the board column for the task's status.
func (t Task) Column() Column {
	return ColumnForStatus(t.Status)
}

// ParsedDueDate returns the due date, or the zero time when absent or invalid.
// Date-only values are read as midnight UTC.
func (t Task) ParsedDueDate() time.Time {
	if ms, ok := timer.ParseTimestamp(t.DueDate); ok {
		return time.UnixMilli(ms).UTC()
	}
	if d, err := time.Parse(time.DateOnly, strings.TrimSpace(t.DueDate)); err == nil {
		return d
	}
	return time.Time{}
}

// TaskTimer converts the task into the store's task-list form.
func (t Task) TaskTimer() timer.TaskTimer {
	out := timer.TaskTimer{
		ID:               t.Key(),
		TotalTrackedTime: t.TotalTrackedTime.Ptr(),
		CurrentTotalTime: t.CurrentTotalTime.Ptr(),
	}
	if t.TimerState != nil {
		out.TimerState = &timer.TaskTimerState{
			IsRunning:           t.TimerState.IsRunning,
			CurrentSessionStart: t.TimerState.CurrentSessionStart,
		}
	}
	return out
}

// ServerTimer converts a start, pause or resume response into the store's
// snapshot form.
func (t Task) ServerTimer() timer.ServerTimer {
	snap := timer.ServerTimer{
		TaskID:       t.Key(),
		TotalTracked: t.TotalTrackedTime.Int64(),
		CurrentTotal: t.CurrentTotalTime.Ptr(),
	}
	if t.TimerState != nil {
		snap.Running = t.TimerState.IsRunning
		snap.SessionStart = t.TimerState.CurrentSessionStart
	}
	return snap
}

// TaskTimers converts a task list for SyncFromTaskList.
func TaskTimers(tasks []Task) []timer.TaskTimer {
	out := make([]timer.TaskTimer, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.TaskTimer())
	}
	return out
}

// Column is a board column.
type Column int

const (
	ColumnTodo Column = iota
	ColumnInProgress
	ColumnDone
)

// Columns lists the board columns in display order.
var Columns = []Column{ColumnTodo, ColumnInProgress, ColumnDone}

func (c Column) String() string {
	switch c {
	case ColumnInProgress:
		return "In Progress"
	case ColumnDone:
		return "Done"
	default:
		return "To Do"
	}
}

// ColumnForStatus maps a server status onto a board column. Unknown
// statuses land in To Do.
func ColumnForStatus(status string) Column {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "in-progress", "in_progress", "inprogress":
		return ColumnInProgress
	case "completed", "done":
		return ColumnDone
	default:
		return ColumnTodo
	}
}

// ServerStatus maps board names (todo, done) onto the server's status values
// and passes anything else through.
func ServerStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "todo", "to-do":
		return "pending"
	case "done":
		return "completed"
	default:
		return s
	}
}

// Person is an assignee. The backend sends either a bare id or a populated
// user object.
type Person struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts a string id, an object or null.
func (p *Person) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Person{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Person{ID: id}
		return nil
	}
	type plain Person
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode assignee: %w", err)
	}
	*p = Person(v)
	return nil
}

// Display returns the best human label for the person.
func (p Person) Display() string {
	switch {
	case strings.TrimSpace(p.Name) != "":
		return p.Name
	case strings.TrimSpace(p.Email) != "":
		return p.Email
	default:
		return p.ID
	}
}

// Millis is a millisecond count that tolerates fractional JSON numbers.
type Millis int64

// UnmarshalJSON truncates fractional values and treats null as zero.
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode milliseconds: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("decode milliseconds: %v", f)
	}
	*m = Millis(int64(f))
	return nil
}

// Int64 returns the value, or zero for nil.
func (m *Millis) Int64() int64 {
	if m == nil {
		return 0
	}
	return int64(*m)
}

// Ptr returns a fresh *int64 copy, or nil for nil.
func (m *Millis) Ptr() *int64 {
	if m == nil {
		return nil
	}
	v := int64(*m)
	return &v
}
