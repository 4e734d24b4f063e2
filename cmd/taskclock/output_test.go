package main

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/timer"
)

func TestPrintTasks_ShowsDueDateAndTimer(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks := []backend.Task{
		{ID: "T1", Title: "Write report", Status: "pending", DueDate: "2025-03-14T00:00:00.000Z"},
		{ID: "T2", Title: "Review PR", Status: "in-progress"},
	}
	snap := timer.Snapshot{State: timer.State{Tasks: map[string]timer.Record{
		"T1": {TotalTime: 61_500},
	}}}

	var out bytes.Buffer
	printTasks(&out, tasks, snap, now)

	for _, pattern := range []string{
		`ID\s+TITLE\s+STATUS\s+DUE\s+TIMER\s+TIME`,
		`T1\s+Write report\s+To Do\s+2025-03-14\s+paused\s+1:01`,
		`T2\s+Review PR\s+In Progress\s+-`,
	} {
		if !regexp.MustCompile(pattern).MatchString(out.String()) {
			t.Fatalf("output does not match %q:\n%s", pattern, out.String())
		}
	}
}

func TestPrintTasks_Empty(t *testing.T) {
	var out bytes.Buffer
	printTasks(&out, nil, timer.Snapshot{}, time.Now())
	if out.String() != "no tasks\n" {
		t.Fatalf("output = %q, want no tasks", out.String())
	}
}
