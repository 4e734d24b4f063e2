package timer

import (
	"fmt"
	"time"

	"github.com/five82/taskclock/internal/clock"
)

// Display cadences for a running timer.
const (
	DisplayTick   = time.Second
	ResyncEvery   = 30 * time.Second
	millisPerSec  = int64(time.Second / time.Millisecond)
	secondsPerMin = 60
	secondsPerHr  = 3600
)

// Elapsed projects the whole seconds to display for rec at now without
// mutating anything.
//
// The baseline is ServerTotalTime when known, else TotalTime. A running
// record adds the time since its last server sync, or since its session
// start when it has never been synced, so local clock drift only accumulates
// from the last sync point.
func Elapsed(rec Record, now time.Time) int64 {
	base := rec.TotalTime
	if rec.ServerTotalTime != nil {
		base = *rec.ServerTotalTime
	}
	if !rec.IsRunning {
		return floorSeconds(base)
	}

	var anchor *int64
	switch {
	case rec.LastServerSync != nil:
		anchor = rec.LastServerSync
	case rec.SessionStartTime != nil:
		anchor = rec.SessionStartTime
	default:
		return floorSeconds(base)
	}
	delta := clock.Millis(now) - *anchor
	if delta < 0 {
		delta = 0
	}
	return floorSeconds(base + delta)
}

// FormatElapsed renders seconds as H:MM:SS from one hour up, else M:SS.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / secondsPerHr
	minutes := (seconds % secondsPerHr) / secondsPerMin
	secs := seconds % secondsPerMin
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func floorSeconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return ms / millisPerSec
}
