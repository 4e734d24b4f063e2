package timer

import (
	"testing"
	"time"
)

func TestElapsed_AnchorsOnLastServerSync(t *testing.T) {
	rec := Record{
		TotalTime:        40_000,
		IsRunning:        true,
		SessionStartTime: i64(ms(t0.Add(-time.Hour))),
		ServerTotalTime:  i64(100_000),
		LastServerSync:   i64(ms(t0)),
	}
	if got := Elapsed(rec, t0.Add(5000*time.Millisecond)); got != 105 {
		t.Fatalf("Elapsed = %d, want 105", got)
	}
	if got := Elapsed(rec, t0.Add(5999*time.Millisecond)); got != 105 {
		t.Fatalf("Elapsed = %d, want 105 (floored)", got)
	}
}

func TestElapsed_Cases(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		now  time.Time
		want int64
	}{
		{
			name: "stopped uses server total",
			rec:  Record{TotalTime: 10_000, ServerTotalTime: i64(12_500)},
			now:  t0,
			want: 12,
		},
		{
			name: "stopped falls back to total",
			rec:  Record{TotalTime: 61_900},
			now:  t0,
			want: 61,
		},
		{
			name: "running without sync counts from session start",
			rec:  Record{TotalTime: 30_000, IsRunning: true, SessionStartTime: i64(ms(t0))},
			now:  t0.Add(15 * time.Second),
			want: 45,
		},
		{
			name: "clock behind anchor clamps",
			rec:  Record{TotalTime: 30_000, IsRunning: true, SessionStartTime: i64(ms(t0))},
			now:  t0.Add(-time.Minute),
			want: 30,
		},
		{
			name: "running without anchors shows baseline",
			rec:  Record{TotalTime: 3_000, IsRunning: true},
			now:  t0,
			want: 3,
		},
		{
			name: "zero record",
			rec:  Record{},
			now:  t0,
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Elapsed(tc.rec, tc.now); got != tc.want {
				t.Fatalf("Elapsed = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{-4, "0:00"},
		{0, "0:00"},
		{9, "0:09"},
		{59, "0:59"},
		{61, "1:01"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3661, "1:01:01"},
		{36_000, "10:00:00"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.in); got != tc.want {
			t.Fatalf("FormatElapsed(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
