package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/clock"
	"github.com/five82/taskclock/internal/timer"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type call struct {
	op     string
	taskID string
}

// fakeAPI answers timer calls from per-operation hooks and records every call.
type fakeAPI struct {
	mu    sync.Mutex
	calls []call

	start  func(taskID string) (*backend.Task, error)
	pause  func(taskID string) (*backend.Task, error)
	resume func(taskID string) (*backend.Task, error)
	status func(taskID string) (*backend.TimerStatus, error)
}

func (f *fakeAPI) record(op, taskID string) {
	f.mu.Lock()
	f.calls = append(f.calls, call{op, taskID})
	f.mu.Unlock()
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *fakeAPI) StartTimer(_ context.Context, taskID string) (*backend.Task, error) {
	f.record("start", taskID)
	return f.start(taskID)
}

func (f *fakeAPI) PauseTimer(_ context.Context, taskID string) (*backend.Task, error) {
	f.record("pause", taskID)
	return f.pause(taskID)
}

func (f *fakeAPI) ResumeTimer(_ context.Context, taskID string) (*backend.Task, error) {
	f.record("resume", taskID)
	return f.resume(taskID)
}

func (f *fakeAPI) TimerStatus(_ context.Context, taskID string) (*backend.TimerStatus, error) {
	f.record("status", taskID)
	return f.status(taskID)
}

func millis(v int64) *backend.Millis {
	m := backend.Millis(v)
	return &m
}

func runningTask(id string, start time.Time, tracked int64) *backend.Task {
	return &backend.Task{
		ID:               id,
		TotalTrackedTime: millis(tracked),
		CurrentTotalTime: millis(tracked),
		TimerState:       &backend.TimerState{IsRunning: true, CurrentSessionStart: start.Format(time.RFC3339)},
	}
}

func stoppedTask(id string, tracked int64) *backend.Task {
	return &backend.Task{ID: id, TotalTrackedTime: millis(tracked), TimerState: &backend.TimerState{}}
}

func stoppedStatus(id string, tracked int64) *backend.TimerStatus {
	return &backend.TimerStatus{TaskID: id, TotalTrackedTime: millis(tracked), TotalTime: millis(tracked)}
}

func newFixture(t *testing.T) (*Client, *fakeAPI, *timer.Store, *clock.Fake) {
	t.Helper()
	c := clock.NewFake(t0)
	store := timer.NewStore(c, timer.State{})
	api := &fakeAPI{
		start:  func(id string) (*backend.Task, error) { return runningTask(id, c.Now(), 0), nil },
		resume: func(id string) (*backend.Task, error) { return runningTask(id, c.Now(), 0), nil },
		pause:  func(id string) (*backend.Task, error) { return stoppedTask(id, 0), nil },
		status: func(id string) (*backend.TimerStatus, error) { return stoppedStatus(id, 0), nil },
	}
	client := New(api, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(client.Close)
	return client, api, store, c
}

func TestClient_StartFoldsServerSnapshot(t *testing.T) {
	client, api, store, c := newFixture(t)
	api.start = func(id string) (*backend.Task, error) {
		return runningTask(id, c.Now().Add(-2*time.Second), 7000), nil
	}

	if err := client.Start(context.Background(), "T1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec, ok := store.Record("T1")
	if !ok || !rec.IsRunning || store.ActiveTaskID() != "T1" {
		t.Fatalf("T1 = %+v active=%q, want running and active", rec, store.ActiveTaskID())
	}
	if rec.TotalTime != 7000 || *rec.SessionStartTime != c.Now().Add(-2*time.Second).UnixMilli() {
		t.Fatalf("T1 = %+v, want server totals and start", rec)
	}
	if *rec.LastServerSync != c.Now().UnixMilli() {
		t.Fatalf("LastServerSync = %d, want now", *rec.LastServerSync)
	}
	if snap := store.Snapshot(); snap.Loading || snap.Err != "" {
		t.Fatalf("snapshot loading=%v err=%q, want idle", snap.Loading, snap.Err)
	}
}

func TestClient_StartPollsPreviousTask(t *testing.T) {
	client, api, store, c := newFixture(t)
	api.status = func(id string) (*backend.TimerStatus, error) { return stoppedStatus(id, 12_000), nil }

	if err := client.Start(context.Background(), "A"); err != nil {
		t.Fatalf("Start(A) error = %v", err)
	}
	c.Advance(10 * time.Second)
	if err := client.Start(context.Background(), "B"); err != nil {
		t.Fatalf("Start(B) error = %v", err)
	}
	client.Wait()

	if api.count("status") != 1 {
		t.Fatalf("status polls = %d, want 1", api.count("status"))
	}
	if store.ActiveTaskID() != "B" || store.IsRunning("A") {
		t.Fatalf("active = %q, A running = %v", store.ActiveTaskID(), store.IsRunning("A"))
	}
	if store.TotalTime("A") != 12_000 {
		t.Fatalf("A TotalTime = %d, want server 12000", store.TotalTime("A"))
	}
}

func TestClient_CloseWaitsForPreviousTaskPoll(t *testing.T) {
	var served atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tasks/B/timer/start":
			fmt.Fprintf(w, `{"task":{"_id":"B","totalTrackedTime":0,"timerState":{"isRunning":true,"currentSessionStart":%q}}}`,
				t0.Format(time.RFC3339))
		case "/api/tasks/A/timer/status":
			time.Sleep(30 * time.Millisecond)
			served.Add(1)
			fmt.Fprint(w, `{"timer":{"isRunning":false,"totalTrackedTime":12000,"totalTime":12000}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api, err := backend.NewClient(srv.URL+"/api", "secret")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c := clock.NewFake(t0)
	store := timer.NewStore(c, timer.State{})
	client := New(api, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	store.Start("A")
	c.Advance(5 * time.Second)
	if err := client.Start(context.Background(), "B"); err != nil {
		t.Fatalf("Start(B) error = %v", err)
	}
	client.Close()

	if served.Load() != 1 {
		t.Fatalf("status polls served = %d, want 1", served.Load())
	}
	rec, _ := store.Record("A")
	if rec.TotalTime != 12_000 || rec.LastServerSync == nil {
		t.Fatalf("A = %+v, want folded from the server status", rec)
	}
}

func TestClient_AbortCancelsBackgroundPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tasks/B/timer/start":
			fmt.Fprintf(w, `{"task":{"_id":"B","totalTrackedTime":0,"timerState":{"isRunning":true,"currentSessionStart":%q}}}`,
				t0.Format(time.RFC3339))
		case "/api/tasks/A/timer/status":
			<-r.Context().Done()
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api, err := backend.NewClient(srv.URL+"/api", "secret")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	store := timer.NewStore(clock.NewFake(t0), timer.State{})
	client := New(api, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	store.Start("A")
	if err := client.Start(context.Background(), "B"); err != nil {
		t.Fatalf("Start(B) error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		client.Abort()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Abort() did not cancel the pending status poll")
	}
	if rec, _ := store.Record("A"); rec.LastServerSync != nil {
		t.Fatalf("A = %+v, want no server fold after Abort", rec)
	}
}

func TestClient_FailureRepollsAndSetsError(t *testing.T) {
	client, api, store, _ := newFixture(t)
	api.start = func(string) (*backend.Task, error) {
		return nil, &backend.APIError{Path: "/tasks/T1/timer/start", Status: http.StatusConflict, Message: "Timer already running"}
	}
	api.status = func(id string) (*backend.TimerStatus, error) { return stoppedStatus(id, 3000), nil }

	err := client.Start(context.Background(), "T1")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("Start() error = %v, want the original APIError", err)
	}
	if api.count("status") != 1 {
		t.Fatalf("status polls = %d, want 1", api.count("status"))
	}
	if store.IsRunning("T1") || store.ActiveTaskID() != "" {
		t.Fatal("local optimistic start survived a server snapshot saying stopped")
	}
	if store.TotalTime("T1") != 3000 {
		t.Fatalf("T1 TotalTime = %d, want 3000", store.TotalTime("T1"))
	}
	if got := store.Snapshot().Err; got != "Timer already running" {
		t.Fatalf("store error = %q", got)
	}
}

func TestClient_FailureKeepsLocalStateWhenRepollFails(t *testing.T) {
	client, api, store, _ := newFixture(t)
	api.start = func(string) (*backend.Task, error) {
		return nil, &backend.APIError{Path: "/tasks/T1/timer/start", Message: "Failed to start timer", Err: errors.New("connection refused")}
	}
	api.status = func(string) (*backend.TimerStatus, error) { return nil, errors.New("connection refused") }

	if err := client.Start(context.Background(), "T1"); err == nil {
		t.Fatal("Start() error = nil")
	}
	if !store.IsRunning("T1") {
		t.Fatal("local state was rolled back")
	}
	if store.Snapshot().Err != "Failed to start timer" {
		t.Fatalf("store error = %q", store.Snapshot().Err)
	}
}

func TestClient_NoTokenSkipsRepoll(t *testing.T) {
	client, api, _, _ := newFixture(t)
	api.pause = func(string) (*backend.Task, error) { return nil, backend.ErrNoToken }

	if err := client.Start(context.Background(), "T1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := client.Pause(context.Background(), ""); !errors.Is(err, backend.ErrNoToken) {
		t.Fatalf("Pause() error = %v, want ErrNoToken", err)
	}
	if api.count("status") != 0 {
		t.Fatalf("status polls = %d, want 0", api.count("status"))
	}
}

func TestClient_ResumeUnknownTask(t *testing.T) {
	client, api, _, _ := newFixture(t)
	err := client.Resume(context.Background(), "ghost")
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("Resume() error = %v, want ErrUnknownTask", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("api calls = %v, want none", api.calls)
	}
}

func TestClient_PauseAndStopWithoutActiveTask(t *testing.T) {
	client, api, _, _ := newFixture(t)
	if err := client.Pause(context.Background(), ""); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := client.Stop(context.Background(), ""); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("api calls = %v, want none", api.calls)
	}
}

func TestClient_StopPausesRunningTaskOnServer(t *testing.T) {
	client, api, store, c := newFixture(t)
	api.pause = func(id string) (*backend.Task, error) { return stoppedTask(id, 5000), nil }

	if err := client.Start(context.Background(), "T1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Advance(5 * time.Second)
	if err := client.Stop(context.Background(), ""); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if store.IsRunning("T1") || store.TotalTime("T1") != 5000 {
		t.Fatalf("T1 running=%v total=%d, want stopped 5000", store.IsRunning("T1"), store.TotalTime("T1"))
	}

	if err := client.Stop(context.Background(), "T1"); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if api.count("pause") != 1 {
		t.Fatalf("pause calls = %d, want 1", api.count("pause"))
	}
}

func TestClient_ToggleFollowsCardRule(t *testing.T) {
	client, api, store, c := newFixture(t)
	api.pause = func(id string) (*backend.Task, error) { return stoppedTask(id, 4000), nil }
	ctx := context.Background()

	if err := client.Toggle(ctx, "T1"); err != nil {
		t.Fatalf("Toggle #1 error = %v", err)
	}
	c.Advance(4 * time.Second)
	if err := client.Toggle(ctx, "T1"); err != nil {
		t.Fatalf("Toggle #2 error = %v", err)
	}
	if err := client.Toggle(ctx, "T1"); err != nil {
		t.Fatalf("Toggle #3 error = %v", err)
	}

	want := []call{{"start", "T1"}, {"pause", "T1"}, {"resume", "T1"}}
	if len(api.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", api.calls, want)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", api.calls, want)
		}
	}
	if !store.IsRunning("T1") {
		t.Fatal("T1 not running after resume")
	}
}

func TestClient_SerializesActionsPerTask(t *testing.T) {
	client, api, store, _ := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	start := api.start
	api.start = func(id string) (*backend.Task, error) {
		close(entered)
		<-release
		return start(id)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = client.Start(context.Background(), "T1")
	}()
	<-entered
	if !store.Snapshot().Loading {
		t.Fatal("Loading = false while a request is in flight")
	}
	go func() {
		defer wg.Done()
		_ = client.Pause(context.Background(), "T1")
	}()

	time.Sleep(50 * time.Millisecond)
	if n := api.count("pause"); n != 0 {
		t.Fatalf("pause reached the server while start was in flight (%d calls)", n)
	}
	close(release)
	wg.Wait()

	if api.count("pause") != 1 {
		t.Fatalf("pause calls = %d, want 1", api.count("pause"))
	}
	if store.IsRunning("T1") {
		t.Fatal("T1 running after pause completed")
	}
	if store.Snapshot().Loading {
		t.Fatal("Loading stuck after requests finished")
	}
}

func TestClient_StatusNeverPreempts(t *testing.T) {
	client, api, store, c := newFixture(t)
	api.status = func(id string) (*backend.TimerStatus, error) {
		return &backend.TimerStatus{TaskID: id, IsRunning: true, CurrentSessionStart: c.Now().Format(time.RFC3339), TotalTrackedTime: millis(1000)}, nil
	}

	if err := client.Start(context.Background(), "A"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := client.Status(context.Background(), "B"); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if store.ActiveTaskID() != "A" || store.IsRunning("B") {
		t.Fatalf("active = %q B running = %v, want A kept", store.ActiveTaskID(), store.IsRunning("B"))
	}
}
