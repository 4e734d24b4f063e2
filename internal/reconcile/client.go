package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/timer"
)

// ErrUnknownTask is returned by Resume for a task the store has never timed.
var ErrUnknownTask = errors.New("task has no timer record")

// followUpTimeout bounds the background status polls issued after a
// successful start or resume and after a failed action.
const followUpTimeout = 10 * time.Second

// Client drives the backend timer endpoints and folds their snapshots into
// the store. Actions on the same task run one at a time; actions on
// different tasks may overlap.
type Client struct {
	api   backend.TimerAPI
	store *timer.Store
	log   *slog.Logger

	locks    sync.Map // task id -> *sync.Mutex
	inflight atomic.Int32
	wg       sync.WaitGroup

	bg     context.Context
	cancel context.CancelFunc
}

// New returns a Client. A nil logger uses slog.Default.
func New(api backend.TimerAPI, store *timer.Store, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Client{api: api, store: store, log: log, bg: bg, cancel: cancel}
}

// Start opens a session for taskID locally, then on the server.
func (c *Client) Start(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.New("task id required")
	}
	return c.withTask(taskID, func() error {
		prev := c.store.ActiveTaskID()
		c.store.Start(taskID)
		task, err := c.api.StartTimer(ctx, taskID)
		if err != nil {
			return c.fail(taskID, "start", err)
		}
		c.store.ApplyStarted(task.ServerTimer())
		c.followUp(prev, taskID)
		return nil
	})
}

// Resume reopens a session for a task the store already knows.
func (c *Client) Resume(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.New("task id required")
	}
	return c.withTask(taskID, func() error {
		prev := c.store.ActiveTaskID()
		if !c.store.Resume(taskID) {
			return fmt.Errorf("resume %s: %w", taskID, ErrUnknownTask)
		}
		task, err := c.api.ResumeTimer(ctx, taskID)
		if err != nil {
			return c.fail(taskID, "resume", err)
		}
		c.store.ApplyStarted(task.ServerTimer())
		c.followUp(prev, taskID)
		return nil
	})
}

// Pause closes the session of taskID, or of the active task when taskID is
// empty. Pausing when nothing runs is a no-op.
func (c *Client) Pause(ctx context.Context, taskID string) error {
	if taskID == "" {
		taskID = c.store.ActiveTaskID()
		if taskID == "" {
			return nil
		}
	}
	return c.withTask(taskID, func() error {
		c.store.Pause(taskID)
		task, err := c.api.PauseTimer(ctx, taskID)
		if err != nil {
			return c.fail(taskID, "pause", err)
		}
		c.store.ApplyPaused(task.ServerTimer())
		return nil
	})
}

// Stop forces taskID (or the active task) stopped locally, then pauses it on
// the server when it was running there too.
func (c *Client) Stop(ctx context.Context, taskID string) error {
	if taskID == "" {
		taskID = c.store.ActiveTaskID()
		if taskID == "" {
			return nil
		}
	}
	return c.withTask(taskID, func() error {
		wasRunning := c.store.IsRunning(taskID)
		c.store.Stop(taskID)
		if !wasRunning {
			return nil
		}
		task, err := c.api.PauseTimer(ctx, taskID)
		if err != nil {
			return c.fail(taskID, "stop", err)
		}
		c.store.ApplyPaused(task.ServerTimer())
		return nil
	})
}

// Status polls the server's view of taskID and folds it without preempting.
func (c *Client) Status(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.New("task id required")
	}
	return c.withTask(taskID, func() error {
		status, err := c.api.TimerStatus(ctx, taskID)
		if err != nil {
			c.store.SetError(backend.Message(err))
			return fmt.Errorf("status %s: %w", taskID, err)
		}
		c.store.ApplyStatus(status.ServerTimer())
		return nil
	})
}

// Toggle pauses a running task, resumes a task with tracked time and starts
// one that was never timed.
func (c *Client) Toggle(ctx context.Context, taskID string) error {
	switch {
	case c.store.IsRunning(taskID):
		return c.Pause(ctx, taskID)
	case c.store.TotalTime(taskID) > 0:
		return c.Resume(ctx, taskID)
	default:
		return c.Start(ctx, taskID)
	}
}

// Wait blocks until every background status poll has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close waits for background status polls to finish, then releases the
// client. Each poll is bounded by followUpTimeout.
func (c *Client) Close() {
	c.wg.Wait()
	c.cancel()
}

// Abort cancels background status polls and waits for them to return.
func (c *Client) Abort() {
	c.cancel()
	c.wg.Wait()
}

func (c *Client) withTask(taskID string, fn func() error) error {
	mu := c.lockFor(taskID)
	mu.Lock()
	defer mu.Unlock()

	if c.inflight.Add(1) == 1 {
		c.store.SetLoading(true)
	}
	c.store.SetError("")
	defer func() {
		if c.inflight.Add(-1) == 0 {
			c.store.SetLoading(false)
		}
	}()
	return fn()
}

func (c *Client) lockFor(taskID string) *sync.Mutex {
	if mu, ok := c.locks.Load(taskID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := c.locks.LoadOrStore(taskID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// fail re-polls the server for taskID so local state converges on the
// server's view, then reports the original error.
func (c *Client) fail(taskID, action string, err error) error {
	msg := backend.Message(err)
	c.log.Warn("timer action failed",
		slog.String("action", action),
		slog.String("task", taskID),
		slog.String("error", err.Error()),
	)
	if !errors.Is(err, backend.ErrNoToken) {
		ctx, cancel := context.WithTimeout(c.bg, followUpTimeout)
		status, perr := c.api.TimerStatus(ctx, taskID)
		cancel()
		if perr == nil {
			c.store.ApplyStatus(status.ServerTimer())
		} else {
			c.log.Debug("status re-poll failed", slog.String("task", taskID), slog.String("error", perr.Error()))
		}
	}
	c.store.SetError(msg)
	return fmt.Errorf("%s %s: %w", action, taskID, err)
}

// followUp polls the previously active task in the background so it
// reconciles with the server's view of its closed session.
func (c *Client) followUp(prev, current string) {
	if prev == "" || prev == current {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.bg, followUpTimeout)
		defer cancel()
		if err := c.Status(ctx, prev); err != nil {
			c.log.Debug("follow-up status poll failed", slog.String("task", prev), slog.String("error", err.Error()))
		}
	}()
}
