package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/five82/taskclock/internal/archive"
	archivemysql "github.com/five82/taskclock/internal/archive/mysql"
	"github.com/five82/taskclock/internal/backend"
	"github.com/five82/taskclock/internal/clock"
	"github.com/five82/taskclock/internal/config"
	"github.com/five82/taskclock/internal/persist"
	"github.com/five82/taskclock/internal/prefs"
	"github.com/five82/taskclock/internal/reconcile"
	"github.com/five82/taskclock/internal/state"
	"github.com/five82/taskclock/internal/timer"
	"github.com/five82/taskclock/internal/ui"
)

// Options configure the taskclock application.
type Options struct {
	Config    config.Config
	PrefsPath string // empty uses default ~/.config/taskclock/prefs.toml
	Logger    *slog.Logger
	Clock     clock.Clock // nil uses the system clock
	Version   string
	// Offline skips the backend client entirely; timer commands then only
	// touch the persisted slot.
	Offline bool
}

// App is the composition root: one timer store, its persistence gateway,
// the backend client and everything the CLI and board share.
type App struct {
	Config    config.Config
	PrefsPath string
	Log       *slog.Logger

	Timers     *timer.Store
	Gateway    *persist.Gateway
	Client     *backend.Client
	Reconciler *reconcile.Client
	Board      *state.Store

	recorder *archive.Recorder
	sink     *archivemysql.Sink
	parent   context.Context
	cancel   context.CancelFunc
}

// New loads the persisted timer slot and wires the components. The caller
// must Close the App to flush pending writes.
func New(ctx context.Context, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	cfg := opts.Config

	gateway := persist.NewGateway(persist.FileSlot{Dir: cfg.StateDir}, clk, log)
	timers := timer.NewStore(clk, gateway.Load())
	gateway.Attach(timers)

	runCtx, cancel := context.WithCancel(ctx)
	a := &App{
		Config:    cfg,
		PrefsPath: opts.PrefsPath,
		Log:       log,
		Timers:    timers,
		Gateway:   gateway,
		Board:     &state.Store{},
		parent:    ctx,
		cancel:    cancel,
	}

	if !opts.Offline {
		client, err := backend.NewClient(cfg.APIURL, cfg.Token)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("init backend client: %w", err)
		}
		if opts.Version != "" {
			client.SetUserAgent("taskclock/" + opts.Version)
		}
		a.Client = client
		a.Reconciler = reconcile.New(client, timers, log)
	}

	if cfg.ArchiveDSN != "" {
		sink, err := archivemysql.Open(runCtx, cfg.ArchiveDSN, log)
		if err != nil {
			log.Warn("session archive disabled", slog.String("error", err.Error()))
		} else {
			a.sink = sink
			a.recorder = archive.NewRecorder(sink, log)
			a.recorder.Attach(timers)
			a.recorder.Start(runCtx)
		}
	}

	return a, nil
}

// Online reports whether the App has a backend client.
func (a *App) Online() bool {
	return a.Reconciler != nil
}

// RefreshTasks fetches the task list into the board store and, when any
// task carries timer fields, reconciles the timer store against it.
func (a *App) RefreshTasks(ctx context.Context) error {
	if a.Client == nil {
		return backend.ErrNoToken
	}
	tasks, err := a.Client.ListTasks(ctx, backend.TaskFilter{})
	a.Board.Update(tasks, err)
	if err != nil {
		return err
	}
	timers := backend.TaskTimers(tasks)
	if timer.AnyTimerData(timers) {
		a.Timers.SyncFromTaskList(timers)
	}
	return nil
}

// Logout drops every timer record, cancels any pending save and removes the
// persisted slot.
func (a *App) Logout() error {
	a.Timers.Clear()
	if err := a.Gateway.Clear(); err != nil {
		return fmt.Errorf("clear timer state: %w", err)
	}
	a.Log.Info("timer state cleared")
	return nil
}

// RunBoard starts the task-list poller and blocks in the board until the
// user quits or ctx is cancelled.
func (a *App) RunBoard(ctx context.Context) error {
	if a.Reconciler == nil {
		return errors.New("board requires a backend connection")
	}
	userPrefs := prefs.Load(a.PrefsPath)

	interval := a.Config.RefreshInterval()
	StartPoller(ctx, a, interval)

	return ui.Run(ui.Options{
		Context:    ctx,
		Timers:     a.Timers,
		Reconciler: a.Reconciler,
		Board:      a.Board,
		Refresh:    a.RefreshTasks,
		SyncEvery:  a.Config.SyncInterval(),
		ThemeName:  userPrefs.Theme,
		HideDone:   userPrefs.HideDone,
		PrefsPath:  a.PrefsPath,
		Log:        a.Log,
	})
}

// Close stops background work and flushes the timer slot and the archive.
func (a *App) Close() error {
	if a.Reconciler != nil {
		// Let follow-up status polls land unless the caller was interrupted.
		if a.parent.Err() != nil {
			a.Reconciler.Abort()
		} else {
			a.Reconciler.Close()
		}
	}
	var errs []error
	if err := a.Gateway.Flush(); err != nil {
		errs = append(errs, err)
	}
	if a.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.recorder.Close(ctx); err != nil {
			a.Log.Warn("archive flush on close failed", slog.String("error", err.Error()))
		}
		cancel()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.cancel()
	return errors.Join(errs...)
}

// EnsureStateDir creates the state directory so log files can be opened
// before the first save.
func EnsureStateDir(cfg config.Config) error {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}
