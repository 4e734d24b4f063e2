package archive

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/five82/taskclock/internal/timer"
)

// ErrNoDSN is returned when the archive is requested without archive_dsn.
var ErrNoDSN = errors.New("archive: archive_dsn is not configured")

// maxPending bounds the sessions held while the sink is failing.
const maxPending = 1000

// Sink persists closed timer sessions. Recording the same session twice
// must be harmless.
type Sink interface {
	Record(ctx context.Context, sessions []timer.Session) error
}

// Recorder buffers sessions closed by the timer store and hands them to a
// Sink from a background goroutine, so store mutations never wait on I/O.
type Recorder struct {
	sink Sink
	log  *slog.Logger

	mu      sync.Mutex
	pending []timer.Session

	notify   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	flushMu  sync.Mutex
}

// NewRecorder returns a Recorder writing to sink. A nil logger uses slog.Default.
func NewRecorder(sink Sink, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		sink:   sink,
		log:    log,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// Attach subscribes the recorder to sessions closed by store.
func (r *Recorder) Attach(store *timer.Store) {
	store.OnSessionClosed(r.Add)
}

// Add queues a session. Empty sessions are ignored.
func (r *Recorder) Add(s timer.Session) {
	if s.TaskID == "" || s.Duration() <= 0 {
		return
	}
	r.mu.Lock()
	r.pending = append(r.pending, s)
	if over := len(r.pending) - maxPending; over > 0 {
		r.pending = r.pending[over:]
		r.log.Warn("archive backlog full, dropping oldest sessions", slog.Int("dropped", over))
	}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Pending reports how many sessions await a successful flush.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Start launches the background flush loop. It returns immediately.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-r.notify:
				if err := r.Flush(ctx); err != nil {
					r.log.Warn("archive flush failed", slog.String("error", err.Error()), slog.Int("pending", r.Pending()))
				}
			}
		}
	}()
}

// Flush sends every queued session to the sink. On failure the sessions are
// kept for the next attempt.
func (r *Recorder) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := r.sink.Record(ctx, batch); err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		if over := len(r.pending) - maxPending; over > 0 {
			r.pending = r.pending[over:]
		}
		r.mu.Unlock()
		return err
	}
	r.log.Debug("archived timer sessions", slog.Int("count", len(batch)))
	return nil
}

// Close stops the background loop and flushes what is left.
func (r *Recorder) Close(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
	return r.Flush(ctx)
}
