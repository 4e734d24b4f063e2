package persist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/five82/taskclock/internal/clock"
	"github.com/five82/taskclock/internal/timer"
)

// DefaultDebounce is how long the gateway waits after the last mutation in a
// burst before writing.
const DefaultDebounce = 500 * time.Millisecond

// Gateway is the only reader and writer of the timer slot.
type Gateway struct {
	slot  Slot
	clock clock.Clock
	delay time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	pending clock.Timer
	armed   uint64 // bumped on every Schedule; a callback from an older arm is stale
	source  func() timer.State
}

// NewGateway returns a Gateway over slot. A nil logger uses slog.Default.
func NewGateway(slot Slot, c clock.Clock, log *slog.Logger) *Gateway {
	if c == nil {
		c = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{slot: slot, clock: c, delay: DefaultDebounce, log: log}
}

// Load reads and normalises the slot. A missing slot yields an empty state;
// an unreadable or corrupt slot is logged and also yields an empty state.
func (g *Gateway) Load() timer.State {
	empty := timer.State{Tasks: map[string]timer.Record{}}
	data, err := g.slot.Read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.log.Warn("timer state unreadable, starting empty", slog.String("error", err.Error()))
		}
		return empty
	}
	st, err := decode(data, g.clock.Now())
	if err != nil {
		g.log.Warn("timer state corrupt, starting empty", slog.String("error", err.Error()))
		return empty
	}
	return st
}

// Attach makes the gateway persist store after every mutation, debounced.
func (g *Gateway) Attach(store *timer.Store) {
	g.mu.Lock()
	g.source = store.State
	g.mu.Unlock()
	store.OnChange(g.Schedule)
}

// Schedule (re)arms the debounced save.
func (g *Gateway) Schedule() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		g.pending.Stop()
	}
	g.armed++
	armed := g.armed
	g.pending = g.clock.AfterFunc(g.delay, func() { g.fire(armed) })
}

// Flush writes immediately when a save is pending.
func (g *Gateway) Flush() error {
	g.mu.Lock()
	pending, source := g.pending, g.source
	g.pending = nil
	g.mu.Unlock()

	if pending == nil || source == nil {
		return nil
	}
	pending.Stop()
	return g.Save(source())
}

// Save writes st to the slot now.
func (g *Gateway) Save(st timer.State) error {
	data, err := encode(st)
	if err != nil {
		return fmt.Errorf("encode timer state: %w", err)
	}
	if err := g.slot.Write(data); err != nil {
		return fmt.Errorf("save timer state: %w", err)
	}
	return nil
}

// Clear cancels any pending save and removes the slot.
func (g *Gateway) Clear() error {
	g.mu.Lock()
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.mu.Unlock()
	return g.slot.Remove()
}

// fire runs on the clock's goroutine. A Schedule that raced it has already
// armed a newer save, which stays pending for Flush.
func (g *Gateway) fire(armed uint64) {
	g.mu.Lock()
	if armed != g.armed || g.pending == nil {
		g.mu.Unlock()
		return
	}
	g.pending = nil
	source := g.source
	g.mu.Unlock()

	if source == nil {
		return
	}
	if err := g.Save(source()); err != nil {
		g.log.Error("persist timer state failed", slog.String("error", err.Error()))
	}
}
