// Package host grants background windows in-process with timers, standing in
// for an operating system's background task service.
package host

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/scheduler"
)

// DefaultExpiry is the hard limit of one granted window.
const DefaultExpiry = 30 * time.Second

// ErrNoHandler is returned when a window is requested for an unregistered identifier.
var ErrNoHandler = errors.New("host: no handler registered")

// Handler receives granted windows.
type Handler func(id string, w scheduler.Window)

// TimerHost implements scheduler.Host with one timer per identifier.
type TimerHost struct {
	expiry time.Duration
	log    *logger.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	timers   map[string]*pending
	requests int
	granted  int
	killed   int
}

var _ scheduler.Host = (*TimerHost)(nil)

// New returns a host whose windows expire after expiry (DefaultExpiry when zero).
func New(expiry time.Duration, log *logger.Logger) *TimerHost {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &TimerHost{
		expiry:   expiry,
		log:      logger.OrNop(log),
		handlers: make(map[string]Handler),
		timers:   make(map[string]*pending),
	}
}

// Register routes windows for id to h.
func (h *TimerHost) Register(id string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[id] = fn
}

// RequestWindow arms the timer for id, replacing any pending one.
func (h *TimerHost) RequestWindow(id string, earliestBegin time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.handlers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, id)
	}
	if p, ok := h.timers[id]; ok {
		p.timer.Stop()
	}
	h.requests++

	p := &pending{}
	p.timer = time.AfterFunc(max(time.Until(earliestBegin), 0), func() { h.fire(id, p) })
	h.timers[id] = p
	return nil
}

// CancelWindow drops the pending request for id.
func (h *TimerHost) CancelWindow(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.timers[id]; ok {
		p.timer.Stop()
		delete(h.timers, id)
	}
}

// CancelAll drops every pending request.
func (h *TimerHost) CancelAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, p := range h.timers {
		p.timer.Stop()
		delete(h.timers, id)
	}
}

// Pending returns the number of armed requests.
func (h *TimerHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// Stats returns request, grant and kill counts.
func (h *TimerHost) Stats() (requests, granted, killed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests, h.granted, h.killed
}

func (h *TimerHost) fire(id string, p *pending) {
	h.mu.Lock()
	if h.timers[id] != p {
		// superseded or cancelled after the timer fired
		h.mu.Unlock()
		return
	}
	delete(h.timers, id)
	fn := h.handlers[id]
	h.granted++
	h.mu.Unlock()

	w := &window{host: h, id: id}
	w.deadline = time.AfterFunc(h.expiry, w.expire)
	h.log.Debugw("host_window_granted", "id", id, "expiry", h.expiry.String())
	fn(id, w)
}

// pending is one armed request; its identity tells a live timer from a superseded one.
type pending struct {
	timer *time.Timer
}

type window struct {
	host     *TimerHost
	id       string
	deadline *time.Timer

	mu       sync.Mutex
	onExpire func()
	done     bool
}

func (w *window) SetExpirationHandler(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onExpire = fn
}

func (w *window) Complete(success bool) {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return
	}
	w.done = true
	w.mu.Unlock()
	w.deadline.Stop()
	w.host.log.Debugw("host_window_completed", "id", w.id, "success", success)
}

func (w *window) expire() {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return
	}
	fn := w.onExpire
	w.mu.Unlock()

	if fn != nil {
		fn()
	}

	w.mu.Lock()
	killed := !w.done
	w.done = true
	w.mu.Unlock()
	if killed {
		w.host.mu.Lock()
		w.host.killed++
		w.host.mu.Unlock()
		w.host.log.Warnw("host_window_killed", "id", w.id)
	}
}
