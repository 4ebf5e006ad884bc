// Package scheduler runs periodic work inside host-granted background windows.
//
// The host owns timing: the scheduler only asks for a window no earlier than
// the job's next run time and reacts when the host grants one. Each grant is
// completed exactly once, as incomplete when the host's expiration fires or
// the local budget runs out first.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
)

const (
	// DefaultBudget stays below the usual 30 second host limit.
	DefaultBudget = 25 * time.Second
	// DefaultWindowID identifies the temperature check window.
	DefaultWindowID = "temperature-out-of-range"
)

// Window is one granted execution opportunity.
type Window interface {
	SetExpirationHandler(fn func())
	Complete(success bool)
}

// Host grants background windows.
type Host interface {
	RequestWindow(id string, earliestBegin time.Time) error
	CancelWindow(id string)
	CancelAll()
}

// Job is the work run in each window.
type Job interface {
	Run(ctx context.Context) error
	NextRun(now time.Time) time.Time
}

// JobFuncs adapts two functions to Job.
type JobFuncs struct {
	RunFunc  func(ctx context.Context) error
	NextFunc func(now time.Time) time.Time
}

func (j JobFuncs) Run(ctx context.Context) error     { return j.RunFunc(ctx) }
func (j JobFuncs) NextRun(now time.Time) time.Time { return j.NextFunc(now) }

// Scheduler keeps at most one pending window per identifier and at most one job in flight.
type Scheduler struct {
	host   Host
	job    Job
	id     string
	budget time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu         sync.Mutex
	background bool
	running    bool
	pending    map[string]models.BackgroundWindow

	completed  atomic.Int64
	incomplete atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBudget overrides DefaultBudget.
func WithBudget(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.budget = d
		}
	}
}

// WithWindowID overrides DefaultWindowID.
func WithWindowID(id string) Option {
	return func(s *Scheduler) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = logger.OrNop(l) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New returns a scheduler in the foreground phase.
func New(host Host, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:    host,
		job:     job,
		id:      DefaultWindowID,
		budget:  DefaultBudget,
		log:     logger.Nop(),
		now:     time.Now,
		pending: make(map[string]models.BackgroundWindow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the window identifier.
func (s *Scheduler) ID() string { return s.id }

// EnterBackground submits the first window request.
func (s *Scheduler) EnterBackground() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = true
	return s.submitLocked()
}

// EnterForeground cancels every pending request. A job already running finishes
// but does not request another window.
func (s *Scheduler) EnterForeground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = false
	s.host.CancelAll()
	clear(s.pending)
	s.log.Debugw("scheduler_foreground")
}

// Background reports whether the scheduler is in the background phase.
func (s *Scheduler) Background() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// Running reports whether a job is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending returns the outstanding window requests.
func (s *Scheduler) Pending() []models.BackgroundWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BackgroundWindow, 0, len(s.pending))
	for _, w := range s.pending {
		out = append(out, w)
	}
	return out
}

// Stats returns how many windows completed successfully and incompletely.
func (s *Scheduler) Stats() (completed, incomplete int64) {
	return s.completed.Load(), s.incomplete.Load()
}

// submitLocked replaces any pending request for the identifier with a new one.
func (s *Scheduler) submitLocked() error {
	now := s.now()
	earliest := s.job.NextRun(now)

	s.host.CancelWindow(s.id)
	delete(s.pending, s.id)

	if err := s.host.RequestWindow(s.id, earliest); err != nil {
		s.log.Errorw("scheduler_request_failed", "id", s.id, "err", err)
		return err
	}
	s.pending[s.id] = models.BackgroundWindow{ID: s.id, EarliestBegin: earliest, SubmittedAt: now}
	s.log.Debugw("scheduler_window_requested", "id", s.id, "earliest", earliest)
	return nil
}

// OnWindowGranted is called by the host when a window opens. It returns at once;
// the job runs on its own goroutine and completes w when done.
func (s *Scheduler) OnWindowGranted(id string, w Window) {
	s.mu.Lock()
	delete(s.pending, id)
	if s.running {
		s.mu.Unlock()
		s.log.Warnw("scheduler_window_overlap", "id", id)
		s.incomplete.Add(1)
		w.Complete(false)
		return
	}
	s.running = true

	ctx, cancel := context.WithTimeout(context.Background(), s.budget)
	var (
		once    sync.Once
		expired atomic.Bool
	)
	finish := func(success bool) {
		once.Do(func() {
			if success {
				s.completed.Add(1)
			} else {
				s.incomplete.Add(1)
			}
			w.Complete(success)
		})
	}
	w.SetExpirationHandler(func() {
		expired.Store(true)
		cancel()
		s.log.Warnw("scheduler_window_expired", "id", id)
		finish(false)
	})
	s.mu.Unlock()

	go func() {
		defer cancel()
		started := s.now()
		err := s.job.Run(ctx)

		success := err == nil && !expired.Load()
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warnw("scheduler_budget_exceeded", "id", id, "budget", s.budget.String())
		} else if err != nil && !expired.Load() {
			s.log.Warnw("scheduler_job_failed", "id", id, "err", err)
		}
		finish(success)
		s.log.Debugw("scheduler_window_done", "id", id, "success", success, "elapsed", s.now().Sub(started).String())

		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		if s.background {
			_ = s.submitLocked()
		}
	}()
}
