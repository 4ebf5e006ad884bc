package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"airspace_fan/internal/house"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/scheduler"
	"airspace_fan/internal/threshold"
)

// Phase is the application's visibility to the user.
type Phase string

const (
	PhaseForeground Phase = "foreground"
	PhaseBackground Phase = "background"
)

// DefaultTick is the foreground refresh cadence.
const DefaultTick = 30 * time.Second

// rescanEvery is how many foreground ticks pass between discovery scans.
const rescanEvery = 10

var ErrInvalidPhase = errors.New("invalid phase: want foreground or background")

// ParsePhase accepts the phase names used on the API.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseForeground, PhaseBackground:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}

// LifecycleStatus reports the phase and the background scheduler's bookkeeping.
type LifecycleStatus struct {
	Phase            Phase                     `json:"phase"`
	Scanning         bool                      `json:"scanning"`
	CheckRunning     bool                      `json:"check_running"`
	PendingWindows   []models.BackgroundWindow `json:"pending_windows"`
	ChecksCompleted  int64                     `json:"checks_completed"`
	ChecksIncomplete int64                     `json:"checks_incomplete"`
}

// LifecycleService runs the foreground loop while the app is in view and hands
// periodic checks to the background scheduler otherwise.
type LifecycleService struct {
	registry *house.Registry
	monitor  *threshold.Monitor
	sched    *scheduler.Scheduler
	tick     time.Duration
	log      *logger.Logger

	mu    sync.Mutex
	phase Phase
	base  context.Context
	stop  context.CancelFunc
	done  chan struct{}
}

func NewLifecycleService(r *house.Registry, m *threshold.Monitor, s *scheduler.Scheduler, tick time.Duration, log *logger.Logger) *LifecycleService {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &LifecycleService{
		registry: r,
		monitor:  m,
		sched:    s,
		tick:     tick,
		log:      logger.OrNop(log),
		phase:    PhaseBackground,
		base:     context.Background(),
	}
}

// Run enters the foreground and blocks until ctx is done. On return the loop is
// stopped and no background window stays pending.
func (s *LifecycleService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	if err := s.Transition(ctx, PhaseForeground); err != nil {
		return err
	}
	<-ctx.Done()

	s.mu.Lock()
	s.stopLoopLocked()
	s.mu.Unlock()
	s.sched.EnterForeground()
	return nil
}

// Transition switches phase. Repeating the current phase is a no-op.
func (s *LifecycleService) Transition(_ context.Context, phase Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch phase {
	case PhaseForeground:
		s.sched.EnterForeground()
		if s.stop == nil {
			loopCtx, cancel := context.WithCancel(s.base)
			s.stop, s.done = cancel, make(chan struct{})
			go s.loop(loopCtx, s.done)
		}
	case PhaseBackground:
		s.stopLoopLocked()
		if !s.sched.Background() {
			if err := s.sched.EnterBackground(); err != nil {
				return fmt.Errorf("enter background: %w", err)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}
	if s.phase != phase {
		s.log.Infow("lifecycle_transition", "from", s.phase, "to", phase)
	}
	s.phase = phase
	return nil
}

func (s *LifecycleService) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *LifecycleService) LifecycleStatus() LifecycleStatus {
	completed, incomplete := s.sched.Stats()
	return LifecycleStatus{
		Phase:            s.Phase(),
		Scanning:         s.registry.Scanning(),
		CheckRunning:     s.sched.Running(),
		PendingWindows:   s.sched.Pending(),
		ChecksCompleted:  completed,
		ChecksIncomplete: incomplete,
	}
}

func (s *LifecycleService) stopLoopLocked() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
	s.stop, s.done = nil, nil
}

// loop ticks at s.tick until ctx is canceled.
func (s *LifecycleService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.pass(ctx, true)

	t := time.NewTicker(s.tick)
	defer t.Stop()
	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n++
			s.pass(ctx, n%rescanEvery == 0)
		}
	}
}

// pass brings the fans up to date and re-evaluates the alert.
func (s *LifecycleService) pass(ctx context.Context, rescan bool) {
	if rescan || len(s.registry.Controllers()) == 0 {
		if _, err := s.registry.ScanWithin(ctx); err != nil && ctx.Err() == nil {
			s.log.Warnw("lifecycle_scan_failed", "err", err)
		}
	} else if err := s.registry.RefreshAll(ctx); err != nil {
		s.log.Warnw("lifecycle_refresh_faults", "err", err)
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := s.monitor.Check(ctx); err != nil && ctx.Err() == nil {
		s.log.Warnw("lifecycle_check_failed", "err", err)
	}
}

// NewBackgroundJob is the work done in one background window: discover fans if
// none are known, refresh them, then check the outdoor temperature.
func NewBackgroundJob(r *house.Registry, m *threshold.Monitor) scheduler.Job {
	return scheduler.JobFuncs{
		RunFunc: func(ctx context.Context) error {
			if len(r.Controllers()) == 0 {
				if _, err := r.ScanWithin(ctx); err != nil && ctx.Err() != nil {
					return ctx.Err()
				}
			} else {
				_ = r.RefreshAll(ctx)
			}
			_, err := m.Check(ctx)
			return err
		},
		NextFunc: m.NextCheck,
	}
}
