// Package threshold compares the outdoor temperature with the user's bounds.
package threshold

import (
	"context"
	"errors"
	"sync"
	"time"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
)

// DefaultMinInterval is the shortest gap between two scheduled checks.
const DefaultMinInterval = 15 * time.Minute

// ErrNoData means the temperature source had nothing to offer.
var ErrNoData = errors.New("threshold: no temperature data")

// Reading is one outdoor temperature sample.
type Reading struct {
	TempF float64
	At    time.Time
	// NextRefresh is when the source expects newer data; zero if unknown.
	NextRefresh time.Time
}

// Source provides the current outdoor temperature.
type Source interface {
	Current(ctx context.Context) (Reading, error)
}

// ConfigStore provides the user's bounds. The monitor never writes them.
type ConfigStore interface {
	Thresholds(ctx context.Context) (models.ThresholdConfig, error)
}

// Sink receives alert transitions.
type Sink interface {
	Notify(ctx context.Context, change models.AlertChange) error
}

// FanState tells the monitor whether any fan is running.
type FanState interface {
	AnyRunning() bool
}

// Evaluate maps a reading onto an alert state. A nil reading, disabled
// thresholds or inverted bounds give AlertUnknown.
func Evaluate(reading *float64, cfg models.ThresholdConfig) models.AlertState {
	if !cfg.Enabled || reading == nil || cfg.LowBound > cfg.HighBound {
		return models.AlertUnknown
	}
	switch t := *reading; {
	case t > cfg.HighBound:
		return models.AlertTooHot
	case t < cfg.LowBound:
		return models.AlertTooCold
	default:
		return models.AlertNormal
	}
}

// Outcome describes one check.
type Outcome struct {
	State   models.AlertState
	Changed bool
	NoData  bool
	Reading *Reading
}

// Monitor holds the current alert state and emits transitions to its sink.
type Monitor struct {
	source      Source
	store       ConfigStore
	sink        Sink
	fans        FanState
	log         *logger.Logger
	minInterval time.Duration
	now         func() time.Time

	// checkMu orders checks; mu guards state and last only, so readers
	// never wait on a fetch.
	checkMu sync.Mutex
	mu      sync.Mutex
	state   models.AlertState
	last    *Reading
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMinInterval overrides DefaultMinInterval.
func WithMinInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.minInterval = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Monitor) { m.log = logger.OrNop(l) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor returns a monitor in the unknown state. fans may be nil.
func NewMonitor(src Source, store ConfigStore, sink Sink, fans FanState, opts ...Option) *Monitor {
	m := &Monitor{
		source:      src,
		store:       store,
		sink:        sink,
		fans:        fans,
		log:         logger.Nop(),
		minInterval: DefaultMinInterval,
		now:         time.Now,
		state:       models.AlertUnknown,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current alert state.
func (m *Monitor) State() models.AlertState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastReading returns the most recent successful reading.
func (m *Monitor) LastReading() (Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Reading{}, false
	}
	return *m.last, true
}

// Check reads the temperature and the bounds and emits a change when the state moves.
// A failed reading leaves the state as it was. Checks are serialised.
func (m *Monitor) Check(ctx context.Context) (Outcome, error) {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	cfg, err := m.store.Thresholds(ctx)
	if err != nil {
		return Outcome{State: m.State()}, err
	}

	reading, err := m.source.Current(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{State: m.State()}, ctx.Err()
		}
		m.log.Warnw("threshold_no_data", "err", err)
		return Outcome{State: m.State(), NoData: true}, nil
	}

	next := Evaluate(&reading.TempF, cfg)
	out := Outcome{State: next, Reading: &reading}

	m.mu.Lock()
	m.last = &reading
	prev := m.state
	m.state = next
	m.mu.Unlock()
	if next == prev {
		return out, nil
	}

	change := models.AlertChange{
		From:   prev,
		To:     next,
		TempF:  &reading.TempF,
		Config: cfg,
		At:     m.now(),
	}
	if m.fans != nil {
		change.FansRunning = m.fans.AnyRunning()
	}
	out.Changed = true

	m.log.Infow("threshold_alert_changed", "from", change.From, "to", change.To, "temp_f", reading.TempF)
	if m.sink != nil {
		if err := m.sink.Notify(ctx, change); err != nil {
			m.log.Warnw("threshold_notify_failed", "err", err)
		}
	}
	return out, nil
}

// NextCheck is when the next scheduled check should run: no sooner than the
// minimum interval and the source's next data refresh.
func (m *Monitor) NextCheck(now time.Time) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := now.Add(m.minInterval)
	if m.last != nil && m.last.NextRefresh.After(next) {
		next = m.last.NextRefresh
	}
	return next
}
