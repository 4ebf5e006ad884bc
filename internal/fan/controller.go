// Package fan holds the per-device controller: one cached snapshot, one in-flight slot and a fault flag.
package fan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/transport"
)

const (
	// FaultThreshold is the number of consecutive refresh failures that fault a synchronized controller.
	FaultThreshold = 3
	// MaxTimerHours is the longest timer the device accepts.
	MaxTimerHours = 12
)

// Controller tracks one physical fan. All methods are safe for concurrent use.
type Controller struct {
	mac       string
	transport transport.Transport
	log       *logger.Logger
	notify    func(models.FanStatus)
	threshold int

	mu        sync.Mutex
	addr      models.DeviceAddress
	name      string
	chars     models.FanCharacteristics
	synced    bool
	inflight  bool
	command   bool
	faulted   bool
	stale     bool
	failures  int
	updatedAt time.Time
	seq       uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = logger.OrNop(l) }
}

// WithNotify sets the hook receiving every status change. It runs under the
// controller lock and must not call back into the controller.
func WithNotify(fn func(models.FanStatus)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithFaultThreshold overrides FaultThreshold.
func WithFaultThreshold(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithName sets the display name.
func WithName(name string) Option {
	return func(c *Controller) { c.name = name }
}

// New returns a controller in the unknown state. Observe or Refresh synchronizes it.
func New(mac string, addr models.DeviceAddress, t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		mac:       mac,
		addr:      addr,
		transport: t,
		log:       logger.Nop(),
		threshold: FaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MAC returns the device identity.
func (c *Controller) MAC() string { return c.mac }

// Status returns the current snapshot.
func (c *Controller) Status() models.FanStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// State returns the current lifecycle state.
func (c *Controller) State() models.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Stale reports whether the controller was retired by a scan.
func (c *Controller) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Running reports whether the last known speed is above zero.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced && !c.stale && c.chars.Speed > 0
}

// SetName changes the display name. An empty name falls back to the model.
func (c *Controller) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name == name {
		return
	}
	c.name = name
	c.publishLocked()
}

// MarkStale retires the controller. It is terminal: every later command is rejected.
func (c *Controller) MarkStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale {
		return
	}
	c.stale = true
	c.publishLocked()
}

// Observe adopts a scan result unless an exchange is in flight or the result is older
// than the current snapshot. It reports whether the result was applied.
func (c *Controller) Observe(res models.ScanResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale || c.inflight || res.Chars.MACAddr != c.mac {
		return false
	}
	if !c.updatedAt.IsZero() && res.ObservedAt.Before(c.updatedAt) {
		return false
	}
	if c.faulted {
		c.log.Infow("fan_fault_cleared", "mac", c.mac, "by", "scan")
	}
	c.addr = res.Address
	c.chars = res.Chars
	c.synced = true
	c.faulted = false
	c.failures = 0
	c.updatedAt = res.ObservedAt
	c.publishLocked()
	return true
}

// Refresh probes the device and overwrites the snapshot. Consecutive failures of a
// synchronized controller fault it after the threshold; while faulted the returned
// error wraps ErrFatalFault. A cancelled context never counts as a failure.
func (c *Controller) Refresh(ctx context.Context) (models.FanStatus, error) {
	c.mu.Lock()
	if c.stale {
		c.mu.Unlock()
		return models.FanStatus{}, ErrStale
	}
	if c.inflight {
		c.mu.Unlock()
		return models.FanStatus{}, ErrBusy
	}
	c.inflight = true
	addr := c.addr
	c.mu.Unlock()

	chars, err := c.transport.Probe(ctx, addr)
	if err == nil && chars.MACAddr != c.mac {
		err = &transport.Error{Kind: transport.KindMalformed, Addr: addr, Err: errWrongDevice}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = false

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, transport.ErrSlotWait) {
			// no exchange with the fan took place
			return c.statusLocked(), err
		}
		return c.statusLocked(), c.failLocked(err)
	}

	if c.faulted {
		c.log.Infow("fan_fault_cleared", "mac", c.mac, "by", "refresh")
	}
	c.chars = chars
	c.synced = true
	c.faulted = false
	c.failures = 0
	c.updatedAt = time.Now()
	c.publishLocked()
	return c.statusLocked(), nil
}

func (c *Controller) failLocked(err error) error {
	c.failures++
	c.log.Warnw("fan_refresh_failed", "mac", c.mac, "addr", c.addr.String(), "failures", c.failures, "err", err)

	if c.synced && !c.faulted && c.failures >= c.threshold {
		c.faulted = true
		c.log.Errorw("fan_faulted", "mac", c.mac, "failures", c.failures)
	}
	c.publishLocked()
	if c.faulted {
		return fmt.Errorf("%w: %s: %w", ErrFatalFault, c.mac, err)
	}
	return err
}

// SetSpeed drives the fan to level by stepping it; level 0 turns it off.
// Levels above the model's maximum are clamped. The acknowledged state is adopted.
func (c *Controller) SetSpeed(ctx context.Context, level int) (models.FanStatus, error) {
	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return models.FanStatus{}, err
	}
	if level < 0 {
		c.mu.Unlock()
		return models.FanStatus{}, ErrInvalidLevel
	}
	if !c.chars.Permits(level) {
		c.mu.Unlock()
		return models.FanStatus{}, ErrInterlock
	}
	level = min(level, c.chars.MaxSpeed())
	if level == c.chars.Speed {
		defer c.mu.Unlock()
		return c.statusLocked(), nil
	}
	prior, addr := c.beginLocked()
	c.mu.Unlock()

	var (
		ack transport.Acknowledgment
		err error
	)
	if level == 0 {
		ack, err = c.send(ctx, addr, transport.ActionOff)
	} else {
		ack, err = c.stepTo(ctx, addr, prior.Speed, level, transport.Acknowledgment{Chars: prior})
	}
	return c.finish(prior, ack, err, "speed", level)
}

// SetTimer sets the run-off timer to hours; 0 clears it. Lowering the timer turns the
// fan off, restores its speed and adds the requested hours again.
func (c *Controller) SetTimer(ctx context.Context, hours int) (models.FanStatus, error) {
	c.mu.Lock()
	if err := c.admitLocked(); err != nil {
		c.mu.Unlock()
		return models.FanStatus{}, err
	}
	if hours < 0 || hours > MaxTimerHours {
		c.mu.Unlock()
		return models.FanStatus{}, ErrInvalidHours
	}
	current := c.chars.TimerHoursRemaining
	// adding a timer starts a stopped fan and lowering one restarts it
	if hours > 0 && c.chars.InterlockAsserted() && (c.chars.Speed == 0 || hours < current) {
		c.mu.Unlock()
		return models.FanStatus{}, ErrInterlock
	}
	if hours == current {
		defer c.mu.Unlock()
		return c.statusLocked(), nil
	}
	prior, addr := c.beginLocked()
	c.mu.Unlock()

	ack, err := c.retime(ctx, addr, prior, hours)
	return c.finish(prior, ack, err, "timer", hours)
}

func (c *Controller) retime(ctx context.Context, addr models.DeviceAddress, prior models.FanCharacteristics, hours int) (transport.Acknowledgment, error) {
	last := transport.Acknowledgment{Chars: prior}
	add := hours - prior.TimerHoursRemaining

	if add < 0 {
		ack, err := c.send(ctx, addr, transport.ActionOff)
		if err != nil {
			return ack, err
		}
		last = ack
		if prior.Speed > 0 {
			if last, err = c.stepTo(ctx, addr, 0, prior.Speed, last); err != nil {
				return last, err
			}
		}
		add = hours
	}
	for i := 0; i < add; i++ {
		ack, err := c.send(ctx, addr, transport.ActionAddHour)
		if err != nil {
			return ack, err
		}
		last = ack
	}
	return last, nil
}

// stepTo sends faster/slower until the device reports target or stops moving.
func (c *Controller) stepTo(ctx context.Context, addr models.DeviceAddress, from, target int, last transport.Acknowledgment) (transport.Acknowledgment, error) {
	cur := from
	limit := last.Chars.MaxSpeed() + 1
	for steps := 0; cur != target && steps < limit; steps++ {
		action := transport.ActionFaster
		if target < cur {
			action = transport.ActionSlower
		}
		ack, err := c.send(ctx, addr, action)
		if err != nil {
			return ack, err
		}
		last = ack
		if ack.Chars.Speed == cur {
			c.log.Warnw("fan_step_stalled", "mac", c.mac, "speed", cur, "target", target)
			break
		}
		cur = ack.Chars.Speed
	}
	return last, nil
}

func (c *Controller) send(ctx context.Context, addr models.DeviceAddress, a transport.Action) (transport.Acknowledgment, error) {
	return c.transport.Send(ctx, addr, transport.Command{Action: a})
}

// admitLocked applies the rejections shared by every command.
func (c *Controller) admitLocked() error {
	switch {
	case c.stale:
		return ErrStale
	case c.inflight:
		return ErrBusy
	case c.faulted:
		return ErrFaulted
	case !c.synced:
		return ErrNotSynchronized
	}
	return nil
}

func (c *Controller) beginLocked() (models.FanCharacteristics, models.DeviceAddress) {
	c.inflight = true
	c.command = true
	c.publishLocked()
	return c.chars, c.addr
}

func (c *Controller) finish(prior models.FanCharacteristics, ack transport.Acknowledgment, err error, what string, value int) (models.FanStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = false
	c.command = false

	if err != nil {
		c.chars = prior
		c.publishLocked()
		c.log.Warnw("fan_command_failed", "mac", c.mac, "command", what, "value", value, "err", err)
		return c.statusLocked(), fmt.Errorf("set %s on %s: %w", what, c.mac, err)
	}

	c.chars = ack.Chars
	c.updatedAt = ack.ReceivedAt
	c.publishLocked()
	c.log.Infow("fan_command_applied", "mac", c.mac, "command", what, "value", value,
		"speed", c.chars.Speed, "timer_hours", c.chars.TimerHoursRemaining)
	return c.statusLocked(), nil
}

func (c *Controller) stateLocked() models.ControllerState {
	switch {
	case c.stale:
		return models.StateStale
	case c.command:
		return models.StateCommandPending
	case c.faulted:
		return models.StateFaulted
	case !c.synced:
		return models.StateUnknown
	default:
		return models.StateSynchronized
	}
}

func (c *Controller) statusLocked() models.FanStatus {
	name := c.name
	if name == "" {
		name = c.chars.Model
	}
	return models.FanStatus{
		MACAddr:   c.mac,
		Name:      name,
		Address:   c.addr,
		Chars:     c.chars,
		State:     c.stateLocked(),
		Failures:  c.failures,
		UpdatedAt: c.updatedAt,
		Seq:       c.seq,
	}
}

func (c *Controller) publishLocked() {
	c.seq++
	if c.notify != nil {
		c.notify(c.statusLocked())
	}
}
