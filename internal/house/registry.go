// Package house owns the collection of fan controllers and reconciles it with each scan session.
package house

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"airspace_fan/internal/events"
	"airspace_fan/internal/fan"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/scanner"
	"airspace_fan/internal/transport"
)

// ErrUnknownDevice is returned for commands addressed to a MAC the registry has never seen.
var ErrUnknownDevice = errors.New("house: unknown device")

// refreshWorkers caps concurrent refreshes in RefreshAll.
const refreshWorkers = 8

// Scanner starts one discovery pass.
type Scanner interface {
	Scan(ctx context.Context) (*scanner.Stream, error)
}

// Namer returns the stored display name for a MAC, or "" to use the model.
type Namer func(ctx context.Context, mac string) string

// ScanReport summarises one scan session.
type ScanReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Candidates int       `json:"candidates"`
	Found      []string  `json:"found"`
	Retired    []string  `json:"retired"`
	Cancelled  bool      `json:"cancelled"`
}

type collection = map[string]*fan.Controller

// Registry is the single writer of the controller collection. Readers get a
// fully-formed map through an atomic pointer.
type Registry struct {
	scanner   Scanner
	transport transport.Transport
	broker    *events.Broker[models.Event]
	namer     Namer
	log       *logger.Logger
	ctrlOpts  []fan.Option

	active atomic.Pointer[collection]

	// mu serialises writers and guards stale.
	mu    sync.Mutex
	stale collection

	group    singleflight.Group
	streamMu sync.Mutex
	stream   *scanner.Stream

	lastReport atomic.Pointer[ScanReport]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = logger.OrNop(l) }
}

// WithNamer sets the display name lookup used for new controllers.
func WithNamer(n Namer) Option {
	return func(r *Registry) { r.namer = n }
}

// WithControllerOptions passes options to every controller the registry creates.
func WithControllerOptions(opts ...fan.Option) Option {
	return func(r *Registry) { r.ctrlOpts = append(r.ctrlOpts, opts...) }
}

// NewRegistry returns an empty registry. broker may be nil.
func NewRegistry(s Scanner, t transport.Transport, broker *events.Broker[models.Event], opts ...Option) *Registry {
	if broker == nil {
		broker = events.NewBroker[models.Event](0)
	}
	r := &Registry{
		scanner:   s,
		transport: t,
		broker:    broker,
		log:       logger.Nop(),
		stale:     make(collection),
	}
	for _, opt := range opts {
		opt(r)
	}
	empty := make(collection)
	r.active.Store(&empty)
	return r
}

// Events returns the broker state changes are published on.
func (r *Registry) Events() *events.Broker[models.Event] { return r.broker }

// Scan runs one discovery session, or joins the one already running.
// Leaving early through ctx does not stop a shared scan; use CancelScan.
func (r *Registry) Scan(ctx context.Context) (ScanReport, error) {
	return r.share(ctx, false)
}

// ScanWithin is Scan bounded by ctx: when ctx ends the session stops for
// every caller sharing it, and no probe is issued afterwards.
func (r *Registry) ScanWithin(ctx context.Context) (ScanReport, error) {
	return r.share(ctx, true)
}

func (r *Registry) share(ctx context.Context, bound bool) (ScanReport, error) {
	ch := r.group.DoChan("scan", func() (any, error) {
		if bound {
			return r.scan(ctx)
		}
		return r.scan(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return ScanReport{}, res.Err
		}
		return res.Val.(ScanReport), nil
	case <-ctx.Done():
		if bound {
			// the session may belong to an unbounded caller
			r.CancelScan()
		}
		return ScanReport{}, ctx.Err()
	}
}

// CancelScan stops the running scan, if any. It reports whether one was running.
func (r *Registry) CancelScan() bool {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()
	if r.stream == nil {
		return false
	}
	r.stream.Cancel()
	return true
}

// Scanning reports whether a scan is in progress.
func (r *Registry) Scanning() bool {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()
	return r.stream != nil
}

// LastScan returns the report of the most recent finished scan.
func (r *Registry) LastScan() (ScanReport, bool) {
	if p := r.lastReport.Load(); p != nil {
		return *p, true
	}
	return ScanReport{}, false
}

func (r *Registry) scan(ctx context.Context) (ScanReport, error) {
	report := ScanReport{StartedAt: time.Now()}

	st, err := r.scanner.Scan(ctx)
	if err != nil {
		return report, fmt.Errorf("start scan: %w", err)
	}
	report.Candidates = st.Total()

	r.streamMu.Lock()
	r.stream = st
	r.streamMu.Unlock()
	defer func() {
		r.streamMu.Lock()
		r.stream = nil
		r.streamMu.Unlock()
	}()

	r.publish(models.Event{Kind: models.EventScanStarted})

	seen := make(map[string]struct{})
	for res := range st.Results() {
		if st.Cancelled() {
			// results racing a cancel are not part of the session
			continue
		}
		r.ingest(ctx, res)
		seen[res.Chars.MACAddr] = struct{}{}
		report.Found = append(report.Found, res.Chars.MACAddr)
		r.publish(models.Event{Kind: models.EventScanProgress, Progress: st.Progress()})
	}
	report.Cancelled = st.Wait() != nil

	report.Retired = r.reconcile(seen)
	report.FinishedAt = time.Now()
	r.lastReport.Store(&report)

	r.log.Infow("house_scan_finished",
		"found", len(report.Found),
		"retired", len(report.Retired),
		"cancelled", report.Cancelled,
	)
	r.publish(models.Event{Kind: models.EventScanFinished, Progress: 1})
	return report, nil
}

// ingest hands a result to its controller, creating one for new or previously stale devices.
func (r *Registry) ingest(ctx context.Context, res models.ScanResult) {
	mac := res.Chars.MACAddr

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := (*r.active.Load())[mac]; ok {
		c.Observe(res)
		return
	}

	var opts []fan.Option
	opts = append(opts, r.ctrlOpts...)
	opts = append(opts, fan.WithLogger(r.log), fan.WithNotify(r.notifier()))
	if r.namer != nil {
		if name := r.namer(ctx, mac); name != "" {
			opts = append(opts, fan.WithName(name))
		}
	}
	c := fan.New(mac, res.Address, r.transport, opts...)

	delete(r.stale, mac)
	r.swapLocked(func(m collection) { m[mac] = c })
	c.Observe(res)
	r.log.Infow("house_fan_discovered", "mac", mac, "addr", res.Address.String(), "model", res.Chars.Model)
}

// reconcile retires every active controller not observed this session and returns their MACs.
// Controllers retired by an earlier session are forgotten.
func (r *Registry) reconcile(seen map[string]struct{}) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stale = make(collection)
	var retired []string
	for mac, c := range *r.active.Load() {
		if _, ok := seen[mac]; !ok {
			retired = append(retired, mac)
			r.stale[mac] = c
		}
	}
	if len(retired) == 0 {
		return nil
	}
	slices.Sort(retired)
	r.swapLocked(func(m collection) {
		for _, mac := range retired {
			delete(m, mac)
		}
	})
	for _, mac := range retired {
		r.stale[mac].MarkStale()
	}
	return retired
}

// swapLocked publishes a modified copy of the active collection; callers hold r.mu.
func (r *Registry) swapLocked(mutate func(collection)) {
	next := maps.Clone(*r.active.Load())
	mutate(next)
	r.active.Store(&next)
}

// notifier translates controller snapshots into events. Each controller gets its
// own closure; it runs under that controller's lock.
func (r *Registry) notifier() func(models.FanStatus) {
	var last models.ControllerState
	return func(s models.FanStatus) {
		kind := models.EventFanUpdated
		switch {
		case s.State == models.StateStale:
			kind = models.EventFanStale
		case s.State == models.StateFaulted && last != models.StateFaulted:
			kind = models.EventFanFault
		}
		last = s.State
		r.publish(models.Event{Kind: kind, Fan: &s})
	}
}

func (r *Registry) publish(ev models.Event) {
	ev.ID = uuid.NewString()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	r.broker.Publish(ev)
}

// Select looks a MAC up among active controllers, then stale ones.
func (r *Registry) Select(mac string) Selection {
	if c, ok := (*r.active.Load())[mac]; ok {
		return Device{Controller: c}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.stale[mac]; ok {
		return Device{Controller: c}
	}
	return NoDevice{}
}

// Controllers returns the active controllers sorted by MAC.
func (r *Registry) Controllers() []*fan.Controller {
	m := *r.active.Load()
	out := make([]*fan.Controller, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *fan.Controller) int {
		switch {
		case a.MAC() < b.MAC():
			return -1
		case a.MAC() > b.MAC():
			return 1
		}
		return 0
	})
	return out
}

// Fans returns the status of every active and stale controller sorted by MAC.
func (r *Registry) Fans() []models.FanStatus {
	var out []models.FanStatus
	for _, c := range r.Controllers() {
		out = append(out, c.Status())
	}
	r.mu.Lock()
	for _, c := range r.stale {
		out = append(out, c.Status())
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b models.FanStatus) int {
		switch {
		case a.MACAddr < b.MACAddr:
			return -1
		case a.MACAddr > b.MACAddr:
			return 1
		}
		return 0
	})
	return out
}

// AnyRunning reports whether any active fan is spinning.
func (r *Registry) AnyRunning() bool {
	for _, c := range *r.active.Load() {
		if c.Running() {
			return true
		}
	}
	return false
}

// SetSpeed routes a speed command to the fan with mac.
func (r *Registry) SetSpeed(ctx context.Context, mac string, level int) (models.FanStatus, error) {
	switch sel := r.Select(mac).(type) {
	case Device:
		return sel.Controller.SetSpeed(ctx, level)
	default:
		return models.FanStatus{}, fmt.Errorf("%w: %s", ErrUnknownDevice, mac)
	}
}

// SetTimer routes a timer command to the fan with mac.
func (r *Registry) SetTimer(ctx context.Context, mac string, hours int) (models.FanStatus, error) {
	switch sel := r.Select(mac).(type) {
	case Device:
		return sel.Controller.SetTimer(ctx, hours)
	default:
		return models.FanStatus{}, fmt.Errorf("%w: %s", ErrUnknownDevice, mac)
	}
}

// Refresh probes one fan.
func (r *Registry) Refresh(ctx context.Context, mac string) (models.FanStatus, error) {
	switch sel := r.Select(mac).(type) {
	case Device:
		return sel.Controller.Refresh(ctx)
	default:
		return models.FanStatus{}, fmt.Errorf("%w: %s", ErrUnknownDevice, mac)
	}
}

// Rename sets the display name of a known fan.
func (r *Registry) Rename(mac, name string) error {
	switch sel := r.Select(mac).(type) {
	case Device:
		sel.Controller.SetName(name)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDevice, mac)
	}
}

// RefreshAll probes every active fan concurrently. Transport failures are absorbed
// into controller state; the returned error joins the fatal faults only.
func (r *Registry) RefreshAll(ctx context.Context) error {
	var (
		mu     sync.Mutex
		faults []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshWorkers)
	for _, c := range r.Controllers() {
		g.Go(func() error {
			_, err := c.Refresh(gctx)
			if errors.Is(err, fan.ErrFatalFault) {
				mu.Lock()
				faults = append(faults, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(faults...)
}
