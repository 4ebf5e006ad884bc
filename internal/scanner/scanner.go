// Package scanner discovers fans by probing a fixed set of candidate addresses.
package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/transport"
)

// DefaultWorkers caps simultaneous probes when no budget is configured.
const DefaultWorkers = 32

// ErrNoCandidates is returned by Scan when there is nothing to probe.
var ErrNoCandidates = errors.New("scanner: no candidate addresses")

// Scanner probes every candidate address with bounded parallelism.
type Scanner struct {
	transport  transport.Transport
	candidates func() []models.DeviceAddress
	workers    int
	timeout    time.Duration
	log        *logger.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the worker budget.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProbeTimeout bounds each probe below the transport's own timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scanner) { s.log = logger.OrNop(l) }
}

// New returns a scanner over a fixed candidate list.
func New(t transport.Transport, candidates []models.DeviceAddress, opts ...Option) *Scanner {
	fixed := append([]models.DeviceAddress(nil), candidates...)
	return NewDynamic(t, func() []models.DeviceAddress { return fixed }, opts...)
}

// NewDynamic returns a scanner that asks list for candidates at the start of every scan.
func NewDynamic(t transport.Transport, list func() []models.DeviceAddress, opts ...Option) *Scanner {
	s := &Scanner{
		transport:  t,
		candidates: list,
		workers:    DefaultWorkers,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream is one scan in progress. Results arrive in completion order.
type Stream struct {
	results chan models.ScanResult
	cancel  context.CancelFunc
	ctx     context.Context
	parent  context.Context

	cancelled atomic.Bool

	total  int
	probed atomic.Int64

	done chan struct{}
	err  error
}

// Results yields discovered fans and is closed when the scan ends.
func (st *Stream) Results() <-chan models.ScanResult { return st.results }

// Progress is the fraction of candidates probed so far.
func (st *Stream) Progress() float64 {
	if st.total == 0 {
		return 1
	}
	return float64(st.probed.Load()) / float64(st.total)
}

// Total is the number of candidate addresses in this scan.
func (st *Stream) Total() int { return st.total }

// Cancel stops issuing probes and unwinds in-flight ones. It does not block.
func (st *Stream) Cancel() {
	st.cancelled.Store(true)
	st.cancel()
}

// Cancelled reports whether Cancel was called or the parent context ended.
// The stream releasing its own context after the last result does not count.
// A result received after this turns true may be discarded by the consumer.
func (st *Stream) Cancelled() bool {
	return st.cancelled.Load() || st.parent.Err() != nil
}

// Done is closed once every worker has returned.
func (st *Stream) Done() <-chan struct{} { return st.done }

// Wait blocks until the scan ends and returns the context error if it was cancelled.
func (st *Stream) Wait() error {
	<-st.done
	return st.err
}

// Scan starts probing. The returned stream must be drained or cancelled.
func (s *Scanner) Scan(ctx context.Context) (*Stream, error) {
	addrs := s.candidates()
	if len(addrs) == 0 {
		return nil, ErrNoCandidates
	}

	sctx, cancel := context.WithCancel(ctx)
	st := &Stream{
		results: make(chan models.ScanResult),
		cancel:  cancel,
		ctx:     sctx,
		parent:  ctx,
		total:   len(addrs),
		done:    make(chan struct{}),
	}

	s.log.Debugw("scan_started", "candidates", len(addrs), "workers", s.workers)
	go s.run(st, addrs)
	return st, nil
}

func (s *Scanner) run(st *Stream, addrs []models.DeviceAddress) {
	ctx := st.ctx
	started := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	var found atomic.Int64
	for _, addr := range addrs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, ok := s.probe(ctx, addr)
			st.probed.Add(1)
			if !ok || ctx.Err() != nil {
				return nil
			}
			select {
			case st.results <- res:
				found.Add(1)
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()

	st.err = ctx.Err()
	close(st.results)
	close(st.done)
	st.cancel()

	s.log.Infow("scan_finished",
		"candidates", len(addrs),
		"found", found.Load(),
		"cancelled", st.err != nil,
		"elapsed", time.Since(started).String(),
	)
}

// probe reports whether addr answered as a fan; absence and faults are both dropped.
func (s *Scanner) probe(ctx context.Context, addr models.DeviceAddress) (models.ScanResult, bool) {
	pctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	chars, err := s.transport.Probe(pctx, addr)
	switch {
	case err == nil:
		return models.ScanResult{Chars: chars, Address: addr, ObservedAt: time.Now()}, true
	case ctx.Err() != nil:
		return models.ScanResult{}, false
	case transport.IsAbsent(err):
		s.log.Debugw("scan_probe_absent", "addr", addr.String())
	default:
		s.log.Warnw("scan_probe_failed", "addr", addr.String(), "err", err)
	}
	return models.ScanResult{}, false
}
