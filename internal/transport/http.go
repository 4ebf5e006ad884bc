package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
)

const (
	// DefaultTimeout bounds one exchange including queueing behind another call to the same address.
	DefaultTimeout = 2 * time.Second

	statusPath   = "/fanspd.cgi"
	maxReplySize = 16 << 10
)

// HTTPTransport talks to fans over their CGI endpoint.
type HTTPTransport struct {
	client  *http.Client
	timeout time.Duration
	log     *logger.Logger

	// slots holds one single-capacity channel per address.
	slots sync.Map
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithTimeout sets the fixed per-exchange timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *HTTPTransport) {
		t.log = logger.OrNop(l)
	}
}

// NewHTTP builds a transport with the default timeout and a client that never follows redirects.
func NewHTTP(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: DefaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Probe asks the address for its current status.
func (t *HTTPTransport) Probe(ctx context.Context, addr models.DeviceAddress) (models.FanCharacteristics, error) {
	body, err := t.exchange(ctx, addr, "")
	if err != nil {
		return models.FanCharacteristics{}, err
	}
	return decodeStatus(addr, body)
}

// Send issues one command and decodes the state the fan replies with.
func (t *HTTPTransport) Send(ctx context.Context, addr models.DeviceAddress, cmd Command) (Acknowledgment, error) {
	if !cmd.Action.Valid() {
		return Acknowledgment{}, fmt.Errorf("%w: %d", ErrInvalidCommand, int(cmd.Action))
	}
	var chars models.FanCharacteristics
	body, err := t.exchange(ctx, addr, strconv.Itoa(int(cmd.Action)))
	if err == nil {
		chars, err = decodeStatus(addr, body)
	}
	if errors.Is(err, ErrNotFound) && !IsMalformed(err) {
		// a command reply that is not a fan reply is a fault, not absence
		return Acknowledgment{}, &Error{Kind: KindMalformed, Addr: addr, Err: err}
	}
	if err != nil {
		return Acknowledgment{}, err
	}
	return Acknowledgment{Chars: chars, ReceivedAt: time.Now()}, nil
}

// exchange performs one GET under the address slot. dir is empty for a status query.
func (t *HTTPTransport) exchange(ctx context.Context, addr models.DeviceAddress, dir string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	release, err := t.acquire(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer release()

	url := "http://" + addr.String() + statusPath
	if dir != "" {
		url += "?dir=" + dir
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Addr: addr, Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Addr: addr, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s answered status %d", ErrNotFound, addr, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Addr: addr, Err: fmt.Errorf("read reply: %w", err)}
	}
	t.log.Debugw("transport_exchange", "addr", addr.String(), "dir", dir, "bytes", len(body))
	return body, nil
}

// acquire waits for the address slot; the returned func frees it.
func (t *HTTPTransport) acquire(ctx context.Context, addr models.DeviceAddress) (func(), error) {
	v, _ := t.slots.LoadOrStore(addr.String(), make(chan struct{}, 1))
	slot := v.(chan struct{})
	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w %s: %w", ErrSlotWait, addr, ctx.Err())
	}
}
