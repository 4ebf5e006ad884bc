// Package simulator emulates a house of fans speaking the device protocol.
// It backs the --simulate mode of the CLI and the package tests.
package simulator

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"airspace_fan/internal/models"
	"airspace_fan/internal/transport"
)

// Simulation constants.
const (
	MaxTimerMinutes = 12 * 60
	minutesPerHour  = 60
)

type device struct {
	chars        models.FanCharacteristics
	timerMinutes int
	carrySeconds float64

	fail  error
	delay time.Duration

	calls       int
	inflight    int
	maxInflight int
}

// snapshot returns the reported characteristics; callers hold the bank lock.
func (d *device) snapshot() models.FanCharacteristics {
	c := d.chars
	c.TimerHoursRemaining = 0
	if d.timerMinutes > 0 {
		c.TimerHoursRemaining = (d.timerMinutes + minutesPerHour - 1) / minutesPerHour
	}
	return c
}

// Bank is a set of simulated fans keyed by address. It implements transport.Transport.
type Bank struct {
	mu      sync.Mutex
	devices map[string]*device
	addrs   []models.DeviceAddress
}

var _ transport.Transport = (*Bank)(nil)

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{devices: make(map[string]*device)}
}

// Add places a fan at addr. An existing fan at addr is replaced.
func (b *Bank) Add(addr models.DeviceAddress, chars models.FanCharacteristics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chars.Damper == "" {
		chars.Damper = models.DamperNotOperating
	}
	if _, exists := b.devices[addr.String()]; !exists {
		b.addrs = append(b.addrs, addr)
	}
	b.devices[addr.String()] = &device{
		chars:        chars,
		timerMinutes: chars.TimerHoursRemaining * minutesPerHour,
	}
}

// Remove unplugs the fan at addr.
func (b *Bank) Remove(addr models.DeviceAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, addr.String())
	for i, a := range b.addrs {
		if a == addr {
			b.addrs = append(b.addrs[:i], b.addrs[i+1:]...)
			break
		}
	}
}

// Addresses lists the occupied addresses in insertion order.
func (b *Bank) Addresses() []models.DeviceAddress {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.DeviceAddress, len(b.addrs))
	copy(out, b.addrs)
	return out
}

// SetFailure makes every exchange with addr fail with err until cleared with nil.
func (b *Bank) SetFailure(addr models.DeviceAddress, err error) {
	b.with(addr, func(d *device) { d.fail = err })
}

// SetDelay makes every exchange with addr take at least delay.
func (b *Bank) SetDelay(addr models.DeviceAddress, delay time.Duration) {
	b.with(addr, func(d *device) { d.delay = delay })
}

// SetInterlock asserts or clears interlock 1 or 2.
func (b *Bank) SetInterlock(addr models.DeviceAddress, n int, on bool) {
	b.with(addr, func(d *device) {
		switch n {
		case 1:
			d.chars.Interlock1 = on
		case 2:
			d.chars.Interlock2 = on
		}
	})
}

// Device returns the current state of the fan at addr.
func (b *Bank) Device(addr models.DeviceAddress) (models.FanCharacteristics, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[addr.String()]
	if !ok {
		return models.FanCharacteristics{}, false
	}
	return d.snapshot(), true
}

// Calls returns how many exchanges addr has received.
func (b *Bank) Calls(addr models.DeviceAddress) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[addr.String()]; ok {
		return d.calls
	}
	return 0
}

// MaxInFlight returns the highest number of simultaneous exchanges seen at addr.
func (b *Bank) MaxInFlight(addr models.DeviceAddress) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[addr.String()]; ok {
		return d.maxInflight
	}
	return 0
}

func (b *Bank) with(addr models.DeviceAddress, fn func(d *device)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[addr.String()]; ok {
		fn(d)
	}
}

// Probe implements transport.Transport.
func (b *Bank) Probe(ctx context.Context, addr models.DeviceAddress) (models.FanCharacteristics, error) {
	d, err := b.begin(ctx, addr)
	if err != nil {
		return models.FanCharacteristics{}, err
	}
	defer b.end(d)

	b.mu.Lock()
	defer b.mu.Unlock()
	return d.snapshot(), nil
}

// Send implements transport.Transport.
func (b *Bank) Send(ctx context.Context, addr models.DeviceAddress, cmd transport.Command) (transport.Acknowledgment, error) {
	if !cmd.Action.Valid() {
		return transport.Acknowledgment{}, fmt.Errorf("%w: %d", transport.ErrInvalidCommand, int(cmd.Action))
	}
	d, err := b.begin(ctx, addr)
	if err != nil {
		return transport.Acknowledgment{}, err
	}
	defer b.end(d)

	b.mu.Lock()
	defer b.mu.Unlock()
	apply(d, cmd.Action)
	return transport.Acknowledgment{Chars: d.snapshot(), ReceivedAt: time.Now()}, nil
}

// apply mutates the device the way the firmware does; callers hold the bank lock.
func apply(d *device, a transport.Action) {
	c := &d.chars
	switch a {
	case transport.ActionFaster:
		if !c.InterlockAsserted() && c.Speed < c.MaxSpeed() {
			c.Speed++
		}
	case transport.ActionSlower:
		if c.Speed > 0 {
			c.Speed--
		}
		if c.Speed == 0 {
			d.timerMinutes = 0
		}
	case transport.ActionOff:
		c.Speed = 0
		d.timerMinutes = 0
	case transport.ActionAddHour:
		if c.Speed == 0 {
			if c.InterlockAsserted() {
				return
			}
			c.Speed = 1
		}
		d.timerMinutes = min(d.timerMinutes+minutesPerHour, MaxTimerMinutes)
	}
}

func (b *Bank) begin(ctx context.Context, addr models.DeviceAddress) (*device, error) {
	b.mu.Lock()
	d, ok := b.devices[addr.String()]
	if !ok {
		b.mu.Unlock()
		return nil, &transport.Error{Kind: transport.KindUnreachable, Addr: addr, Err: fmt.Errorf("connection refused")}
	}
	d.calls++
	d.inflight++
	if d.inflight > d.maxInflight {
		d.maxInflight = d.inflight
	}
	delay, fail := d.delay, d.fail
	b.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			b.end(d)
			return nil, &transport.Error{Kind: transport.KindUnreachable, Addr: addr, Err: ctx.Err()}
		}
	}
	if fail != nil {
		b.end(d)
		return nil, fail
	}
	return d, nil
}

func (b *Bank) end(d *device) {
	b.mu.Lock()
	d.inflight--
	b.mu.Unlock()
}

// Run counts timers down until ctx is canceled; a fan whose timer expires turns off.
// scale is simulated seconds per real second (1 = real time).
func (b *Bank) Run(ctx context.Context, tick time.Duration, scale float64) {
	if scale <= 0 {
		scale = 1
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			elapsed := now.Sub(last).Seconds() * scale
			last = now
			b.advance(elapsed)
		}
	}
}

// advance moves every running timer forward by elapsed simulated seconds.
func (b *Bank) advance(elapsed float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		if d.timerMinutes <= 0 {
			continue
		}
		d.carrySeconds += elapsed
		whole := int(d.carrySeconds / 60)
		if whole < 1 {
			continue
		}
		d.carrySeconds -= float64(whole * 60)
		if d.timerMinutes > whole {
			d.timerMinutes -= whole
			continue
		}
		d.timerMinutes = 0
		d.carrySeconds = 0
		d.chars.Speed = 0
	}
}

// Handler serves the fan at addr over the CGI endpoint, for wire-level tests and demos.
func (b *Bank) Handler(addr models.DeviceAddress) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/fanspd.cgi", func(w http.ResponseWriter, r *http.Request) {
		var (
			chars models.FanCharacteristics
			err   error
		)
		if dir := r.URL.Query().Get("dir"); dir != "" {
			n, convErr := strconv.Atoi(dir)
			if convErr != nil {
				http.Error(w, "bad dir", http.StatusBadRequest)
				return
			}
			var ack transport.Acknowledgment
			ack, err = b.Send(r.Context(), addr, transport.Command{Action: transport.Action(n)})
			chars = ack.Chars
		} else {
			chars, err = b.Probe(r.Context(), addr)
		}
		if transport.IsAbsent(err) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		b.mu.Lock()
		minutes := 0
		if d, ok := b.devices[addr.String()]; ok {
			minutes = d.timerMinutes
		}
		b.mu.Unlock()
		_, _ = w.Write([]byte(transport.EncodeStatus(chars, minutes)))
	})
	return mux
}

// Demo fills a bank with a small house for --simulate runs and returns the addresses used.
func Demo(b *Bank, host string, port int) []models.DeviceAddress {
	out := []models.DeviceAddress{
		{Host: host, Port: port},
		{Host: host, Port: port + 1},
	}
	outside := 78
	b.Add(out[0], models.FanCharacteristics{
		MACAddr: "60:cb:fb:00:00:01", Model: "3.5e", IPAddr: host, SoftwareVersion: "2.15.1",
		OutsideTempF: &outside,
	})
	b.Add(out[1], models.FanCharacteristics{
		MACAddr: "60:cb:fb:00:00:02", Model: "2.5e", Speed: 2, Interlock1: true,
		Damper: models.DamperOperating, IPAddr: host, SoftwareVersion: "2.15.1",
	})
	return out
}
