package transport_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"airspace_fan/internal/models"
	"airspace_fan/internal/simulator"
	"airspace_fan/internal/transport"
)

func serverAddr(t *testing.T, srv *httptest.Server) models.DeviceAddress {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	p, _ := strconv.Atoi(port)
	return models.DeviceAddress{Host: host, Port: p}
}

func newSimulatedFan(t *testing.T, chars models.FanCharacteristics) (*simulator.Bank, models.DeviceAddress) {
	t.Helper()
	bank := simulator.NewBank()
	key := models.DeviceAddress{Host: "sim", Port: 1}
	bank.Add(key, chars)
	srv := httptest.NewServer(bank.Handler(key))
	t.Cleanup(srv.Close)
	return bank, serverAddr(t, srv)
}

func TestHTTPTransport_ProbeAndSend(t *testing.T) {
	_, addr := newSimulatedFan(t, models.FanCharacteristics{MACAddr: "60:cb:fb:00:00:01", Model: "2.5e"})
	tr := transport.NewHTTP(transport.WithTimeout(time.Second))

	chars, err := tr.Probe(context.Background(), addr)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if chars.MACAddr != "60:cb:fb:00:00:01" || chars.Speed != 0 {
		t.Fatalf("unexpected probe result: %+v", chars)
	}

	ack, err := tr.Send(context.Background(), addr, transport.Command{Action: transport.ActionFaster})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ack.Chars.Speed != 1 {
		t.Fatalf("expected speed 1 after faster, got %d", ack.Chars.Speed)
	}
	if ack.ReceivedAt.IsZero() {
		t.Fatalf("ack must carry a receive time")
	}

	ack, err = tr.Send(context.Background(), addr, transport.Command{Action: transport.ActionAddHour})
	if err != nil {
		t.Fatalf("send add hour: %v", err)
	}
	if ack.Chars.TimerHoursRemaining != 1 {
		t.Fatalf("expected 1h timer, got %d", ack.Chars.TimerHoursRemaining)
	}
}

func TestHTTPTransport_InvalidCommandSendsNothing(t *testing.T) {
	bank, addr := newSimulatedFan(t, models.FanCharacteristics{MACAddr: "60:cb:fb:00:00:01"})
	tr := transport.NewHTTP()

	_, err := tr.Send(context.Background(), addr, transport.Command{Action: 9})
	if !errors.Is(err, transport.ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if n := bank.Calls(models.DeviceAddress{Host: "sim", Port: 1}); n != 0 {
		t.Fatalf("expected no exchange, got %d", n)
	}
}

func TestHTTPTransport_NotAFan(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	tr := transport.NewHTTP()

	_, err := tr.Probe(context.Background(), serverAddr(t, srv))
	if !errors.Is(err, transport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// the same answer to a command is a device fault
	_, err = tr.Send(context.Background(), serverAddr(t, srv), transport.Command{Action: transport.ActionOff})
	if !transport.IsMalformed(err) {
		t.Fatalf("expected malformed on command, got %v", err)
	}
}

func TestHTTPTransport_MalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<fanspd>2</fanspd><macaddr>zz</macaddr>`))
	}))
	defer srv.Close()

	_, err := transport.NewHTTP().Probe(context.Background(), serverAddr(t, srv))
	if !transport.IsMalformed(err) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := serverAddr(t, srv)
	srv.Close()

	_, err := transport.NewHTTP(transport.WithTimeout(500*time.Millisecond)).Probe(context.Background(), addr)
	var te *transport.Error
	if !errors.As(err, &te) || te.Kind != transport.KindUnreachable {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestHTTPTransport_TimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := transport.NewHTTP(transport.WithTimeout(50*time.Millisecond)).Probe(context.Background(), serverAddr(t, srv))
	if !transport.IsAbsent(err) {
		t.Fatalf("timeout should read as absent, got %v", err)
	}
}

func TestHTTPTransport_OneExchangePerAddress(t *testing.T) {
	var (
		mu       sync.Mutex
		inflight int
		peak     int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		peak = max(peak, inflight)
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()
		_, _ = w.Write([]byte(transport.EncodeStatus(models.FanCharacteristics{MACAddr: "60:cb:fb:00:00:01"}, 0)))
	}))
	defer srv.Close()

	tr := transport.NewHTTP()
	addr := serverAddr(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.Probe(context.Background(), addr); err != nil {
				t.Errorf("probe: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Fatalf("expected serialized exchanges, peak in flight = %d", peak)
	}
}

func TestHTTPTransport_SlotWaitIsNotADeviceFailure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(transport.EncodeStatus(models.FanCharacteristics{MACAddr: "60:cb:fb:00:00:01"}, 0)))
	}))
	defer srv.Close()
	defer close(release)

	tr := transport.NewHTTP(transport.WithTimeout(time.Second))
	addr := serverAddr(t, srv)
	go func() { _, _ = tr.Probe(context.Background(), addr) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := tr.Probe(ctx, addr)
	if !errors.Is(err, transport.ErrSlotWait) {
		t.Fatalf("expected slot wait error, got %v", err)
	}
	if transport.IsDeviceFailure(err) {
		t.Fatalf("slot wait must not read as a device failure: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("slot wait should carry the context error, got %v", err)
	}
}
