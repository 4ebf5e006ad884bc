package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"airspace_fan/internal/events"
	"airspace_fan/internal/host"
	"airspace_fan/internal/house"
	"airspace_fan/internal/models"
	"airspace_fan/internal/notify"
	"airspace_fan/internal/repository"
	"airspace_fan/internal/scanner"
	"airspace_fan/internal/scheduler"
	"airspace_fan/internal/simulator"
	"airspace_fan/internal/threshold"
)

// fakePrefs is an in-memory repository.Prefs.
type fakePrefs struct {
	mu       sync.Mutex
	cfg      *models.ThresholdConfig
	names    map[string]string
	settings map[string]string
	err      error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{names: map[string]string{}, settings: map[string]string{}}
}

func (p *fakePrefs) Thresholds(context.Context) (models.ThresholdConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return models.ThresholdConfig{}, p.err
	}
	if p.cfg == nil {
		return repository.DefaultThresholds, nil
	}
	return *p.cfg, nil
}

func (p *fakePrefs) SaveThresholds(_ context.Context, cfg models.ThresholdConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.cfg = &cfg
	return nil
}

func (p *fakePrefs) FanName(_ context.Context, mac string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.names[mac], p.err
}

func (p *fakePrefs) SetFanName(_ context.Context, mac, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if name == "" {
		delete(p.names, mac)
		return nil
	}
	p.names[mac] = name
	return nil
}

func (p *fakePrefs) Setting(_ context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings[key], p.err
}

func (p *fakePrefs) SetSetting(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.settings[key] = value
	return nil
}

// fakeLogRepo records appended entries and captures the last filter.
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []models.LogEntry
	filter  repository.LogFilter
	calls   int
	err     error
}

func (f *fakeLogRepo) Append(_ context.Context, e models.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLogRepo) List(_ context.Context, lf repository.LogFilter) ([]models.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.filter = lf
	return slices.Clone(f.entries), f.err
}

func (f *fakeLogRepo) byType(typ string) []models.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LogEntry
	for _, e := range f.entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeClients is an in-memory repository.Clients.
type fakeClients struct {
	mu sync.Mutex
	m  map[string]models.Client
}

func newFakeClients() *fakeClients { return &fakeClients{m: map[string]models.Client{}} }

func (f *fakeClients) Create(_ context.Context, c models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[c.ID] = c
	return nil
}

func (f *fakeClients) Get(_ context.Context, id string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.m[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeClients) List(context.Context) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Client, 0, len(f.m))
	for _, c := range f.m {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeClients) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, id)
	return nil
}

// fakeSource returns a fixed outdoor temperature.
type fakeSource struct {
	mu    sync.Mutex
	temp  float64
	err   error
	calls int
}

func (s *fakeSource) Current(context.Context) (threshold.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return threshold.Reading{}, s.err
	}
	return threshold.Reading{TempF: s.temp, At: time.Now()}, nil
}

func (s *fakeSource) set(temp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp = temp
}

func addr(i int) models.DeviceAddress {
	return models.DeviceAddress{Host: fmt.Sprintf("10.0.0.%d", i), Port: 80}
}

func mac(i int) string { return fmt.Sprintf("60:cb:fb:00:00:%02x", i) }

// rig is a house of simulated fans wired the way serve wires them.
type rig struct {
	bank     *simulator.Bank
	registry *house.Registry
	broker   *events.Broker[models.Event]
	prefs    *fakePrefs
	logRepo  *fakeLogRepo
	source   *fakeSource
	monitor  *threshold.Monitor
	host     *host.TimerHost
	sched    *scheduler.Scheduler
}

func newRig(t *testing.T, fans int) *rig {
	t.Helper()
	r := &rig{
		bank:    simulator.NewBank(),
		broker:  events.NewBroker[models.Event](256),
		prefs:   newFakePrefs(),
		logRepo: &fakeLogRepo{},
		source:  &fakeSource{temp: 70},
	}
	var candidates []models.DeviceAddress
	for i := 1; i <= fans+2; i++ {
		candidates = append(candidates, addr(i))
		if i <= fans {
			r.bank.Add(addr(i), models.FanCharacteristics{MACAddr: mac(i), Model: "2.5e"})
		}
	}
	namer := func(ctx context.Context, m string) string {
		name, _ := r.prefs.FanName(ctx, m)
		return name
	}
	r.registry = house.NewRegistry(scanner.New(r.bank, candidates, scanner.WithWorkers(4)), r.bank, r.broker, house.WithNamer(namer))
	r.monitor = threshold.NewMonitor(r.source, r.prefs, notify.BrokerSink{Broker: r.broker}, r.registry,
		threshold.WithMinInterval(20*time.Millisecond))
	r.host = host.New(time.Minute, nil)
	r.sched = scheduler.New(r.host, NewBackgroundJob(r.registry, r.monitor))
	r.host.Register(r.sched.ID(), r.sched.OnWindowGranted)
	t.Cleanup(r.sched.EnterForeground)
	return r
}

func (r *rig) scan(t *testing.T) {
	t.Helper()
	if _, err := r.registry.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
}
