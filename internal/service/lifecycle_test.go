package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"airspace_fan/internal/events"
	"airspace_fan/internal/host"
	"airspace_fan/internal/house"
	"airspace_fan/internal/models"
	"airspace_fan/internal/notify"
	"airspace_fan/internal/scanner"
	"airspace_fan/internal/scheduler"
	"airspace_fan/internal/simulator"
	"airspace_fan/internal/threshold"
)

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("background")
	require.NoError(t, err)
	require.Equal(t, PhaseBackground, p)

	_, err = ParsePhase("asleep")
	require.ErrorIs(t, err, ErrInvalidPhase)
}

func runLifecycle(t *testing.T, r *rig) *LifecycleService {
	t.Helper()
	lc := NewLifecycleService(r.registry, r.monitor, r.sched, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("lifecycle did not stop")
		}
	})
	return lc
}

func TestLifecycle_ForegroundLoopScansAndChecks(t *testing.T) {
	r := newRig(t, 3)
	r.prefs.cfg = &models.ThresholdConfig{LowBound: 55, HighBound: 75, Enabled: true}
	lc := runLifecycle(t, r)

	require.Eventually(t, func() bool {
		return len(r.registry.Controllers()) == 3 && r.monitor.State() == models.AlertNormal
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, PhaseForeground, lc.Phase())
	require.Empty(t, r.sched.Pending())
}

func TestLifecycle_BackgroundHandsOffToScheduler(t *testing.T) {
	r := newRig(t, 1)
	r.prefs.cfg = &models.ThresholdConfig{LowBound: 55, HighBound: 75, Enabled: true}
	lc := runLifecycle(t, r)
	ctx := context.Background()

	require.NoError(t, lc.Transition(ctx, PhaseBackground))
	require.Equal(t, PhaseBackground, lc.Phase())
	require.True(t, r.sched.Background())

	require.Eventually(t, func() bool {
		return lc.LifecycleStatus().ChecksCompleted >= 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, r.registry.Controllers(), 1)

	// repeating the phase keeps a single pending window
	require.NoError(t, lc.Transition(ctx, PhaseBackground))
	require.LessOrEqual(t, len(r.sched.Pending()), 1)

	require.NoError(t, lc.Transition(ctx, PhaseForeground))
	require.False(t, r.sched.Background())
	require.Empty(t, r.sched.Pending())
	require.Zero(t, r.host.Pending())
}

func TestLifecycle_InvalidPhase(t *testing.T) {
	r := newRig(t, 0)
	lc := NewLifecycleService(r.registry, r.monitor, r.sched, 0, nil)
	require.ErrorIs(t, lc.Transition(context.Background(), Phase("asleep")), ErrInvalidPhase)
}

func TestBackgroundJob_ScansWhenEmptyThenChecks(t *testing.T) {
	r := newRig(t, 2)
	r.prefs.cfg = &models.ThresholdConfig{LowBound: 55, HighBound: 75, Enabled: true}
	r.source.set(90)
	job := NewBackgroundJob(r.registry, r.monitor)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, r.registry.Controllers(), 2)
	require.Equal(t, models.AlertTooHot, r.monitor.State())

	r.bank.SetInterlock(addr(1), 1, true)
	require.NoError(t, job.Run(context.Background()))
	st := r.registry.Controllers()[0].Status()
	require.True(t, st.Chars.Interlock1)

	now := time.Now()
	require.False(t, job.NextRun(now).Before(now.Add(20*time.Millisecond)))
}

func TestBackgroundJob_WindowExpiryStopsScan(t *testing.T) {
	bank := simulator.NewBank()
	var candidates []models.DeviceAddress
	for i := 1; i <= 6; i++ {
		candidates = append(candidates, addr(i))
		bank.Add(addr(i), models.FanCharacteristics{MACAddr: mac(i), Model: "2.5e"})
		bank.SetDelay(addr(i), 100*time.Millisecond)
	}
	broker := events.NewBroker[models.Event](64)
	registry := house.NewRegistry(scanner.New(bank, candidates, scanner.WithWorkers(1)), bank, broker)
	monitor := threshold.NewMonitor(&fakeSource{temp: 70}, newFakePrefs(), notify.BrokerSink{Broker: broker}, registry)

	th := host.New(150*time.Millisecond, nil)
	sched := scheduler.New(th, NewBackgroundJob(registry, monitor), scheduler.WithBudget(5*time.Second))
	th.Register(sched.ID(), sched.OnWindowGranted)
	t.Cleanup(th.CancelAll)

	require.NoError(t, th.RequestWindow(sched.ID(), time.Now()))
	require.Eventually(t, func() bool {
		_, incomplete := sched.Stats()
		return incomplete == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !registry.Scanning() }, time.Second, 5*time.Millisecond)

	calls := func() int {
		n := 0
		for _, a := range candidates {
			n += bank.Calls(a)
		}
		return n
	}
	issued := calls()
	require.Less(t, issued, len(candidates))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, issued, calls())
	require.Less(t, len(registry.Controllers()), len(candidates))
}
