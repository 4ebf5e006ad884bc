package fan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"airspace_fan/internal/models"
	"airspace_fan/internal/simulator"
	"airspace_fan/internal/transport"
)

const testMAC = "60:cb:fb:00:00:01"

var testAddr = models.DeviceAddress{Host: "10.0.0.7", Port: 80}

type recorder struct {
	mu       sync.Mutex
	statuses []models.FanStatus
}

func (r *recorder) hook(s models.FanStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) count(state models.ControllerState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i, s := range r.statuses {
		if s.State == state && (i == 0 || r.statuses[i-1].State != state) {
			n++
		}
	}
	return n
}

func newSynced(t *testing.T, chars models.FanCharacteristics) (*simulator.Bank, *Controller, *recorder) {
	t.Helper()
	chars.MACAddr = testMAC
	bank := simulator.NewBank()
	bank.Add(testAddr, chars)
	rec := &recorder{}
	c := New(testMAC, testAddr, bank, WithNotify(rec.hook))
	got, _ := bank.Device(testAddr)
	require.True(t, c.Observe(models.ScanResult{Chars: got, Address: testAddr, ObservedAt: time.Now()}))
	require.Equal(t, models.StateSynchronized, c.State())
	return bank, c, rec
}

func TestController_StartsUnknownAndRejectsCommands(t *testing.T) {
	c := New(testMAC, testAddr, simulator.NewBank())
	require.Equal(t, models.StateUnknown, c.State())

	_, err := c.SetSpeed(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotSynchronized)
	require.ErrorIs(t, err, ErrCommandRejected)
}

func TestController_InterlockScenario(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Model: "2.5e", Speed: 2, Interlock1: true})

	_, err := c.SetSpeed(context.Background(), 3)
	require.ErrorIs(t, err, ErrCommandRejected)
	require.ErrorIs(t, err, ErrInterlock)
	require.Equal(t, 0, bank.Calls(testAddr))
	require.Equal(t, 2, c.Status().Chars.Speed)

	st, err := c.SetSpeed(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 0, st.Chars.Speed)
	require.Equal(t, models.StateSynchronized, st.State)
}

func TestController_SetSpeedStepsAndAdoptsAck(t *testing.T) {
	bank, c, rec := newSynced(t, models.FanCharacteristics{Model: "2.5e"})

	st, err := c.SetSpeed(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 3, st.Chars.Speed)
	require.Equal(t, 3, bank.Calls(testAddr))
	require.Equal(t, 1, rec.count(models.StateCommandPending))

	st, err = c.SetSpeed(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, st.Chars.Speed)
	require.Equal(t, 5, bank.Calls(testAddr))
}

func TestController_SetSpeedClampsToModelMax(t *testing.T) {
	_, c, _ := newSynced(t, models.FanCharacteristics{Model: "2.5e", Speed: 6})

	st, err := c.SetSpeed(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, 7, st.Chars.Speed)
}

func TestController_SetSpeedSameLevelIsNoop(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Speed: 4})

	_, err := c.SetSpeed(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, 0, bank.Calls(testAddr))

	_, err = c.SetSpeed(context.Background(), -1)
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestController_SetSpeedFailureReverts(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Speed: 2})
	bank.SetFailure(testAddr, &transport.Error{Kind: transport.KindUnreachable, Addr: testAddr, Err: errors.New("no route")})

	st, err := c.SetSpeed(context.Background(), 5)
	require.Error(t, err)
	require.True(t, transport.IsDeviceFailure(err))
	require.Equal(t, 2, st.Chars.Speed)
	require.Equal(t, models.StateSynchronized, c.State())
	require.Equal(t, 1, bank.Calls(testAddr), "commands are never retried")
}

func TestController_SingleFlight(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Speed: 1})
	bank.SetDelay(testAddr, 50*time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = c.Refresh(context.Background())
			} else {
				_, errs[i] = c.SetSpeed(context.Background(), 3)
			}
		}()
	}
	wg.Wait()

	busy := 0
	for _, err := range errs {
		if errors.Is(err, ErrBusy) {
			busy++
		}
	}
	require.Positive(t, busy)
	require.Equal(t, 1, bank.MaxInFlight(testAddr))
}

func TestController_FaultsExactlyOnceAndRecovers(t *testing.T) {
	bank, c, rec := newSynced(t, models.FanCharacteristics{Speed: 1})
	bank.SetFailure(testAddr, &transport.Error{Kind: transport.KindUnreachable, Addr: testAddr, Err: errors.New("timeout")})

	for i := 1; i < FaultThreshold; i++ {
		_, err := c.Refresh(context.Background())
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrFatalFault)
		require.Equal(t, models.StateSynchronized, c.State())
	}
	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrFatalFault)
	require.Equal(t, models.StateFaulted, c.State())

	_, err = c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrFatalFault)
	require.Equal(t, 1, rec.count(models.StateFaulted))

	_, err = c.SetSpeed(context.Background(), 0)
	require.ErrorIs(t, err, ErrFaulted)

	bank.SetFailure(testAddr, nil)
	st, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.StateSynchronized, st.State)
	require.Zero(t, st.Failures)
}

func TestController_UnsyncedNeverFaults(t *testing.T) {
	bank := simulator.NewBank()
	c := New(testMAC, testAddr, bank)
	for i := 0; i < FaultThreshold+2; i++ {
		_, err := c.Refresh(context.Background())
		require.NotErrorIs(t, err, ErrFatalFault)
	}
	require.Equal(t, models.StateUnknown, c.State())
}

func TestController_CancelledRefreshNotCounted(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{})
	bank.SetDelay(testAddr, time.Second)

	for i := 0; i < FaultThreshold+1; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := c.Refresh(ctx)
		cancel()
		require.Error(t, err)
	}
	st := c.Status()
	require.Zero(t, st.Failures)
	require.Equal(t, models.StateSynchronized, st.State)
}

func TestController_ObserveClearsFault(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{})
	bank.SetFailure(testAddr, &transport.Error{Kind: transport.KindMalformed, Addr: testAddr, Err: errors.New("bad")})
	for i := 0; i < FaultThreshold; i++ {
		_, _ = c.Refresh(context.Background())
	}
	require.Equal(t, models.StateFaulted, c.State())

	moved := models.DeviceAddress{Host: "10.0.0.99", Port: 80}
	ok := c.Observe(models.ScanResult{
		Chars:      models.FanCharacteristics{MACAddr: testMAC, Speed: 2},
		Address:    moved,
		ObservedAt: time.Now(),
	})
	require.True(t, ok)
	st := c.Status()
	require.Equal(t, models.StateSynchronized, st.State)
	require.Equal(t, moved, st.Address)
}

func TestController_ObserveIgnoresOlderAndForeign(t *testing.T) {
	_, c, _ := newSynced(t, models.FanCharacteristics{Speed: 1})

	require.False(t, c.Observe(models.ScanResult{
		Chars:      models.FanCharacteristics{MACAddr: testMAC, Speed: 5},
		Address:    testAddr,
		ObservedAt: time.Now().Add(-time.Hour),
	}))
	require.False(t, c.Observe(models.ScanResult{
		Chars:      models.FanCharacteristics{MACAddr: "60:cb:fb:00:00:99", Speed: 5},
		Address:    testAddr,
		ObservedAt: time.Now(),
	}))
	require.Equal(t, 1, c.Status().Chars.Speed)
}

func TestController_ObserveIgnoredWhileCommandInFlight(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Speed: 1})
	bank.SetDelay(testAddr, 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.SetSpeed(context.Background(), 0)
	}()
	require.Eventually(t, func() bool { return c.State() == models.StateCommandPending }, time.Second, time.Millisecond)

	require.False(t, c.Observe(models.ScanResult{
		Chars:      models.FanCharacteristics{MACAddr: testMAC, Speed: 6},
		Address:    testAddr,
		ObservedAt: time.Now(),
	}))
	<-done
	require.Equal(t, 0, c.Status().Chars.Speed)
}

func TestController_SetTimer(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Speed: 3})

	st, err := c.SetTimer(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 3, st.Chars.TimerHoursRemaining)
	require.Equal(t, 3, st.Chars.Speed)

	// off, three steps back to speed 3, one hour
	calls := bank.Calls(testAddr)
	st, err = c.SetTimer(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, st.Chars.TimerHoursRemaining)
	require.Equal(t, 3, st.Chars.Speed)
	require.Equal(t, calls+5, bank.Calls(testAddr))

	st, err = c.SetTimer(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, st.Chars.TimerHoursRemaining)
	require.Equal(t, 3, st.Chars.Speed)

	_, err = c.SetTimer(context.Background(), MaxTimerHours+1)
	require.ErrorIs(t, err, ErrInvalidHours)
}

func TestController_SetTimerInterlocked(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Interlock2: true})

	_, err := c.SetTimer(context.Background(), 2)
	require.ErrorIs(t, err, ErrInterlock)
	require.Equal(t, 0, bank.Calls(testAddr))
}

func TestController_StaleIsTerminal(t *testing.T) {
	bank, c, rec := newSynced(t, models.FanCharacteristics{Speed: 1})
	c.MarkStale()
	c.MarkStale()

	require.Equal(t, models.StateStale, c.State())
	require.Equal(t, 1, rec.count(models.StateStale))

	_, err := c.SetSpeed(context.Background(), 0)
	require.ErrorIs(t, err, ErrStale)
	_, err = c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrStale)
	require.False(t, c.Observe(models.ScanResult{Chars: models.FanCharacteristics{MACAddr: testMAC}, ObservedAt: time.Now()}))
	require.Equal(t, 0, bank.Calls(testAddr))
}

func TestController_SeqIncreases(t *testing.T) {
	_, c, rec := newSynced(t, models.FanCharacteristics{})
	_, _ = c.SetSpeed(context.Background(), 2)
	c.SetName("Hallway")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := 1; i < len(rec.statuses); i++ {
		require.Greater(t, rec.statuses[i].Seq, rec.statuses[i-1].Seq)
	}
	require.Equal(t, "Hallway", rec.statuses[len(rec.statuses)-1].Name)
}

func TestController_SlotWaitDoesNotCountTowardFault(t *testing.T) {
	bank, c, _ := newSynced(t, models.FanCharacteristics{Speed: 1})
	bank.SetFailure(testAddr, fmt.Errorf("%w %s: %w", transport.ErrSlotWait, testAddr, context.DeadlineExceeded))

	for i := 0; i < FaultThreshold+2; i++ {
		st, err := c.Refresh(context.Background())
		require.ErrorIs(t, err, transport.ErrSlotWait)
		require.NotErrorIs(t, err, ErrFatalFault)
		require.Zero(t, st.Failures)
	}
	require.Equal(t, models.StateSynchronized, c.State())
}
