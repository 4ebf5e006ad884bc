package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"airspace_fan/internal/fan"
	"airspace_fan/internal/house"
	"airspace_fan/internal/models"
)

func newHouse(t *testing.T, fans int) (*rig, *HouseService) {
	t.Helper()
	r := newRig(t, fans)
	r.scan(t)
	return r, NewHouseService(r.registry, r.prefs, r.logRepo, nil)
}

func TestHouse_SetSpeedIsAudited(t *testing.T) {
	r, svc := newHouse(t, 2)

	st, err := svc.SetSpeed(context.Background(), strings.ToUpper(mac(1)), 3)
	require.NoError(t, err)
	require.Equal(t, 3, st.Chars.Speed)

	chars, _ := r.bank.Device(addr(1))
	require.Equal(t, 3, chars.Speed)

	entries := r.logRepo.byType(models.LogSpeed)
	require.Len(t, entries, 1)
	require.Equal(t, mac(1), entries[0].MACAddr)
	require.Equal(t, "set speed to 3", entries[0].Description)
	require.Equal(t, map[string]any{"level": 3}, entries[0].Metadata)
}

func TestHouse_RejectedCommandIsAuditedAsFailed(t *testing.T) {
	r, svc := newHouse(t, 1)

	_, err := svc.SetSpeed(context.Background(), mac(1), -1)
	require.ErrorIs(t, err, fan.ErrInvalidLevel)
	require.ErrorIs(t, err, fan.ErrCommandRejected)

	entries := r.logRepo.byType(models.LogSpeed)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Description, "failed"))
	require.Contains(t, entries[0].Metadata, "error")
}

func TestHouse_SetTimer(t *testing.T) {
	r, svc := newHouse(t, 1)

	st, err := svc.SetTimer(context.Background(), mac(1), 2)
	require.NoError(t, err)
	require.Equal(t, 2, st.Chars.TimerHoursRemaining)
	require.Len(t, r.logRepo.byType(models.LogTimer), 1)
}

func TestHouse_UnknownDeviceIsNotAudited(t *testing.T) {
	r, svc := newHouse(t, 1)

	_, err := svc.SetSpeed(context.Background(), mac(9), 2)
	require.ErrorIs(t, err, house.ErrUnknownDevice)

	_, err = svc.SetTimer(context.Background(), "not-a-mac", 2)
	require.ErrorIs(t, err, house.ErrUnknownDevice)

	_, err = svc.Fan("60:cb:fb:00:00:09")
	require.ErrorIs(t, err, house.ErrUnknownDevice)

	require.Empty(t, r.logRepo.entries)
}

func TestHouse_AuditFailureDoesNotFailCommand(t *testing.T) {
	r, svc := newHouse(t, 1)
	r.logRepo.err = errors.New("disk full")

	_, err := svc.SetSpeed(context.Background(), mac(1), 1)
	require.NoError(t, err)
}

func TestHouse_RenamePersistsAndApplies(t *testing.T) {
	r, svc := newHouse(t, 1)
	ctx := context.Background()

	st, err := svc.Rename(ctx, mac(1), "  Upstairs hall ")
	require.NoError(t, err)
	require.Equal(t, "Upstairs hall", st.Name)
	require.Equal(t, "Upstairs hall", r.prefs.names[mac(1)])

	st, err = svc.Rename(ctx, mac(1), "")
	require.NoError(t, err)
	require.Equal(t, "2.5e", st.Name)
	require.NotContains(t, r.prefs.names, mac(1))
}

func TestHouse_RenameUnknownDevice(t *testing.T) {
	r, svc := newHouse(t, 1)
	_, err := svc.Rename(context.Background(), mac(7), "nope")
	require.ErrorIs(t, err, house.ErrUnknownDevice)
	require.Empty(t, r.prefs.names)
}

func TestHouse_StoredNameAppliedOnDiscovery(t *testing.T) {
	r := newRig(t, 1)
	r.prefs.names[mac(1)] = "Bedroom"
	r.scan(t)

	svc := NewHouseService(r.registry, r.prefs, r.logRepo, nil)
	st, err := svc.Fan(mac(1))
	require.NoError(t, err)
	require.Equal(t, "Bedroom", st.Name)
}

func TestHouse_SubscribeSeesCommands(t *testing.T) {
	_, svc := newHouse(t, 1)
	sub := svc.Subscribe()
	defer sub.Close()

	_, err := svc.SetSpeed(context.Background(), mac(1), 2)
	require.NoError(t, err)

	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-sub.C():
			if ev.Kind == models.EventFanUpdated && ev.Fan != nil && ev.Fan.Chars.Speed == 2 {
				return
			}
		case <-timeout:
			t.Fatal("no fan_updated event with the new speed")
		}
	}
}

func TestHouse_ScanAndFans(t *testing.T) {
	r := newRig(t, 3)
	svc := NewHouseService(r.registry, r.prefs, r.logRepo, nil)

	rep, err := svc.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Found, 3)
	require.Len(t, svc.Fans(), 3)
	require.False(t, svc.CancelScan())
}
