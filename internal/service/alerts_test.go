package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"airspace_fan/internal/models"
	"airspace_fan/internal/repository"
)

func TestAlerts_DefaultThresholds(t *testing.T) {
	r := newRig(t, 0)
	svc := NewAlertService(r.monitor, r.prefs)

	cfg, err := svc.Thresholds(context.Background())
	require.NoError(t, err)
	require.Equal(t, repository.DefaultThresholds, cfg)
}

func TestAlerts_SaveRejectsBadBounds(t *testing.T) {
	r := newRig(t, 0)
	svc := NewAlertService(r.monitor, r.prefs)

	for _, cfg := range []models.ThresholdConfig{
		{LowBound: 80, HighBound: 60, Enabled: true},
		{LowBound: math.NaN(), HighBound: 60},
		{LowBound: 50, HighBound: math.Inf(1)},
	} {
		_, err := svc.SaveThresholds(context.Background(), cfg)
		require.ErrorIs(t, err, ErrInvalidThresholds)
	}
	require.Nil(t, r.prefs.cfg)
}

func TestAlerts_SaveReevaluates(t *testing.T) {
	r := newRig(t, 0)
	svc := NewAlertService(r.monitor, r.prefs)
	r.source.set(91)

	cfg := models.ThresholdConfig{LowBound: 55, HighBound: 75, Enabled: true}
	got, err := svc.SaveThresholds(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
	require.Equal(t, cfg, *r.prefs.cfg)

	st := svc.AlertStatus(time.Now())
	require.Equal(t, models.AlertTooHot, st.State)
	require.NotNil(t, st.TempF)
	require.Equal(t, 91.0, *st.TempF)
	require.NotNil(t, st.ReadingAt)
}

func TestAlerts_SaveStoreError(t *testing.T) {
	r := newRig(t, 0)
	boom := errors.New("locked")
	r.prefs.err = boom
	svc := NewAlertService(r.monitor, r.prefs)

	_, err := svc.SaveThresholds(context.Background(), models.ThresholdConfig{LowBound: 1, HighBound: 2})
	require.ErrorIs(t, err, boom)
}

func TestAlerts_StatusBeforeAnyCheck(t *testing.T) {
	r := newRig(t, 0)
	svc := NewAlertService(r.monitor, r.prefs)

	now := time.Now()
	st := svc.AlertStatus(now)
	require.Equal(t, models.AlertUnknown, st.State)
	require.Nil(t, st.TempF)
	require.False(t, st.NextCheck.Before(now))
}

func TestAlerts_CheckPublishesChange(t *testing.T) {
	r := newRig(t, 0)
	r.prefs.cfg = &models.ThresholdConfig{LowBound: 55, HighBound: 75, Enabled: true}
	r.source.set(40)
	sub := r.broker.Subscribe()
	defer sub.Close()

	out, err := NewAlertService(r.monitor, r.prefs).Check(context.Background())
	require.NoError(t, err)
	require.True(t, out.Changed)
	require.Equal(t, models.AlertTooCold, out.State)

	select {
	case ev := <-sub.C():
		require.Equal(t, models.EventAlertChanged, ev.Kind)
		require.Equal(t, models.AlertTooCold, ev.Alert.To)
	case <-time.After(time.Second):
		t.Fatal("no alert_changed event")
	}
}
