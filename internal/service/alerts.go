package service

import (
	"context"
	"errors"
	"math"
	"time"

	"airspace_fan/internal/models"
	"airspace_fan/internal/repository"
	"airspace_fan/internal/threshold"
)

// ErrInvalidThresholds is returned when the bounds are inverted or not finite.
var ErrInvalidThresholds = errors.New("invalid thresholds: low bound must not exceed high bound")

// AlertStatus is the current alert with the reading it came from.
type AlertStatus struct {
	State     models.AlertState `json:"state"`
	TempF     *float64          `json:"temp_f,omitempty"`
	ReadingAt *time.Time        `json:"reading_at,omitempty"`
	NextCheck time.Time         `json:"next_check"`
}

type AlertService struct {
	monitor *threshold.Monitor
	prefs   repository.Prefs
}

func NewAlertService(m *threshold.Monitor, prefs repository.Prefs) *AlertService {
	return &AlertService{monitor: m, prefs: prefs}
}

func (s *AlertService) Thresholds(ctx context.Context) (models.ThresholdConfig, error) {
	return s.prefs.Thresholds(ctx)
}

// SaveThresholds persists the bounds and re-evaluates the alert against them.
func (s *AlertService) SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) (models.ThresholdConfig, error) {
	if !finite(cfg.LowBound) || !finite(cfg.HighBound) || cfg.LowBound > cfg.HighBound {
		return models.ThresholdConfig{}, ErrInvalidThresholds
	}
	if err := s.prefs.SaveThresholds(ctx, cfg); err != nil {
		return models.ThresholdConfig{}, err
	}
	if _, err := s.monitor.Check(ctx); err != nil && ctx.Err() != nil {
		return cfg, ctx.Err()
	}
	return cfg, nil
}

func (s *AlertService) AlertStatus(now time.Time) AlertStatus {
	st := AlertStatus{State: s.monitor.State(), NextCheck: s.monitor.NextCheck(now)}
	if r, ok := s.monitor.LastReading(); ok {
		temp, at := r.TempF, r.At
		st.TempF, st.ReadingAt = &temp, &at
	}
	return st
}

func (s *AlertService) Check(ctx context.Context) (threshold.Outcome, error) {
	return s.monitor.Check(ctx)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
