package weather

import (
	"context"
	"errors"
	"time"

	"airspace_fan/internal/models"
	"airspace_fan/internal/threshold"
)

// FanSensors averages the outdoor probes reported by the fans themselves.
type FanSensors struct {
	fans func() []models.FanStatus
}

var _ threshold.Source = FanSensors{}

// NewFanSensors reads the fan list through fans on every call.
func NewFanSensors(fans func() []models.FanStatus) FanSensors {
	return FanSensors{fans: fans}
}

// Current averages the outdoor temperature of every non-stale fan with a sensor.
func (s FanSensors) Current(context.Context) (threshold.Reading, error) {
	var (
		sum    int
		n      int
		latest time.Time
	)
	for _, f := range s.fans() {
		if f.State == models.StateStale || f.Chars.OutsideTempF == nil {
			continue
		}
		sum += *f.Chars.OutsideTempF
		n++
		if f.UpdatedAt.After(latest) {
			latest = f.UpdatedAt
		}
	}
	if n == 0 {
		return threshold.Reading{}, threshold.ErrNoData
	}
	return threshold.Reading{TempF: float64(sum) / float64(n), At: latest}, nil
}

// Chain tries each source in order and returns the first reading.
type Chain []threshold.Source

// Current implements threshold.Source.
func (c Chain) Current(ctx context.Context) (threshold.Reading, error) {
	var errs []error
	for _, s := range c {
		r, err := s.Current(ctx)
		if err == nil {
			return r, nil
		}
		if ctx.Err() != nil {
			return threshold.Reading{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return threshold.Reading{}, threshold.ErrNoData
	}
	return threshold.Reading{}, errors.Join(errs...)
}
