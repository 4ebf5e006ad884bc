package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"airspace_fan/internal/models"
	"airspace_fan/internal/threshold"
)

func TestOpenMeteo_FetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/v1/forecast", r.URL.Path)
		require.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		require.Equal(t, "temperature_2m", r.URL.Query().Get("current"))
		_, _ = w.Write([]byte(`{"current":{"time":"2026-07-01T12:00","interval":900,"temperature_2m":88.5}}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 7, 1, 12, 5, 0, 0, time.UTC)
	o := NewOpenMeteo(45.5, -122.6, WithBaseURL(srv.URL), WithClock(func() time.Time { return now }))

	r, err := o.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 88.5, r.TempF)
	require.Equal(t, time.Date(2026, 7, 1, 12, 15, 0, 0, time.UTC), r.NextRefresh)

	_, err = o.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	now = now.Add(11 * time.Minute)
	_, err = o.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestOpenMeteo_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenMeteo(1, 1, WithBaseURL(srv.URL)).Current(context.Background())
	require.ErrorContains(t, err, "429")

	_, err = NewOpenMeteo(0, 0).Current(context.Background())
	require.Error(t, err)
}

func TestOpenMeteo_MissingTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"time":"2026-07-01T12:00","interval":900}}`))
	}))
	defer srv.Close()

	_, err := NewOpenMeteo(1, 1, WithBaseURL(srv.URL)).Current(context.Background())
	require.ErrorIs(t, err, threshold.ErrNoData)
}

func TestFanSensors(t *testing.T) {
	t1, t2 := 70, 80
	fans := []models.FanStatus{
		{State: models.StateSynchronized, Chars: models.FanCharacteristics{OutsideTempF: &t1}},
		{State: models.StateSynchronized, Chars: models.FanCharacteristics{OutsideTempF: &t2}},
		{State: models.StateSynchronized},
		{State: models.StateStale, Chars: models.FanCharacteristics{OutsideTempF: &t2}},
	}
	r, err := NewFanSensors(func() []models.FanStatus { return fans }).Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 75.0, r.TempF)

	_, err = NewFanSensors(func() []models.FanStatus { return nil }).Current(context.Background())
	require.ErrorIs(t, err, threshold.ErrNoData)
}

type stubSource struct {
	r   threshold.Reading
	err error
}

func (s stubSource) Current(context.Context) (threshold.Reading, error) { return s.r, s.err }

func TestChain(t *testing.T) {
	c := Chain{stubSource{err: errors.New("down")}, stubSource{r: threshold.Reading{TempF: 50}}}
	r, err := c.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 50.0, r.TempF)

	_, err = Chain{stubSource{err: errors.New("a")}, stubSource{err: errors.New("b")}}.Current(context.Background())
	require.ErrorContains(t, err, "a")
	require.ErrorContains(t, err, "b")
}
