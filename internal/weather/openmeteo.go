// Package weather provides outdoor temperature sources for the threshold monitor.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"airspace_fan/internal/logger"
	"airspace_fan/internal/threshold"
)

const (
	// DefaultBaseURL is the public Open-Meteo endpoint.
	DefaultBaseURL = "https://api.open-meteo.com"

	forecastPath   = "/v1/forecast"
	requestTimeout = 10 * time.Second
	// fallbackInterval is used when the API omits the update interval.
	fallbackInterval = 15 * time.Minute
	timeLayout       = "2006-01-02T15:04"
)

var errNoCoordinates = errors.New("weather: coordinates not configured")

// OpenMeteo reads the current 2 m temperature for a fixed location and caches
// it until the API's next update.
type OpenMeteo struct {
	baseURL   string
	latitude  float64
	longitude float64
	client    *http.Client
	log       *logger.Logger
	now       func() time.Time

	mu     sync.Mutex
	cached *threshold.Reading
}

var _ threshold.Source = (*OpenMeteo)(nil)

// Option configures an OpenMeteo client.
type Option func(*OpenMeteo)

// WithBaseURL points the client at another server.
func WithBaseURL(u string) Option {
	return func(o *OpenMeteo) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenMeteo) {
		if c != nil {
			o.client = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *OpenMeteo) { o.log = logger.OrNop(l) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *OpenMeteo) { o.now = now }
}

// NewOpenMeteo returns a client for the given coordinates.
func NewOpenMeteo(lat, lon float64, opts ...Option) *OpenMeteo {
	o := &OpenMeteo{
		baseURL:   DefaultBaseURL,
		latitude:  lat,
		longitude: lon,
		client:    &http.Client{Timeout: requestTimeout},
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type forecastResponse struct {
	Current struct {
		Time          string   `json:"time"`
		Interval      int      `json:"interval"`
		Temperature2m *float64 `json:"temperature_2m"`
	} `json:"current"`
}

// Current returns the cached reading while it is fresh, otherwise fetches a new one.
func (o *OpenMeteo) Current(ctx context.Context) (threshold.Reading, error) {
	if o.latitude == 0 && o.longitude == 0 {
		return threshold.Reading{}, errNoCoordinates
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if o.cached != nil && now.Before(o.cached.NextRefresh) {
		return *o.cached, nil
	}

	r, err := o.fetch(ctx, now)
	if err != nil {
		return threshold.Reading{}, err
	}
	o.cached = &r
	o.log.Debugw("weather_reading", "temp_f", r.TempF, "next_refresh", r.NextRefresh)
	return r, nil
}

func (o *OpenMeteo) fetch(ctx context.Context, now time.Time) (threshold.Reading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(o.latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(o.longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m")
	q.Set("temperature_unit", "fahrenheit")
	q.Set("timezone", "GMT")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+forecastPath+"?"+q.Encode(), nil)
	if err != nil {
		return threshold.Reading{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return threshold.Reading{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return threshold.Reading{}, fmt.Errorf("fetch weather: status %d: %s", resp.StatusCode, body)
	}

	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return threshold.Reading{}, fmt.Errorf("decode weather: %w", err)
	}
	if fr.Current.Temperature2m == nil {
		return threshold.Reading{}, threshold.ErrNoData
	}

	at := now
	if t, err := time.ParseInLocation(timeLayout, fr.Current.Time, time.UTC); err == nil {
		at = t
	}
	interval := fallbackInterval
	if fr.Current.Interval > 0 {
		interval = time.Duration(fr.Current.Interval) * time.Second
	}
	next := at.Add(interval)
	if !next.After(now) {
		next = now.Add(interval)
	}

	return threshold.Reading{
		TempF:       *fr.Current.Temperature2m,
		At:          at,
		NextRefresh: next,
	}, nil
}
