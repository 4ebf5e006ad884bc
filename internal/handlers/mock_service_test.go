package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"airspace_fan/internal/events"
	"airspace_fan/internal/house"
	"airspace_fan/internal/models"
	"airspace_fan/internal/service"
	"airspace_fan/internal/threshold"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockPairing struct {
	token    string
	client   models.Client
	pairErr  error
	parseID  string
	parseErr error

	lastName       string
	lastPIN        string
	lastParseToken string
}

func (m *mockPairing) SetPIN(ctx context.Context, pin string) error { return nil }
func (m *mockPairing) Pair(ctx context.Context, name, pin string) (string, models.Client, error) {
	m.lastName = name
	m.lastPIN = pin
	return m.token, m.client, m.pairErr
}
func (m *mockPairing) ParseToken(ctx context.Context, token string) (string, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}
func (m *mockPairing) Unpair(ctx context.Context, id string) error { return nil }
func (m *mockPairing) Clients(ctx context.Context) ([]models.Client, error) {
	return []models.Client{m.client}, nil
}

type mockHouse struct {
	fans    []models.FanStatus
	status  models.FanStatus
	err     error
	report  house.ScanReport
	scanErr error
	broker  *events.Broker[models.Event]

	lastMAC   string
	lastLevel int
	lastHours int
	lastName  string
	cancelled bool
}

func (m *mockHouse) Fans() []models.FanStatus { return m.fans }
func (m *mockHouse) Fan(mac string) (models.FanStatus, error) {
	m.lastMAC = mac
	return m.status, m.err
}
func (m *mockHouse) SetSpeed(ctx context.Context, mac string, level int) (models.FanStatus, error) {
	m.lastMAC, m.lastLevel = mac, level
	return m.status, m.err
}
func (m *mockHouse) SetTimer(ctx context.Context, mac string, hours int) (models.FanStatus, error) {
	m.lastMAC, m.lastHours = mac, hours
	return m.status, m.err
}
func (m *mockHouse) Refresh(ctx context.Context, mac string) (models.FanStatus, error) {
	m.lastMAC = mac
	return m.status, m.err
}
func (m *mockHouse) Rename(ctx context.Context, mac, name string) (models.FanStatus, error) {
	m.lastMAC, m.lastName = mac, name
	return m.status, m.err
}
func (m *mockHouse) Scan(ctx context.Context) (house.ScanReport, error) { return m.report, m.scanErr }
func (m *mockHouse) CancelScan() bool                                     { return m.cancelled }
func (m *mockHouse) Subscribe() *events.Subscription[models.Event] {
	if m.broker == nil {
		m.broker = events.NewBroker[models.Event](8)
	}
	return m.broker.Subscribe()
}

type mockAlerts struct {
	cfg     models.ThresholdConfig
	err     error
	saveErr error
	status  service.AlertStatus

	saved *models.ThresholdConfig
}

func (m *mockAlerts) Thresholds(ctx context.Context) (models.ThresholdConfig, error) {
	return m.cfg, m.err
}
func (m *mockAlerts) SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) (models.ThresholdConfig, error) {
	if m.saveErr != nil {
		return models.ThresholdConfig{}, m.saveErr
	}
	m.saved = &cfg
	return cfg, nil
}
func (m *mockAlerts) AlertStatus(now time.Time) service.AlertStatus { return m.status }
func (m *mockAlerts) Check(ctx context.Context) (threshold.Outcome, error) {
	return threshold.Outcome{State: m.status.State}, nil
}

type mockEventLog struct {
	resp     []models.LogEntry
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	lastMAC  string
	calls    int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.LogEntry, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastMAC = f.MAC
	return m.resp, m.err
}

type mockLifecycle struct {
	phase service.Phase
	err   error
	calls int
}

func (m *mockLifecycle) Transition(ctx context.Context, p service.Phase) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.phase = p
	return nil
}
func (m *mockLifecycle) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
func (m *mockLifecycle) Phase() service.Phase { return m.phase }
func (m *mockLifecycle) LifecycleStatus() service.LifecycleStatus {
	return service.LifecycleStatus{Phase: m.phase}
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// serve runs one request through r. An empty token sends no Authorization header.
func serve(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
