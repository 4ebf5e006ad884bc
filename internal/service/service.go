package service

import (
	"context"
	"time"

	"airspace_fan/internal/events"
	"airspace_fan/internal/house"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/repository"
	"airspace_fan/internal/scheduler"
	"airspace_fan/internal/threshold"
)

// Pairing issues and checks bearer tokens for API clients.
type Pairing interface {
	SetPIN(ctx context.Context, pin string) error
	Pair(ctx context.Context, name, pin string) (string, models.Client, error)
	ParseToken(ctx context.Context, accessToken string) (string, error)
	Unpair(ctx context.Context, clientID string) error
	Clients(ctx context.Context) ([]models.Client, error)
}

// House exposes the fans and the commands that can be sent to them.
type House interface {
	Fans() []models.FanStatus
	Fan(mac string) (models.FanStatus, error)
	SetSpeed(ctx context.Context, mac string, level int) (models.FanStatus, error)
	SetTimer(ctx context.Context, mac string, hours int) (models.FanStatus, error)
	Refresh(ctx context.Context, mac string) (models.FanStatus, error)
	Rename(ctx context.Context, mac, name string) (models.FanStatus, error)
	Scan(ctx context.Context) (house.ScanReport, error)
	CancelScan() bool
	Subscribe() *events.Subscription[models.Event]
}

// Alerts exposes the outdoor temperature bounds and the current alert.
type Alerts interface {
	Thresholds(ctx context.Context) (models.ThresholdConfig, error)
	SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) (models.ThresholdConfig, error)
	AlertStatus(now time.Time) AlertStatus
	Check(ctx context.Context) (threshold.Outcome, error)
}

// EventLog exposes the append-only audit log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.LogEntry, error)
}

// Lifecycle switches between the foreground loop and background windows.
type Lifecycle interface {
	Run(ctx context.Context) error
	Transition(ctx context.Context, phase Phase) error
	Phase() Phase
	LifecycleStatus() LifecycleStatus
}

type Service struct {
	House
	Alerts
	EventLog
	Lifecycle
	Pairing
}

// Core holds the domain objects the services are built on.
type Core struct {
	Registry   *house.Registry
	Monitor    *threshold.Monitor
	Scheduler  *scheduler.Scheduler
	SigningKey string
	TokenTTL   time.Duration
	Tick       time.Duration
	Log        *logger.Logger
}

// NewService wires the repository layer and the domain core into concrete services.
func NewService(repos *repository.Repository, core Core) *Service {
	log := logger.OrNop(core.Log)
	return &Service{
		House:     NewHouseService(core.Registry, repos.Prefs, repos.Log, log.Named("house")),
		Alerts:    NewAlertService(core.Monitor, repos.Prefs),
		EventLog:  NewEventLogService(repos.Log),
		Lifecycle: NewLifecycleService(core.Registry, core.Monitor, core.Scheduler, core.Tick, log.Named("lifecycle")),
		Pairing:   NewPairingService(repos.Prefs, repos.Clients, core.SigningKey, core.TokenTTL),
	}
}
