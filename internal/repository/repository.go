package repository

import (
	"context"
	"database/sql"
	"time"

	"airspace_fan/internal/models"
)

// Prefs stores user preferences: threshold bounds, fan display names and settings.
type Prefs interface {
	Thresholds(ctx context.Context) (models.ThresholdConfig, error)
	SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) error
	FanName(ctx context.Context, mac string) (string, error)
	SetFanName(ctx context.Context, mac, name string) error
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// LogRepo is the audit log of commands, faults and alerts.
type LogRepo interface {
	Append(ctx context.Context, e models.LogEntry) error
	List(ctx context.Context, f LogFilter) ([]models.LogEntry, error)
}

// Clients stores paired API clients.
type Clients interface {
	Create(ctx context.Context, c models.Client) error
	Get(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
	Delete(ctx context.Context, id string) error
}

// LogFilter narrows LogRepo.List. Zero fields match everything.
type LogFilter struct {
	From time.Time
	To   time.Time
	Type string
	MAC  string
}

type Repository struct {
	Prefs   Prefs
	Log     LogRepo
	Clients Clients
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Prefs:   NewPrefsSQLite(db),
		Log:     NewLogSQLite(db),
		Clients: NewClientSQLite(db),
	}
}
