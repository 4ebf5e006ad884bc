package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"airspace_fan/internal/models"
)

// Defaults used until the user saves thresholds.
const (
	DefaultLowBound  = 55.0
	DefaultHighBound = 75.0
)

// DefaultThresholds is returned while no thresholds row exists.
var DefaultThresholds = models.ThresholdConfig{LowBound: DefaultLowBound, HighBound: DefaultHighBound}

type PrefsSQLite struct {
	db *sql.DB
}

func NewPrefsSQLite(db *sql.DB) *PrefsSQLite {
	return &PrefsSQLite{db: db}
}

var _ Prefs = (*PrefsSQLite)(nil)

const (
	thresholdsRowID = 1

	upsertThresholdsSQL = `
		INSERT INTO thresholds (id, low_f, high_f, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			low_f=excluded.low_f,
			high_f=excluded.high_f,
			enabled=excluded.enabled,
			updated_at=excluded.updated_at
	`
	selectThresholdsSQL = `SELECT low_f, high_f, enabled FROM thresholds WHERE id=?`

	upsertFanNameSQL = `
		INSERT INTO fan_names (mac, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(mac) DO UPDATE SET name=excluded.name, updated_at=excluded.updated_at
	`
	deleteFanNameSQL = `DELETE FROM fan_names WHERE mac=?`
	selectFanNameSQL = `SELECT name FROM fan_names WHERE mac=?`

	upsertSettingSQL = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`
	selectSettingSQL = `SELECT value FROM settings WHERE key=?`
)

// Thresholds returns the saved bounds, or DefaultThresholds when none are saved.
func (r *PrefsSQLite) Thresholds(ctx context.Context) (models.ThresholdConfig, error) {
	var cfg models.ThresholdConfig
	err := r.db.QueryRowContext(ctx, selectThresholdsSQL, thresholdsRowID).
		Scan(&cfg.LowBound, &cfg.HighBound, &cfg.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultThresholds, nil
		}
		return models.ThresholdConfig{}, fmt.Errorf("select thresholds: %w", err)
	}
	return cfg, nil
}

// SaveThresholds replaces the single thresholds row.
func (r *PrefsSQLite) SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) error {
	_, err := r.db.ExecContext(ctx, upsertThresholdsSQL,
		thresholdsRowID,
		cfg.LowBound,
		cfg.HighBound,
		cfg.Enabled,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}

// FanName returns the stored name for mac, or "" when none is stored.
func (r *PrefsSQLite) FanName(ctx context.Context, mac string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, selectFanNameSQL, normalizeMAC(mac)).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select fan name %q: %w", mac, err)
	}
	return name, nil
}

// SetFanName stores name for mac. An empty name removes it.
func (r *PrefsSQLite) SetFanName(ctx context.Context, mac, name string) error {
	mac = normalizeMAC(mac)
	name = strings.TrimSpace(name)

	var err error
	if name == "" {
		_, err = r.db.ExecContext(ctx, deleteFanNameSQL, mac)
	} else {
		_, err = r.db.ExecContext(ctx, upsertFanNameSQL, mac, name, time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("set fan name %q: %w", mac, err)
	}
	return nil
}

// Setting returns a stored value, or "" when the key is unset.
func (r *PrefsSQLite) Setting(ctx context.Context, key string) (string, error) {
	var v string
	if err := r.db.QueryRowContext(ctx, selectSettingSQL, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select setting %q: %w", key, err)
	}
	return v, nil
}

// SetSetting stores value under key.
func (r *PrefsSQLite) SetSetting(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, upsertSettingSQL, key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func normalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
