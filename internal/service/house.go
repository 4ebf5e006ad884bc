package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"airspace_fan/internal/events"
	"airspace_fan/internal/house"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/repository"
)

// HouseService routes user commands to the registry and records them in the audit log.
type HouseService struct {
	registry *house.Registry
	prefs    repository.Prefs
	logRepo  repository.LogRepo
	log      *logger.Logger
}

func NewHouseService(r *house.Registry, prefs repository.Prefs, logRepo repository.LogRepo, log *logger.Logger) *HouseService {
	return &HouseService{registry: r, prefs: prefs, logRepo: logRepo, log: logger.OrNop(log)}
}

// canonicalMAC parses any accepted MAC spelling into the registry's form.
func canonicalMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return "", fmt.Errorf("%w: %q", house.ErrUnknownDevice, mac)
	}
	return hw.String(), nil
}

func (s *HouseService) Fans() []models.FanStatus {
	return s.registry.Fans()
}

func (s *HouseService) Fan(mac string) (models.FanStatus, error) {
	mac, err := canonicalMAC(mac)
	if err != nil {
		return models.FanStatus{}, err
	}
	switch sel := s.registry.Select(mac).(type) {
	case house.Device:
		return sel.Controller.Status(), nil
	default:
		return models.FanStatus{}, fmt.Errorf("%w: %s", house.ErrUnknownDevice, mac)
	}
}

func (s *HouseService) SetSpeed(ctx context.Context, mac string, level int) (models.FanStatus, error) {
	mac, err := canonicalMAC(mac)
	if err != nil {
		return models.FanStatus{}, err
	}
	st, err := s.registry.SetSpeed(ctx, mac, level)
	s.audit(ctx, models.LogSpeed, mac, fmt.Sprintf("set speed to %d", level), map[string]any{"level": level}, err)
	return st, err
}

func (s *HouseService) SetTimer(ctx context.Context, mac string, hours int) (models.FanStatus, error) {
	mac, err := canonicalMAC(mac)
	if err != nil {
		return models.FanStatus{}, err
	}
	st, err := s.registry.SetTimer(ctx, mac, hours)
	s.audit(ctx, models.LogTimer, mac, fmt.Sprintf("set timer to %dh", hours), map[string]any{"hours": hours}, err)
	return st, err
}

func (s *HouseService) Refresh(ctx context.Context, mac string) (models.FanStatus, error) {
	mac, err := canonicalMAC(mac)
	if err != nil {
		return models.FanStatus{}, err
	}
	return s.registry.Refresh(ctx, mac)
}

// Rename stores the display name and applies it to the live controller.
// An empty name restores the model name.
func (s *HouseService) Rename(ctx context.Context, mac, name string) (models.FanStatus, error) {
	mac, err := canonicalMAC(mac)
	if err != nil {
		return models.FanStatus{}, err
	}
	name = strings.TrimSpace(name)
	if _, err := s.Fan(mac); err != nil {
		return models.FanStatus{}, err
	}
	if err := s.prefs.SetFanName(ctx, mac, name); err != nil {
		return models.FanStatus{}, fmt.Errorf("save fan name: %w", err)
	}
	if err := s.registry.Rename(mac, name); err != nil {
		return models.FanStatus{}, err
	}
	return s.Fan(mac)
}

func (s *HouseService) Scan(ctx context.Context) (house.ScanReport, error) {
	return s.registry.Scan(ctx)
}

func (s *HouseService) CancelScan() bool {
	return s.registry.CancelScan()
}

func (s *HouseService) Subscribe() *events.Subscription[models.Event] {
	return s.registry.Events().Subscribe()
}

// audit appends a command record. Failures to write are logged, never returned.
func (s *HouseService) audit(ctx context.Context, typ, mac, desc string, meta map[string]any, cmdErr error) {
	if cmdErr != nil {
		if errors.Is(cmdErr, house.ErrUnknownDevice) {
			return
		}
		meta["error"] = cmdErr.Error()
		desc += " failed"
	}
	entry := models.LogEntry{
		EntryID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		MACAddr:     mac,
		Description: desc,
		Metadata:    meta,
	}
	if err := s.logRepo.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warnw("audit_append_failed", "type", typ, "mac", mac, "err", err)
	}
}
