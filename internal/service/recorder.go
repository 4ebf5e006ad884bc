package service

import (
	"context"
	"fmt"

	"airspace_fan/internal/house"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/notify"
	"airspace_fan/internal/repository"
)

// Recorder copies fault, alert and scan events from the registry's broker into the audit log.
type Recorder struct {
	registry *house.Registry
	logRepo  repository.LogRepo
	log      *logger.Logger
}

func NewRecorder(r *house.Registry, logRepo repository.LogRepo, log *logger.Logger) *Recorder {
	return &Recorder{registry: r, logRepo: logRepo, log: logger.OrNop(log)}
}

// Run consumes events until ctx is done. Events dropped by the broker are not recorded.
func (rec *Recorder) Run(ctx context.Context) {
	sub := rec.registry.Events().Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			entry, ok := rec.entry(ev)
			if !ok {
				continue
			}
			if err := rec.logRepo.Append(ctx, entry); err != nil && ctx.Err() == nil {
				rec.log.Warnw("recorder_append_failed", "kind", ev.Kind, "err", err)
			}
		}
	}
}

func (rec *Recorder) entry(ev models.Event) (models.LogEntry, bool) {
	e := models.LogEntry{EntryID: ev.ID, OccurredAt: ev.At.UTC()}
	switch ev.Kind {
	case models.EventFanFault:
		if ev.Fan == nil {
			return e, false
		}
		e.Type = models.LogFault
		e.MACAddr = ev.Fan.MACAddr
		e.Description = fmt.Sprintf("%s stopped responding", ev.Fan.Name)
		e.Metadata = map[string]any{"failures": ev.Fan.Failures, "addr": ev.Fan.Address.String()}
	case models.EventAlertChanged:
		if ev.Alert == nil {
			return e, false
		}
		subject, _ := notify.Message(*ev.Alert)
		e.Type = models.LogAlert
		e.Description = subject
		e.Metadata = map[string]any{"from": ev.Alert.From, "to": ev.Alert.To, "fans_running": ev.Alert.FansRunning}
	case models.EventScanFinished:
		report, ok := rec.registry.LastScan()
		if !ok {
			return e, false
		}
		e.Type = models.LogScan
		e.Description = fmt.Sprintf("scan found %d fans", len(report.Found))
		e.Metadata = map[string]any{
			"candidates": report.Candidates,
			"found":      report.Found,
			"retired":    report.Retired,
			"cancelled":  report.Cancelled,
		}
	default:
		return e, false
	}
	return e, true
}
