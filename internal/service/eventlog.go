package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"airspace_fan/internal/models"
	"airspace_fan/internal/repository"
)

// LogFilter supports history filtering by time range, type and fan.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "SPEED", "TIMER", "FAULT", "ALERT", "SCAN"
	MAC  string
}

type EventLogService struct {
	logRepo repository.LogRepo
}

func NewEventLogService(logRepo repository.LogRepo) *EventLogService {
	return &EventLogService{logRepo: logRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (repository.LogFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.LogFilter{}, errInvalidTimeRange
	}

	return repository.LogFilter{
		From: from,
		To:   to,
		Type: strings.TrimSpace(strings.ToUpper(f.Type)),
		MAC:  strings.TrimSpace(strings.ToLower(f.MAC)),
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.LogEntry, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.logRepo.List(ctx, rf)
}

// IsInvalidFilter reports whether err came from filter validation.
func IsInvalidFilter(err error) bool {
	return errors.Is(err, errInvalidTimeRange)
}
