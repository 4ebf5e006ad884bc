package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"airspace_fan/internal/models"
)

func TestEventLog_List_NormalizesFilter(t *testing.T) {
	repo := &fakeLogRepo{entries: []models.LogEntry{{EntryID: "e1", Type: models.LogSpeed}}}
	svc := NewEventLogService(repo)

	loc := time.FixedZone("UTC+5", 5*60*60)
	from := time.Date(2025, 7, 1, 10, 0, 0, 0, loc)
	to := from.Add(time.Hour)

	got, err := svc.List(context.Background(), LogFilter{From: from, To: to, Type: " speed ", MAC: " 60:CB:FB:00:00:01 "})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EntryID != "e1" {
		t.Fatalf("unexpected entries %+v", got)
	}
	if repo.filter.From.Location() != time.UTC || !repo.filter.From.Equal(from) {
		t.Errorf("from not normalized to UTC: %v", repo.filter.From)
	}
	if !repo.filter.To.Equal(to) {
		t.Errorf("to changed: %v", repo.filter.To)
	}
	if repo.filter.Type != "SPEED" {
		t.Errorf("expected type SPEED, got %q", repo.filter.Type)
	}
	if repo.filter.MAC != "60:cb:fb:00:00:01" {
		t.Errorf("expected lowercased mac, got %q", repo.filter.MAC)
	}
}

func TestEventLog_List_ZeroTimesStayZero(t *testing.T) {
	repo := &fakeLogRepo{}
	svc := NewEventLogService(repo)

	if _, err := svc.List(context.Background(), LogFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !repo.filter.From.IsZero() || !repo.filter.To.IsZero() {
		t.Fatalf("expected zero bounds, got %v %v", repo.filter.From, repo.filter.To)
	}
}

func TestEventLog_List_InvalidRange(t *testing.T) {
	repo := &fakeLogRepo{}
	svc := NewEventLogService(repo)

	now := time.Now()
	_, err := svc.List(context.Background(), LogFilter{From: now, To: now.Add(-time.Minute)})
	if !IsInvalidFilter(err) {
		t.Fatalf("expected invalid range error, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("repo should not be called, got %d calls", repo.calls)
	}
}

func TestEventLog_List_PropagatesRepoError(t *testing.T) {
	boom := errors.New("db down")
	svc := NewEventLogService(&fakeLogRepo{err: boom})
	if _, err := svc.List(context.Background(), LogFilter{}); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}
