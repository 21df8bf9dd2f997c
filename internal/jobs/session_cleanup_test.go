package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepresearch/internal/models"
)

type recordingStore struct {
	maxAge  time.Duration
	calls   int
	removed int
	err     error
}

func (s *recordingStore) Create(query string, options map[string]interface{}) (*models.ResearchSession, error) {
	return nil, nil
}
func (s *recordingStore) MarkRunning(id string) error { return nil }
func (s *recordingStore) Get(id string) (*models.ResearchSession, error) { return nil, nil }
func (s *recordingStore) List() ([]models.SessionSummary, error) { return nil, nil }
func (s *recordingStore) Complete(id string, r *models.AggregateResult) error { return nil }
func (s *recordingStore) Fail(id string, message string) error { return nil }
func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) DeleteExpired(maxAge time.Duration) (int, error) {
	s.calls++
	s.maxAge = maxAge
	return s.removed, s.err
}

func TestSessionCleanupRun(t *testing.T) {
	store := &recordingStore{removed: 3}
	job := NewSessionCleanupJob(store, time.Hour, 24*time.Hour)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", store.calls)
	}
	if store.maxAge != 24*time.Hour {
		t.Errorf("retention passed through = %v, want 24h", store.maxAge)
	}
}

func TestSessionCleanupPropagatesError(t *testing.T) {
	wantErr := errors.New("store unavailable")
	store := &recordingStore{err: wantErr}
	job := NewSessionCleanupJob(store, time.Hour, 24*time.Hour)

	if err := job.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Run error = %v, want %v", err, wantErr)
	}
}

func TestSessionCleanupNextRunTime(t *testing.T) {
	job := NewSessionCleanupJob(&recordingStore{}, time.Hour, 24*time.Hour)

	first := job.GetNextRunTime()
	if until := time.Until(first); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("first run should be about one interval out, got %v", until)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	next := job.GetNextRunTime()
	if until := time.Until(next); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("next run should be one interval after the last run, got %v", until)
	}
}

func TestSchedulerRunNow(t *testing.T) {
	store := &recordingStore{}
	scheduler := NewJobScheduler()
	scheduler.Register("session-cleanup", NewSessionCleanupJob(store, time.Hour, 24*time.Hour))

	if err := scheduler.RunNow("session-cleanup"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", store.calls)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	scheduler := NewJobScheduler()
	scheduler.Register("session-cleanup", NewSessionCleanupJob(&recordingStore{}, time.Hour, 24*time.Hour))
	scheduler.Start()

	scheduler.Stop()
	scheduler.Stop()
}
