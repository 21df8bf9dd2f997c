package jobs

import (
	"context"
	"log"
	"time"

	"deepresearch/internal/services"
)

// SessionCleanupJob deletes terminal research sessions older than maxAge.
// Without it the session store grows for the lifetime of the process.
type SessionCleanupJob struct {
	store    services.SessionStore
	interval time.Duration
	maxAge   time.Duration
	lastRun  time.Time
}

// NewSessionCleanupJob creates a session retention cleanup job.
// interval: how often to run (e.g. 1 hour)
// maxAge: sessions terminal for longer than this are deleted
func NewSessionCleanupJob(store services.SessionStore, interval, maxAge time.Duration) *SessionCleanupJob {
	return &SessionCleanupJob{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run deletes expired sessions.
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	j.lastRun = time.Now()

	removed, err := j.store.DeleteExpired(j.maxAge)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("🗑️  [SESSION-CLEANUP] Removed %d expired sessions (older than %v)", removed, j.maxAge)
	}
	return nil
}

// GetNextRunTime returns when the job should run next.
func (j *SessionCleanupJob) GetNextRunTime() time.Time {
	if j.lastRun.IsZero() {
		return time.Now().Add(j.interval)
	}
	return j.lastRun.Add(j.interval)
}
