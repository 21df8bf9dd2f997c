package services

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ResearchTracker tracks in-flight aggregation runs for graceful shutdown.
// On shutdown, it stops accepting new runs and waits for active ones to
// complete.
type ResearchTracker struct {
	wg       sync.WaitGroup
	mu       sync.RWMutex
	inFlight int64
	draining bool
}

// NewResearchTracker creates a new research tracker.
func NewResearchTracker() *ResearchTracker {
	return &ResearchTracker{}
}

// Acquire registers a new run. Returns false if the server is draining and
// new research requests should be rejected.
func (t *ResearchTracker) Acquire() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.draining {
		return false
	}
	t.wg.Add(1)
	atomic.AddInt64(&t.inFlight, 1)
	return true
}

// Release marks a run as finished.
func (t *ResearchTracker) Release() {
	atomic.AddInt64(&t.inFlight, -1)
	t.wg.Done()
}

// InFlight returns the number of active aggregation runs.
func (t *ResearchTracker) InFlight() int {
	return int(atomic.LoadInt64(&t.inFlight))
}

// Drain stops accepting new runs and waits up to timeout for active ones to
// complete. Returns true if everything finished, false on timeout.
func (t *ResearchTracker) Drain(timeout time.Duration) bool {
	t.mu.Lock()
	t.draining = true
	t.mu.Unlock()

	log.Printf("🔄 [TRACKER] Draining active research runs (timeout: %s)...", timeout)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("✅ [TRACKER] All active research runs completed")
		return true
	case <-time.After(timeout):
		log.Println("⚠️ [TRACKER] Drain timeout reached, some runs may be interrupted")
		return false
	}
}

// IsDraining returns true if the tracker is in drain mode.
func (t *ResearchTracker) IsDraining() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.draining
}
