package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"deepresearch/internal/logging"
	"deepresearch/internal/models"
)

// ErrEmptyQuery is returned when a research request carries no query text.
var ErrEmptyQuery = errors.New("query is required")

// ErrDraining is returned when the server is shutting down and no new
// research runs are accepted.
var ErrDraining = errors.New("server is shutting down")

// ResearchService owns the session lifecycle: it creates sessions, spawns the
// detached aggregation run for each one, and transitions the session to its
// terminal state when the run settles. The HTTP layer never waits on a run.
type ResearchService struct {
	store   SessionStore
	engine  *Engine
	tracker *ResearchTracker
	timeout time.Duration
}

// NewResearchService creates the research orchestration service.
func NewResearchService(store SessionStore, engine *Engine, tracker *ResearchTracker, timeout time.Duration) *ResearchService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ResearchService{
		store:   store,
		engine:  engine,
		tracker: tracker,
		timeout: timeout,
	}
}

// StartResearch validates the query, creates a session, and launches the
// aggregation in the background. It returns as soon as the session exists;
// callers poll Get until the session reaches a terminal state.
func (s *ResearchService) StartResearch(query string, options map[string]interface{}) (*models.ResearchSession, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if !s.tracker.Acquire() {
		return nil, ErrDraining
	}

	session, err := s.store.Create(query, options)
	if err != nil {
		s.tracker.Release()
		return nil, err
	}

	RecordSessionCreated()
	go s.run(session.ID, query)

	return session, nil
}

// Get returns one session by ID.
func (s *ResearchService) Get(id string) (*models.ResearchSession, error) {
	return s.store.Get(id)
}

// List returns summaries of all sessions, newest first.
func (s *ResearchService) List() ([]models.SessionSummary, error) {
	return s.store.List()
}

// ActiveRuns returns the number of aggregation runs currently in flight.
func (s *ResearchService) ActiveRuns() int {
	return s.tracker.InFlight()
}

// run is the single writer for its session: it marks the session running,
// executes the engine under the overall research timeout, and performs
// exactly one terminal transition.
func (s *ResearchService) run(id, query string) {
	defer s.tracker.Release()

	logger := logging.WithSession(id, query)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.MarkRunning(id); err != nil {
		logger.Error("failed to mark session running", "error", err)
	}

	result := s.engine.Run(ctx, query)

	if err := s.store.Complete(id, result); err != nil {
		logger.Error("failed to store research result", "error", err)
		if failErr := s.store.Fail(id, "failed to store research result"); failErr != nil {
			logger.Error("failed to fail session", "error", failErr)
		}
		RecordResearchOutcome("failed")
		return
	}

	outcome := "completed"
	if result.Fallback {
		outcome = "fallback"
	}
	RecordResearchOutcome(outcome)
	RecordResearchDuration(time.Since(start))

	logger.Info("research completed",
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"sources", result.SourceBreakdown.Total,
		"images", len(result.Images),
		"fallback", result.Fallback,
	)
}
