package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"deepresearch/internal/models"
)

// ErrSessionNotFound is returned by Get for unknown session IDs.
var ErrSessionNotFound = errors.New("research session not found")

// SessionStore holds session state keyed by session ID. Each session is
// written by exactly one aggregation goroutine and read by arbitrarily many
// concurrent pollers; implementations must be safe under that pattern.
//
// Complete and Fail are first-writer-wins: calls against a session that is
// already terminal are silently ignored, which keeps polling idempotent.
type SessionStore interface {
	Create(query string, options map[string]interface{}) (*models.ResearchSession, error)
	MarkRunning(id string) error
	Get(id string) (*models.ResearchSession, error)
	List() ([]models.SessionSummary, error)
	Complete(id string, result *models.AggregateResult) error
	Fail(id string, message string) error
	DeleteExpired(maxAge time.Duration) (int, error)
	Close() error
}

// MemorySessionStore is the default in-process store: an RWMutex-guarded map.
// State is lost on restart; the SQLite and Redis stores cover durability.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.ResearchSession
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.ResearchSession),
	}
}

// Create allocates a new pending session and returns it.
func (s *MemorySessionStore) Create(query string, options map[string]interface{}) (*models.ResearchSession, error) {
	session := &models.ResearchSession{
		ID:        uuid.NewString(),
		Query:     query,
		Options:   options,
		Status:    models.StatusPending,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	snapshot := *session
	return &snapshot, nil
}

// MarkRunning transitions a pending session to running.
func (s *MemorySessionStore) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status != models.StatusPending {
		return nil
	}
	session.Status = models.StatusRunning
	return nil
}

// Get returns a snapshot of the session. Callers receive a copy so pollers
// can never mutate stored state.
func (s *MemorySessionStore) Get(id string) (*models.ResearchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	snapshot := *session
	return &snapshot, nil
}

// List returns summaries of all sessions, newest first.
func (s *MemorySessionStore) List() ([]models.SessionSummary, error) {
	s.mu.RLock()
	summaries := make([]models.SessionSummary, 0, len(s.sessions))
	for _, session := range s.sessions {
		summaries = append(summaries, session.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Complete performs the terminal completed transition.
func (s *MemorySessionStore) Complete(id string, result *models.AggregateResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	session.Status = models.StatusCompleted
	session.Progress = 100
	session.Result = result
	session.CompletedAt = &now
	return nil
}

// Fail performs the terminal failed transition.
func (s *MemorySessionStore) Fail(id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	session.Status = models.StatusFailed
	session.Error = message
	session.CompletedAt = &now
	return nil
}

// DeleteExpired removes terminal sessions whose terminal transition happened
// more than maxAge ago. Returns the number of sessions removed.
func (s *MemorySessionStore) DeleteExpired(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.Status.Terminal() && session.CompletedAt != nil && session.CompletedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Close releases store resources. The memory store has none.
func (s *MemorySessionStore) Close() error {
	return nil
}
