package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"deepresearch/internal/models"
)

const redisSessionPrefix = "research:session:"

// RedisSessionStore keeps sessions in Redis so several replicas can share
// them and expiry is handled natively by the key TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration

	// Serializes read-modify-write transitions within this process. The
	// per-session single-writer discipline makes cross-process races a
	// non-issue for the aggregation path.
	mu sync.Mutex
}

// NewRedisSessionStore connects to Redis and verifies the connection.
func NewRedisSessionStore(redisURL string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis session store connected")
	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

// Create allocates a new pending session key.
func (s *RedisSessionStore) Create(query string, options map[string]interface{}) (*models.ResearchSession, error) {
	session := &models.ResearchSession{
		ID:        uuid.NewString(),
		Query:     query,
		Options:   options,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.write(session, s.ttl); err != nil {
		return nil, err
	}
	return session, nil
}

// MarkRunning transitions a pending session to running.
func (s *RedisSessionStore) MarkRunning(id string) error {
	return s.mutate(id, func(session *models.ResearchSession) {
		if session.Status == models.StatusPending {
			session.Status = models.StatusRunning
		}
	})
}

// Get loads one session by ID.
func (s *RedisSessionStore) Get(id string) (*models.ResearchSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	payload, err := s.client.Get(ctx, redisSessionPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.ResearchSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// List scans all session keys and returns summaries, newest first.
func (s *RedisSessionStore) List() ([]models.SessionSummary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summaries := make([]models.SessionSummary, 0)
	iter := s.client.Scan(ctx, 0, redisSessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue // key expired between SCAN and GET
		}
		var session models.ResearchSession
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		summaries = append(summaries, session.Summary())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// Complete performs the terminal completed transition.
func (s *RedisSessionStore) Complete(id string, result *models.AggregateResult) error {
	return s.mutate(id, func(session *models.ResearchSession) {
		if session.Status.Terminal() {
			return
		}
		now := time.Now().UTC()
		session.Status = models.StatusCompleted
		session.Progress = 100
		session.Result = result
		session.CompletedAt = &now
	})
}

// Fail performs the terminal failed transition.
func (s *RedisSessionStore) Fail(id string, message string) error {
	return s.mutate(id, func(session *models.ResearchSession) {
		if session.Status.Terminal() {
			return
		}
		now := time.Now().UTC()
		session.Status = models.StatusFailed
		session.Error = message
		session.CompletedAt = &now
	})
}

// DeleteExpired is a no-op: Redis expires session keys natively via TTL.
func (s *RedisSessionStore) DeleteExpired(maxAge time.Duration) (int, error) {
	return 0, nil
}

// Close closes the Redis client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func (s *RedisSessionStore) mutate(id string, apply func(*models.ResearchSession)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.Get(id)
	if err != nil {
		return err
	}
	apply(session)
	return s.write(session, redis.KeepTTL)
}

func (s *RedisSessionStore) write(session *models.ResearchSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, redisSessionPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
