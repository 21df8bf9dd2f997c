package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deepresearch/internal/database"
	"deepresearch/internal/models"
)

// SQLiteSessionStore persists sessions in SQLite so they survive restarts.
type SQLiteSessionStore struct {
	db *database.DB
}

// NewSQLiteSessionStore opens the database at path and prepares the schema.
func NewSQLiteSessionStore(path string) (*SQLiteSessionStore, error) {
	db, err := database.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSessionStore{db: db}, nil
}

// Create allocates a new pending session row.
func (s *SQLiteSessionStore) Create(query string, options map[string]interface{}) (*models.ResearchSession, error) {
	session := &models.ResearchSession{
		ID:        uuid.NewString(),
		Query:     query,
		Options:   options,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	var optionsJSON []byte
	if len(options) > 0 {
		var err error
		optionsJSON, err = json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options: %w", err)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO research_sessions (id, query, options, status, progress, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, session.ID, session.Query, nullableString(string(optionsJSON)), string(session.Status),
		session.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return session, nil
}

// MarkRunning transitions a pending session to running.
func (s *SQLiteSessionStore) MarkRunning(id string) error {
	result, err := s.db.Exec(`
		UPDATE research_sessions SET status = ? WHERE id = ? AND status = ?
	`, string(models.StatusRunning), id, string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to mark session running: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		if !s.exists(id) {
			return ErrSessionNotFound
		}
	}
	return nil
}

// Get loads one session by ID.
func (s *SQLiteSessionStore) Get(id string) (*models.ResearchSession, error) {
	row := s.db.QueryRow(`
		SELECT id, query, options, status, progress, result, error, created_at, completed_at
		FROM research_sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// List returns summaries of all sessions, newest first.
func (s *SQLiteSessionStore) List() ([]models.SessionSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, query, status, created_at, completed_at
		FROM research_sessions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.SessionSummary, 0)
	for rows.Next() {
		var (
			summary     models.SessionSummary
			status      string
			createdAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&summary.ID, &summary.Query, &status, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summary.Status = models.SessionStatus(status)
		summary.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
				summary.CompletedAt = &t
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Complete performs the terminal completed transition. The status guard in
// the WHERE clause makes the first terminal writer win.
func (s *SQLiteSessionStore) Complete(id string, result *models.AggregateResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE research_sessions
		SET status = ?, progress = 100, result = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(models.StatusCompleted), string(resultJSON), time.Now().UTC().Format(time.RFC3339Nano),
		id, string(models.StatusPending), string(models.StatusRunning))
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 && !s.exists(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Fail performs the terminal failed transition.
func (s *SQLiteSessionStore) Fail(id string, message string) error {
	res, err := s.db.Exec(`
		UPDATE research_sessions
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(models.StatusFailed), message, time.Now().UTC().Format(time.RFC3339Nano),
		id, string(models.StatusPending), string(models.StatusRunning))
	if err != nil {
		return fmt.Errorf("failed to fail session: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 && !s.exists(id) {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes terminal sessions older than maxAge.
func (s *SQLiteSessionStore) DeleteExpired(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	res, err := s.db.Exec(`
		DELETE FROM research_sessions
		WHERE status IN (?, ?) AND completed_at IS NOT NULL AND completed_at < ?
	`, string(models.StatusCompleted), string(models.StatusFailed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(rows), nil
}

// Close closes the underlying database.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) exists(id string) bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM research_sessions WHERE id = ?`, id).Scan(&one)
	return err == nil
}

func scanSession(row *sql.Row) (*models.ResearchSession, error) {
	var (
		session     models.ResearchSession
		options     sql.NullString
		status      string
		result      sql.NullString
		errMsg      sql.NullString
		createdAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&session.ID, &session.Query, &options, &status, &session.Progress,
		&result, &errMsg, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session.Status = models.SessionStatus(status)
	session.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if options.Valid && options.String != "" {
		_ = json.Unmarshal([]byte(options.String), &session.Options)
	}
	if result.Valid && result.String != "" {
		var aggregate models.AggregateResult
		if err := json.Unmarshal([]byte(result.String), &aggregate); err == nil {
			session.Result = &aggregate
		}
	}
	if errMsg.Valid {
		session.Error = errMsg.String
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
			session.CompletedAt = &t
		}
	}
	return &session, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
