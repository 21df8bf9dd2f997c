package models

import "time"

// SessionStatus is the lifecycle state of a research session.
// Transitions are monotonic: pending -> running -> completed | failed.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source type constants used on SourceRecord.Type.
const (
	SourceTypeAcademic  = "academic"
	SourceTypeNews      = "news"
	SourceTypeReference = "reference"
)

// Image type constants used on ImageRecord.Type.
const (
	ImageTypeStock       = "stock"
	ImageTypeAIGenerated = "ai_generated"
)

// SourceRecord is the normalized shape every content provider maps onto.
type SourceRecord struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Type        string `json:"type"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// ImageRecord is the normalized shape every image provider maps onto.
type ImageRecord struct {
	URL          string `json:"url"`
	Description  string `json:"description"`
	Photographer string `json:"photographer,omitempty"`
	Source       string `json:"source"`
	Type         string `json:"type"`
}

// Analysis is the output of the AI text-analysis adapter.
// Summary is guaranteed non-empty by the adapter's fallback path.
type Analysis struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
	Trends   []string `json:"trends"`
}

// SourceBreakdown holds per-category counts derived from the merged source slice.
// Total must always equal Academic + News + Reference and len(Sources).
type SourceBreakdown struct {
	Academic  int `json:"academic"`
	News      int `json:"news"`
	Reference int `json:"reference"`
	Total     int `json:"total"`
}

// AggregateResult is the assembled output of one research run.
// It is built once by the engine and never mutated afterwards.
type AggregateResult struct {
	Summary         string          `json:"summary"`
	Insights        []string        `json:"insights"`
	Trends          []string        `json:"trends"`
	Sources         []SourceRecord  `json:"sources"`
	Images          []ImageRecord   `json:"images"`
	SourceBreakdown SourceBreakdown `json:"sourceBreakdown"`
	AIGenerated     bool            `json:"aiGenerated"`
	Fallback        bool            `json:"fallback,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// ResearchSession tracks one user query from submission to terminal result.
type ResearchSession struct {
	ID          string                 `json:"id"`
	Query       string                 `json:"query"`
	Options     map[string]interface{} `json:"options,omitempty"`
	Status      SessionStatus          `json:"status"`
	Progress    int                    `json:"progress"`
	Result      *AggregateResult       `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// SessionSummary is the list-view projection of a session (no result payload).
type SessionSummary struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// Summary projects a session into its list-view shape.
func (s *ResearchSession) Summary() SessionSummary {
	return SessionSummary{
		ID:          s.ID,
		Query:       s.Query,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}

// CreateResearchRequest is the JSON body for POST /api/research.
type CreateResearchRequest struct {
	Query   string                 `json:"query"`
	Options map[string]interface{} `json:"options,omitempty"`
}
