package providers

import (
	"context"
	"net/http"
	"time"

	"deepresearch/internal/models"
)

// SourceProvider is the contract every content adapter satisfies.
// FetchSources never returns an error: any failure (network, non-2xx, parse,
// missing credential) is absorbed inside the adapter and surfaced as an empty
// slice so one misbehaving provider cannot abort an aggregation run.
type SourceProvider interface {
	Name() string
	Category() string
	FetchSources(ctx context.Context, query string, maxResults int) []models.SourceRecord
}

// ImageProvider fetches normalized stock-photo records for a query.
// Same failure containment as SourceProvider.
type ImageProvider interface {
	Name() string
	FetchImages(ctx context.Context, query string, maxResults int) []models.ImageRecord
}

// Analyzer produces the summary/insights/trends block for a query.
// Implementations must never return an Analysis with an empty Summary.
type Analyzer interface {
	Analyze(ctx context.Context, query string) models.Analysis
}

// Visualizer generates one AI image for a topic, or nil on failure.
type Visualizer interface {
	Visualize(ctx context.Context, topic string) *models.ImageRecord
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
