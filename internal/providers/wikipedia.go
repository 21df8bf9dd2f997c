package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"deepresearch/internal/models"
)

// WikipediaProvider fetches a single encyclopedic summary for the query term.
// It needs no credential and returns at most one record.
type WikipediaProvider struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cacheTTL time.Duration
}

// NewWikipediaProvider creates the reference lookup adapter.
func NewWikipediaProvider(baseURL string, timeout, cacheTTL time.Duration) *WikipediaProvider {
	return &WikipediaProvider{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   newHTTPClient(timeout),
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		cacheTTL: cacheTTL,
	}
}

func (p *WikipediaProvider) Name() string     { return "Wikipedia" }
func (p *WikipediaProvider) Category() string { return models.SourceTypeReference }

// FetchSources returns zero or one reference record. maxResults is accepted
// for interface uniformity; the REST summary endpoint yields a single page.
func (p *WikipediaProvider) FetchSources(ctx context.Context, query string, maxResults int) []models.SourceRecord {
	if cached, found := cachedSources(p.Name(), query); found {
		return cached
	}

	record, err := p.fetch(ctx, query)
	if err != nil {
		log.Printf("❌ [WIKIPEDIA] Fetch failed for '%s': %v", query, err)
		return nil
	}
	if record == nil {
		return nil
	}

	records := []models.SourceRecord{*record}
	cacheSources(p.Name(), query, records, p.cacheTTL)
	log.Printf("📖 [WIKIPEDIA] Found summary for '%s'", query)
	return records
}

func (p *WikipediaProvider) fetch(ctx context.Context, query string) (*models.SourceRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", p.baseURL, url.PathEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Unknown terms come back 404: a valid, empty result rather than an error.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	if payload.Extract == "" {
		return nil, nil
	}

	return &models.SourceRecord{
		Title:   payload.Title,
		Summary: payload.Extract,
		URL:     payload.ContentURLs.Desktop.Page,
		Source:  "Wikipedia",
		Type:    models.SourceTypeReference,
	}, nil
}
