package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"deepresearch/internal/models"
)

// NewsProvider queries NewsAPI for current articles about a topic.
type NewsProvider struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cacheTTL time.Duration
}

// NewNewsProvider creates the news search adapter.
// An empty apiKey disables the adapter: it short-circuits to empty output
// without issuing any network call.
func NewNewsProvider(apiKey, baseURL string, timeout, cacheTTL time.Duration) *NewsProvider {
	return &NewsProvider{
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   newHTTPClient(timeout),
		limiter:  rate.NewLimiter(rate.Limit(2), 4),
		cacheTTL: cacheTTL,
	}
}

func (p *NewsProvider) Name() string     { return "NewsAPI" }
func (p *NewsProvider) Category() string { return models.SourceTypeNews }

// FetchSources returns up to maxResults normalized article records.
func (p *NewsProvider) FetchSources(ctx context.Context, query string, maxResults int) []models.SourceRecord {
	if p.apiKey == "" {
		slog.Debug("news adapter skipped: NEWS_API_KEY not set")
		return nil
	}

	if cached, found := cachedSources(p.Name(), query); found {
		return cached
	}

	articles, err := p.fetch(ctx, query, maxResults)
	if err != nil {
		log.Printf("❌ [NEWSAPI] Fetch failed for '%s': %v", query, err)
		return nil
	}

	if len(articles) > 0 {
		cacheSources(p.Name(), query, articles, p.cacheTTL)
	}
	log.Printf("📰 [NEWSAPI] Found %d articles for '%s'", len(articles), query)
	return articles
}

func (p *NewsProvider) fetch(ctx context.Context, query string, maxResults int) ([]models.SourceRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v2/everything?q=%s&pageSize=%d&sortBy=relevancy&apiKey=%s",
		p.baseURL, url.QueryEscape(query), maxResults, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Articles []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse articles: %w", err)
	}

	records := make([]models.SourceRecord, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if len(records) >= maxResults {
			break
		}
		summary := article.Description
		if summary == "" && article.Content != "" {
			summary = truncateSummary(article.Content, summaryCharBudget)
		}
		records = append(records, models.SourceRecord{
			Title:       article.Title,
			Summary:     summary,
			URL:         article.URL,
			Source:      article.Source.Name,
			Type:        models.SourceTypeNews,
			PublishedAt: article.PublishedAt,
		})
	}
	return records, nil
}
