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

// PexelsProvider searches Pexels for stock photos matching a query.
type PexelsProvider struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cacheTTL time.Duration
}

// NewPexelsProvider creates the second stock-photo adapter.
// An empty apiKey disables the adapter without any network activity.
func NewPexelsProvider(apiKey, baseURL string, timeout, cacheTTL time.Duration) *PexelsProvider {
	return &PexelsProvider{
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   newHTTPClient(timeout),
		limiter:  rate.NewLimiter(rate.Limit(2), 4),
		cacheTTL: cacheTTL,
	}
}

func (p *PexelsProvider) Name() string { return "Pexels" }

// FetchImages returns up to maxResults normalized image records.
func (p *PexelsProvider) FetchImages(ctx context.Context, query string, maxResults int) []models.ImageRecord {
	if p.apiKey == "" {
		slog.Debug("pexels adapter skipped: PEXELS_API_KEY not set")
		return nil
	}

	if cached, found := cachedImages(p.Name(), query); found {
		return cached
	}

	images, err := p.fetch(ctx, query, maxResults)
	if err != nil {
		log.Printf("❌ [PEXELS] Fetch failed for '%s': %v", query, err)
		return nil
	}

	if len(images) > 0 {
		cacheImages(p.Name(), query, images, p.cacheTTL)
	}
	log.Printf("🖼️ [PEXELS] Found %d images for '%s'", len(images), query)
	return images
}

func (p *PexelsProvider) fetch(ctx context.Context, query string, maxResults int) ([]models.ImageRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/search?query=%s&per_page=%d",
		p.baseURL, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Photos []struct {
			Src struct {
				Medium string `json:"medium"`
			} `json:"src"`
			Alt          string `json:"alt"`
			Photographer string `json:"photographer"`
		} `json:"photos"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	images := make([]models.ImageRecord, 0, len(payload.Photos))
	for _, photo := range payload.Photos {
		if len(images) >= maxResults {
			break
		}
		images = append(images, models.ImageRecord{
			URL:          photo.Src.Medium,
			Description:  photo.Alt,
			Photographer: photo.Photographer,
			Source:       "Pexels",
			Type:         models.ImageTypeStock,
		})
	}
	return images, nil
}
