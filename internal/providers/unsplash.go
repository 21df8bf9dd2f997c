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

// UnsplashProvider searches Unsplash for stock photos matching a query.
type UnsplashProvider struct {
	accessKey string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	cacheTTL  time.Duration
}

// NewUnsplashProvider creates the first stock-photo adapter.
// An empty accessKey disables the adapter without any network activity.
func NewUnsplashProvider(accessKey, baseURL string, timeout, cacheTTL time.Duration) *UnsplashProvider {
	return &UnsplashProvider{
		accessKey: accessKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    newHTTPClient(timeout),
		limiter:   rate.NewLimiter(rate.Limit(2), 4),
		cacheTTL:  cacheTTL,
	}
}

func (p *UnsplashProvider) Name() string { return "Unsplash" }

// FetchImages returns up to maxResults normalized image records.
func (p *UnsplashProvider) FetchImages(ctx context.Context, query string, maxResults int) []models.ImageRecord {
	if p.accessKey == "" {
		slog.Debug("unsplash adapter skipped: UNSPLASH_ACCESS_KEY not set")
		return nil
	}

	if cached, found := cachedImages(p.Name(), query); found {
		return cached
	}

	images, err := p.fetch(ctx, query, maxResults)
	if err != nil {
		log.Printf("❌ [UNSPLASH] Fetch failed for '%s': %v", query, err)
		return nil
	}

	if len(images) > 0 {
		cacheImages(p.Name(), query, images, p.cacheTTL)
	}
	log.Printf("🖼️ [UNSPLASH] Found %d images for '%s'", len(images), query)
	return images
}

func (p *UnsplashProvider) fetch(ctx context.Context, query string, maxResults int) ([]models.ImageRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/search/photos?query=%s&per_page=%d&client_id=%s",
		p.baseURL, url.QueryEscape(query), maxResults, p.accessKey)

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
		return nil, fmt.Errorf("unsplash returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Results []struct {
			URLs struct {
				Small string `json:"small"`
			} `json:"urls"`
			Description    string `json:"description"`
			AltDescription string `json:"alt_description"`
			User           struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	images := make([]models.ImageRecord, 0, len(payload.Results))
	for _, img := range payload.Results {
		if len(images) >= maxResults {
			break
		}
		description := img.Description
		if description == "" {
			description = img.AltDescription
		}
		images = append(images, models.ImageRecord{
			URL:          img.URLs.Small,
			Description:  description,
			Photographer: img.User.Name,
			Source:       "Unsplash",
			Type:         models.ImageTypeStock,
		})
	}
	return images, nil
}
