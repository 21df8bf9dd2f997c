package providers

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"deepresearch/internal/models"
)

// Shared provider result cache. Keys are "<provider>:<lowercased query>" so
// repeated queries within the TTL skip the outbound call entirely.
var resultCache = gocache.New(5*time.Minute, 10*time.Minute)

func cacheKey(provider, query string) string {
	return provider + ":" + strings.ToLower(strings.TrimSpace(query))
}

func cachedSources(provider, query string) ([]models.SourceRecord, bool) {
	if v, found := resultCache.Get(cacheKey(provider, query)); found {
		if records, ok := v.([]models.SourceRecord); ok {
			return records, true
		}
	}
	return nil, false
}

func cacheSources(provider, query string, records []models.SourceRecord, ttl time.Duration) {
	resultCache.Set(cacheKey(provider, query), records, ttl)
}

func cachedImages(provider, query string) ([]models.ImageRecord, bool) {
	if v, found := resultCache.Get(cacheKey(provider, query)); found {
		if records, ok := v.([]models.ImageRecord); ok {
			return records, true
		}
	}
	return nil, false
}

func cacheImages(provider, query string, records []models.ImageRecord, ttl time.Duration) {
	resultCache.Set(cacheKey(provider, query), records, ttl)
}
