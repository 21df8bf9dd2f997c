package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port           string
	Environment    string
	AllowedOrigins string

	// Session store selection. Memory is the default; setting SessionDBPath
	// switches to SQLite, setting RedisURL switches to Redis.
	SessionDBPath string
	RedisURL      string
	SessionTTL    time.Duration

	// Provider credentials (each optional; absence degrades that adapter to
	// empty output, never a hard failure)
	OpenAIAPIKey      string
	OpenAIModel       string
	NewsAPIKey        string
	UnsplashAccessKey string
	PexelsAPIKey      string
	ReplicateAPIToken string

	// Provider endpoints (overridable for testing against local servers)
	ArxivBaseURL     string
	NewsAPIBaseURL   string
	WikipediaBaseURL string
	UnsplashBaseURL  string
	PexelsBaseURL    string
	ReplicateBaseURL string

	// Aggregation tuning
	ProviderTimeout  time.Duration // per outbound provider call
	ResearchTimeout  time.Duration // overall budget for one aggregation run
	MaxSourceResults int           // per content provider cap
	MaxImageResults  int           // per image provider cap
	CacheTTL         time.Duration // provider result cache TTL
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3001"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),

		SessionDBPath: getEnv("SESSION_DB_PATH", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		SessionTTL:    getDurationEnv("SESSION_TTL", 24*time.Hour),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4"),
		NewsAPIKey:        getEnv("NEWS_API_KEY", ""),
		UnsplashAccessKey: getEnv("UNSPLASH_ACCESS_KEY", ""),
		PexelsAPIKey:      getEnv("PEXELS_API_KEY", ""),
		ReplicateAPIToken: getEnv("REPLICATE_API_TOKEN", ""),

		ArxivBaseURL:     getEnv("ARXIV_BASE_URL", "http://export.arxiv.org"),
		NewsAPIBaseURL:   getEnv("NEWSAPI_BASE_URL", "https://newsapi.org"),
		WikipediaBaseURL: getEnv("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org"),
		UnsplashBaseURL:  getEnv("UNSPLASH_BASE_URL", "https://api.unsplash.com"),
		PexelsBaseURL:    getEnv("PEXELS_BASE_URL", "https://api.pexels.com"),
		ReplicateBaseURL: getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"),

		ProviderTimeout:  getDurationEnv("PROVIDER_TIMEOUT", 30*time.Second),
		ResearchTimeout:  getDurationEnv("RESEARCH_TIMEOUT", 2*time.Minute),
		MaxSourceResults: getIntEnv("MAX_SOURCE_RESULTS", 5),
		MaxImageResults:  getIntEnv("MAX_IMAGE_RESULTS", 2),
		CacheTTL:         getDurationEnv("PROVIDER_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
