package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"deepresearch/internal/config"
	"deepresearch/internal/handlers"
	"deepresearch/internal/jobs"
	"deepresearch/internal/logging"
	"deepresearch/internal/middleware"
	"deepresearch/internal/providers"
	"deepresearch/internal/services"
)

func main() {
	logging.Init()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Session store selection: memory by default, SQLite or Redis when configured
	store := buildSessionStore(cfg)
	defer store.Close()

	// Provider adapters. Keyless providers (arXiv, Wikipedia) are always on;
	// the rest activate only when their credential is configured.
	analyzer := providers.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, "", cfg.OpenAIModel)
	arxiv := providers.NewArxivProvider(cfg.ArxivBaseURL, cfg.ProviderTimeout, cfg.CacheTTL)
	news := providers.NewNewsProvider(cfg.NewsAPIKey, cfg.NewsAPIBaseURL, cfg.ProviderTimeout, cfg.CacheTTL)
	wikipedia := providers.NewWikipediaProvider(cfg.WikipediaBaseURL, cfg.ProviderTimeout, cfg.CacheTTL)
	unsplash := providers.NewUnsplashProvider(cfg.UnsplashAccessKey, cfg.UnsplashBaseURL, cfg.ProviderTimeout, cfg.CacheTTL)
	pexels := providers.NewPexelsProvider(cfg.PexelsAPIKey, cfg.PexelsBaseURL, cfg.ProviderTimeout, cfg.CacheTTL)
	replicate := providers.NewReplicateProvider(cfg.ReplicateAPIToken, cfg.ReplicateBaseURL, cfg.ProviderTimeout)

	engine := services.NewEngine(
		analyzer,
		arxiv, news, wikipedia,
		[]providers.ImageProvider{unsplash, pexels},
		replicate,
		cfg.MaxSourceResults, cfg.MaxImageResults,
	)

	tracker := services.NewResearchTracker()
	researchService := services.NewResearchService(store, engine, tracker, cfg.ResearchTimeout)

	services.InitMetrics(tracker)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Deep Research v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // queries are plain text, 1MB is plenty
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("deepresearch")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Create=%d/min, Read=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.ResearchCreateMax,
		rateLimitConfig.ResearchReadMax,
	)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	// Global API rate limiter - first line of DDoS defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Println("🛡️  [RATE-LIMIT] Global API rate limiter enabled")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(researchService)
	researchHandler := handlers.NewResearchHandler(researchService)

	// Routes
	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")
	api.Post("/research", middleware.ResearchCreateRateLimiter(rateLimitConfig), researchHandler.Create)
	api.Get("/research", middleware.ResearchReadRateLimiter(rateLimitConfig), researchHandler.List)
	api.Get("/research/:sessionId", middleware.ResearchReadRateLimiter(rateLimitConfig), researchHandler.Get)

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("session-cleanup", jobs.NewSessionCleanupJob(store, 1*time.Hour, cfg.SessionTTL))
	jobScheduler.Start()
	log.Printf("🕐 Background jobs: session cleanup (hourly, retention %s)", cfg.SessionTTL)

	log.Printf("🚀 Deep Research server starting on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🔬 Research endpoint: http://localhost:%s/api/research", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		// Stop accepting new research runs and wait for active ones (30s max)
		tracker.Drain(30 * time.Second)

		// Stop background jobs
		jobScheduler.Stop()

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// buildSessionStore picks the session store backend from config.
// Redis wins over SQLite when both are set.
func buildSessionStore(cfg *config.Config) services.SessionStore {
	if cfg.RedisURL != "" {
		store, err := services.NewRedisSessionStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Using Redis session store")
		return store
	}
	if cfg.SessionDBPath != "" {
		store, err := services.NewSQLiteSessionStore(cfg.SessionDBPath)
		if err != nil {
			log.Fatalf("❌ Failed to open session database: %v", err)
		}
		log.Printf("✅ Using SQLite session store at %s", cfg.SessionDBPath)
		return store
	}
	log.Println("✅ Using in-memory session store")
	return services.NewMemorySessionStore()
}
