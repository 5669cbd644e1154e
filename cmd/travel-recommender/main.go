package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/tanjir-dev/travel-recommender/internal/api/http"
	"github.com/tanjir-dev/travel-recommender/internal/config"
	"github.com/tanjir-dev/travel-recommender/internal/logging"
	"github.com/tanjir-dev/travel-recommender/internal/recommend"
	"github.com/tanjir-dev/travel-recommender/internal/recommend/providers"
	"github.com/tanjir-dev/travel-recommender/internal/scheduler"
	"github.com/tanjir-dev/travel-recommender/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	// Tracked districts: seed file when configured, built-in set otherwise.
	districts := defaultDistricts()
	if cfg.DistrictsFile != "" {
		if districts, err = store.LoadDistrictsFile(cfg.DistrictsFile); err != nil {
			log.Fatalf("failed to load districts: %v", err)
		}
	}
	districtStore, err := store.NewDistrictStore(districts)
	if err != nil {
		log.Fatalf("invalid district data: %v", err)
	}

	// Reading repository: SQLite by default, in-memory for storage-free runs.
	var repo recommend.ReadingRepository
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		defer db.Close()
		if repo, err = store.NewSQLiteRepository(db); err != nil {
			log.Fatalf("failed to init sqlite store: %v", err)
		}
	case "memory":
		repo = store.NewMemoryRepository(cfg.StoreMaxHistory)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Open-Meteo client with resilience (backoff + circuit breaker), wrapped
	// with a rate limiter to stay inside the provider's courtesy limits.
	openMeteo := providers.NewOpenMeteoClient(httpClient, providers.OpenMeteoConfig{
		WeatherURL:    cfg.WeatherURL,
		AirQualityURL: cfg.AirQualityURL,
		ForecastDays:  cfg.ForecastDays,
		SampleHour:    cfg.SampleHour,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.BackoffInitial,
			MaxInterval:     cfg.BackoffMax,
		},
	})
	provider := providers.NewRateLimitedProvider(openMeteo, cfg.ProviderRPS, cfg.ProviderBurst)

	scorer, err := recommend.NewScorer(cfg.Scoring)
	if err != nil {
		log.Fatalf("invalid scoring config: %v", err)
	}

	orch := recommend.NewOrchestrator(districtStore, provider, repo, scorer, recommend.OrchestratorOptions{
		Workers:       cfg.Workers,
		BatchDeadline: cfg.BatchDeadline,
		Logger:        logger,
	})

	// Scheduler that periodically refreshes readings and scores.
	sched := scheduler.New(cfg.RefreshInterval, orch, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "travel-recommender",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "travel-recommender",
			"districts": districtStore.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Districts: districtStore,
		Repo:      repo,
		Provider:  provider,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

// defaultDistricts is the built-in seed used when no districts file is
// configured: the eight Bangladeshi divisional headquarters.
func defaultDistricts() []recommend.District {
	return []recommend.District{
		{ID: "dhaka", Name: "Dhaka", BnName: "ঢাকা", Latitude: 23.7115, Longitude: 90.4111},
		{ID: "chattogram", Name: "Chattogram", BnName: "চট্টগ্রাম", Latitude: 22.3351, Longitude: 91.8340},
		{ID: "sylhet", Name: "Sylhet", BnName: "সিলেট", Latitude: 24.8949, Longitude: 91.8687},
		{ID: "rajshahi", Name: "Rajshahi", BnName: "রাজশাহী", Latitude: 24.3745, Longitude: 88.6042},
		{ID: "khulna", Name: "Khulna", BnName: "খুলনা", Latitude: 22.8158, Longitude: 89.5687},
		{ID: "barishal", Name: "Barishal", BnName: "বরিশাল", Latitude: 22.7010, Longitude: 90.3535},
		{ID: "rangpur", Name: "Rangpur", BnName: "রংপুর", Latitude: 25.7439, Longitude: 89.2752},
		{ID: "mymensingh", Name: "Mymensingh", BnName: "ময়মনসিংহ", Latitude: 24.7471, Longitude: 90.4203},
	}
}
