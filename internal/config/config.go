package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

type AppConfig struct {
	AppEnv   string
	LogLevel string
	Port     string

	// RefreshInterval controls how often a refresh batch runs.
	RefreshInterval time.Duration

	// BatchDeadline caps a single batch; districts not started by then are
	// recorded as timed out.
	BatchDeadline time.Duration

	// Workers bounds per-district concurrency within a batch.
	Workers int

	// Outbound provider call settings.
	HTTPTimeout     time.Duration
	ProviderRPS     float64
	ProviderBurst   int
	MaxRetries      int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	ForecastDays    int
	SampleHour      int
	WeatherURL      string
	AirQualityURL   string

	// Scoring thresholds.
	Scoring recommend.ScoringConfig

	// Persistence: "sqlite" or "memory".
	StoreDriver     string
	SQLitePath      string
	StoreMaxHistory int // archived readings kept per district (memory driver)

	// DistrictsFile is an optional JSON seed of tracked districts.
	DistrictsFile string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Port = getenvDefault("PORT", "8080")

	var err error
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "60m"); err != nil {
		return nil, err
	}
	if cfg.BatchDeadline, err = getenvDuration("BATCH_DEADLINE", "5m"); err != nil {
		return nil, err
	}
	cfg.Workers = getenvInt("REFRESH_WORKERS", 4)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	cfg.ProviderRPS = getenvFloat("PROVIDER_RATE_LIMIT", 4)
	cfg.ProviderBurst = getenvInt("PROVIDER_BURST", 2)
	cfg.MaxRetries = getenvInt("PROVIDER_MAX_RETRIES", 3)
	if cfg.BackoffInitial, err = getenvDuration("PROVIDER_BACKOFF_INITIAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.BackoffMax, err = getenvDuration("PROVIDER_BACKOFF_MAX", "4s"); err != nil {
		return nil, err
	}
	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 7)
	cfg.SampleHour = getenvInt("SAMPLE_HOUR", 14)
	cfg.WeatherURL = os.Getenv("WEATHER_FORECAST_URL")
	cfg.AirQualityURL = os.Getenv("AIR_QUALITY_URL")

	cfg.Scoring = loadScoring()
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring thresholds: %w", err)
	}

	cfg.StoreDriver = getenvDefault("STORE_DRIVER", "sqlite")
	switch cfg.StoreDriver {
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (allowed: sqlite, memory)", cfg.StoreDriver)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/travel.db")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 168) // one week at hourly refreshes

	cfg.DistrictsFile = os.Getenv("DISTRICTS_FILE")

	return cfg, nil
}

func loadScoring() recommend.ScoringConfig {
	def := recommend.DefaultScoringConfig()
	return recommend.ScoringConfig{
		IdealTempLowC:  getenvFloat("SCORE_TEMP_IDEAL_LOW", def.IdealTempLowC),
		IdealTempHighC: getenvFloat("SCORE_TEMP_IDEAL_HIGH", def.IdealTempHighC),
		TempToleranceC: getenvFloat("SCORE_TEMP_TOLERANCE", def.TempToleranceC),
		AQIGood:        getenvFloat("SCORE_AQI_GOOD", def.AQIGood),
		AQIFair:        getenvFloat("SCORE_AQI_FAIR", def.AQIFair),
		AQIModerate:    getenvFloat("SCORE_AQI_MODERATE", def.AQIModerate),
		AQIPoor:        getenvFloat("SCORE_AQI_POOR", def.AQIPoor),
		AQIHazardous:   getenvFloat("SCORE_AQI_HAZARDOUS", def.AQIHazardous),
		TempWeight:     getenvFloat("SCORE_TEMP_WEIGHT", def.TempWeight),
		AirWeight:      getenvFloat("SCORE_AIR_WEIGHT", def.AirWeight),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
