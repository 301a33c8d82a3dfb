package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
)

type Config struct {
	FishAPI  FishAPIConfig
	Server   ServerConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Prefetch PrefetchConfig
	Reveal   RevealConfig
	Viewport ViewportConfig
	Logging  LoggingConfig
}

type FishAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	RecordTTL time.Duration
}

type PrefetchConfig struct {
	TierSize      int
	TierStagger   time.Duration
	Residency     time.Duration
	RegionStagger time.Duration
	Debug         bool
}

type RevealConfig struct {
	InitialCount    int
	BatchSize       int
	Delay           time.Duration
	ScrollThreshold int
}

type ViewportConfig struct {
	MarginPx int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		FishAPI: FishAPIConfig{
			BaseURL: strings.TrimRight(getEnv("FISH_API_BASE_URL", constants.APIConfig.DefaultBaseURL), "/"),
			APIKey:  getEnv("FISH_API_KEY", ""),
			Timeout: getEnvSeconds("FISH_API_TIMEOUT_SECONDS", constants.APIConfig.Timeout),
		},
		Server: ServerConfig{
			Addr:            getEnv("SERVER_ADDR", ":3000"),
			ShutdownTimeout: getEnvSeconds("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			RecordTTL: getEnvSeconds("RECORD_CACHE_TTL_SECONDS", constants.CacheTTL.Records),
		},
		Prefetch: PrefetchConfig{
			TierSize:      getEnvInt("PREFETCH_TIER_SIZE", constants.PrefetchConfig.TierSize),
			TierStagger:   getEnvMillis("PREFETCH_STAGGER_MS", constants.PrefetchConfig.TierStagger),
			Residency:     getEnvMillis("PREFETCH_RESIDENCY_MS", constants.PrefetchConfig.Residency),
			RegionStagger: getEnvMillis("PREFETCH_REGION_STAGGER_MS", constants.PrefetchConfig.RegionStagger),
			Debug:         getEnvBool("PREFETCH_DEBUG", false),
		},
		Reveal: RevealConfig{
			InitialCount:    getEnvInt("REVEAL_INITIAL", constants.PaginationConfig.InitialVisibleCount),
			BatchSize:       getEnvInt("REVEAL_BATCH", constants.PaginationConfig.LoadMoreCount),
			Delay:           getEnvMillis("REVEAL_DELAY_MS", constants.PaginationConfig.LoadMoreDelay),
			ScrollThreshold: getEnvInt("REVEAL_SCROLL_THRESHOLD_PX", constants.PaginationConfig.ScrollThreshold),
		},
		Viewport: ViewportConfig{
			MarginPx: getEnvInt("VIEWPORT_MARGIN_PX", constants.PrefetchConfig.CardMargin),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FishAPI.BaseURL == "" {
		return fmt.Errorf("FISH_API_BASE_URL is required")
	}
	if c.FishAPI.APIKey == "" {
		return fmt.Errorf("FISH_API_KEY is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	if c.Prefetch.TierSize <= 0 {
		return fmt.Errorf("PREFETCH_TIER_SIZE must be positive, got %d", c.Prefetch.TierSize)
	}
	if c.Reveal.BatchSize <= 0 {
		return fmt.Errorf("REVEAL_BATCH must be positive, got %d", c.Reveal.BatchSize)
	}
	if c.Reveal.InitialCount < 0 {
		return fmt.Errorf("REVEAL_INITIAL must not be negative, got %d", c.Reveal.InitialCount)
	}
	if c.Viewport.MarginPx < 0 {
		return fmt.Errorf("VIEWPORT_MARGIN_PX must not be negative, got %d", c.Viewport.MarginPx)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal >= 0 {
			return time.Duration(intVal) * time.Second
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal >= 0 {
			return time.Duration(intVal) * time.Millisecond
		}
	}
	return defaultValue
}
