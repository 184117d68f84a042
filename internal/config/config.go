package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth tokens are issued by the external identity provider; we only verify them.
	AuthJWTSecret  string
	PipelineAPIKey string

	// Redis (empty address falls back to in-process locks and caches)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ISINCacheTTL  time.Duration

	// Kafka (no brokers disables event publishing)
	KafkaBrokers     []string
	KafkaEventsTopic string

	// Reference data providers
	AMFINavURL     string
	MFAPIBaseURL   string
	RequestTimeout time.Duration

	// Pipeline jobs
	JobWorkers         int
	JobItemTimeout     time.Duration
	JobRunTimeout      time.Duration
	SchemeMasterMaxAge time.Duration
	MarketHolidays     []string

	// Scheduler
	SchedulerEnabled bool
	SchedulerRunAt   string

	// Matching
	MatchThreshold   float64
	MatchTokenWeight float64
	MatchStrWeight   float64
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "wealthlens"),
		DBPassword: getEnv("DB_PASSWORD", "wealthlens"),
		DBName:     getEnv("DB_NAME", "wealthlens"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AuthJWTSecret:  getEnv("AUTH_JWT_SECRET", "fallback-secret-key-for-dev-only"),
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt("REDIS_DB", 0),
		ISINCacheTTL:  parseDuration("ISIN_CACHE_TTL", 24*time.Hour),

		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "wealthlens.events"),

		AMFINavURL:     getEnv("AMFI_NAV_URL", "https://www.amfiindia.com/spages/NAVAll.txt"),
		MFAPIBaseURL:   getEnv("MFAPI_BASE_URL", "https://api.mfapi.in"),
		RequestTimeout: parseDuration("REQUEST_TIMEOUT", 30*time.Second),

		JobWorkers:         parseInt("JOB_WORKERS", 5),
		JobItemTimeout:     parseDuration("JOB_ITEM_TIMEOUT", 20*time.Second),
		JobRunTimeout:      parseDuration("JOB_RUN_TIMEOUT", 15*time.Minute),
		SchemeMasterMaxAge: parseDuration("SCHEME_MASTER_MAX_AGE", 7*24*time.Hour),
		MarketHolidays:     splitList(getEnv("MARKET_HOLIDAYS", "")),

		SchedulerEnabled: parseBool("SCHEDULER_ENABLED", false),
		SchedulerRunAt:   getEnv("SCHEDULER_RUN_AT", "06:30"),

		MatchThreshold:   parseFloat("MATCH_THRESHOLD", 60),
		MatchTokenWeight: parseFloat("MATCH_TOKEN_WEIGHT", 0.7),
		MatchStrWeight:   parseFloat("MATCH_STRING_WEIGHT", 0.3),
	}

	if config.JobWorkers < 1 {
		log.Printf("Warning: invalid JOB_WORKERS value %d, falling back to 5\n", config.JobWorkers)
		config.JobWorkers = 5
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, fallback)
		return fallback
	}
	return d
}

func parseInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, fallback)
		return fallback
	}
	return n
}

func parseFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %g\n", key, raw, fallback)
		return fallback
	}
	return f
}

func parseBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
