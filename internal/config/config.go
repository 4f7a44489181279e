package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type StorageBackend string

const (
	StorageMemory    StorageBackend = "memory"
	StorageSQLite    StorageBackend = "sqlite"
	StorageFirestore StorageBackend = "firestore"
)

type Config struct {
	Port     string
	LogLevel string

	StorageBackend StorageBackend
	SQLitePath     string
	GCPProjectID   string

	// KeywordsFile is an optional YAML keyword catalog; empty = built-in vocabulary
	KeywordsFile string

	TransitionStep  int           // progress percent per step
	TransitionDelay time.Duration // pause before each step

	RateLimitPerMin int
	RateLimitBurst  int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads an optional .env file, then all env vars, and builds the config.
// Variables already set in the environment win over the .env file.
func Load() (*Config, error) {
	envFile := getEnv("INSIGHT_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Port:     getEnv("INSIGHT_PORT", getEnv("PORT", "8080")),
		LogLevel: getEnv("INSIGHT_LOG_LEVEL", "info"),

		StorageBackend: StorageBackend(getEnv("INSIGHT_STORAGE_BACKEND", string(StorageMemory))),
		SQLitePath:     getEnv("INSIGHT_SQLITE_PATH", "insight.db"),
		GCPProjectID:   getEnv("INSIGHT_GCP_PROJECT", ""),

		KeywordsFile: getEnv("INSIGHT_KEYWORDS_FILE", ""),

		TransitionStep:  getIntEnv("INSIGHT_TRANSITION_STEP", 10),
		TransitionDelay: getDurationEnv("INSIGHT_TRANSITION_DELAY", 150*time.Millisecond),

		RateLimitPerMin: getIntEnv("INSIGHT_RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:  getIntEnv("INSIGHT_RATE_LIMIT_BURST", 20),
	}

	if getBoolEnv("INSIGHT_NO_DELAY", false) {
		cfg.TransitionDelay = 0
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("INSIGHT_SQLITE_PATH must be set for sqlite storage"))
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("INSIGHT_GCP_PROJECT must be set for firestore storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if c.TransitionStep < 1 || c.TransitionStep > 100 {
		errs = append(errs, fmt.Errorf("INSIGHT_TRANSITION_STEP must be within 1..100, got %d", c.TransitionStep))
	}
	if c.TransitionDelay < 0 {
		errs = append(errs, errors.New("INSIGHT_TRANSITION_DELAY must not be negative"))
	}
	if c.RateLimitPerMin < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit values must not be negative"))
	}

	return errors.Join(errs...)
}
