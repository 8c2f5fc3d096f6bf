package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultV0BaseURL = "https://api.v0.dev/v1"

	defaultCooldown          = 30 * time.Second
	defaultStaleCeiling      = 10 * time.Minute
	defaultOverallTimeout    = 5 * time.Minute
	defaultInactivityTimeout = 30 * time.Second
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	v0Key := os.Getenv("V0_API_KEY")
	databaseURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	environment := os.Getenv("ENVIRONMENT")

	if v0Key == "" {
		return nil, fmt.Errorf("V0_API_KEY environment variable is required")
	}

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL environment variable is required")
	}

	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if environment == "" {
		environment = "development"
	}

	baseURL := os.Getenv("V0_BASE_URL")
	if baseURL == "" {
		baseURL = defaultV0BaseURL
	}

	return &Config{
		V0APIKey:    v0Key,
		V0BaseURL:   baseURL,
		DatabaseURL: databaseURL,
		RedisURL:    redisURL,
		JWTSecret:   jwtSecret,
		Environment: environment,
		Coordination: Coordination{
			Cooldown:          durationFromEnv("GENERATION_COOLDOWN", defaultCooldown),
			StaleCeiling:      durationFromEnv("GENERATION_STALE_CEILING", defaultStaleCeiling),
			OverallTimeout:    durationFromEnv("GENERATION_OVERALL_TIMEOUT", defaultOverallTimeout),
			InactivityTimeout: durationFromEnv("GENERATION_INACTIVITY_TIMEOUT", defaultInactivityTimeout),
		},
	}, nil
}

// reads a duration from the environment, falling back on parse failure
func durationFromEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
