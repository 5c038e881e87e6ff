package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Generation provider (RunwayML-compatible API)
	RunwayAPIKey          string
	RunwayAPIBaseURL      string
	RunwayModel           string
	RunwayMock            bool
	RunwayPollInterval    time.Duration
	RunwayMaxPollAttempts int

	// Prompt engine
	GeminiAPIKey string

	// Supabase storage (admin-finalized assets)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Auth
	JWTSecret      string
	AccessTokenTTL time.Duration

	// Behavior: regenerate synchronously when feedback arrives, or leave
	// the child video queued for a separate trigger.
	RegenerateOnFeedback bool

	// Local file layout
	UploadsDir string
	VideosDir  string

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	cfg := &Config{
		RunwayAPIKey:          getEnv("RUNWAY_API_KEY", ""),
		RunwayAPIBaseURL:      getEnv("RUNWAY_API_BASE_URL", "https://api.dev.runwayml.com/v1/"),
		RunwayModel:           getEnv("RUNWAY_MODEL", "gen4_turbo"),
		RunwayMock:            getEnvBool("RUNWAY_MOCK", true),
		RunwayPollInterval:    getEnvDuration("RUNWAY_POLL_INTERVAL", 5*time.Second),
		RunwayMaxPollAttempts: getEnvInt("RUNWAY_MAX_POLL_ATTEMPTS", 60),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "final-videos"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),

		RegenerateOnFeedback: getEnvBool("REGENERATE_ON_FEEDBACK", true),

		UploadsDir: getEnv("UPLOADS_DIR", "uploaded_images"),
		VideosDir:  getEnv("VIDEOS_DIR", "videos"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.RunwayMock && c.RunwayAPIKey == "" {
		return fmt.Errorf("RUNWAY_API_KEY is required when RUNWAY_MOCK is disabled")
	}
	if c.RunwayMaxPollAttempts <= 0 {
		return fmt.Errorf("RUNWAY_MAX_POLL_ATTEMPTS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "TRUE", "True", "yes", "YES":
		return true
	}
	return false
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warnf("invalid value for %s: %v, using default %d", key, err, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("invalid value for %s: %v, using default %s", key, err, defaultValue)
		return defaultValue
	}
	return d
}
