package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	AppURL      string

	// Database
	DatabaseURL string
	RedisURL    string

	// OpenRouter (OpenAI-compatible completion API)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	ChatModel         string
	SearchModel       string
	WritingModel      string
	ChatTimeout       time.Duration
	SearchTimeout     time.Duration
	WritingTimeout    time.Duration

	// SendGrid
	SendGridAPIKey string
	FromEmail      string
	ReplyToEmail   string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string

	// OAuth - Spotify
	SpotifyClientID     string
	SpotifyClientSecret string

	// Security
	CronSecret           string
	InboundWebhookSecret string
	TokenEncryptionKey   string

	// Pipeline
	PairFreshnessDays     int
	VenueFreshnessDays    int
	VenueEventFreshnessDays int
	PairSearchLimit       int
	DraftWorkers          int

	// Rate limiting (requests per minute on inbound endpoints)
	WebhookRateLimit int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		AppURL:      strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// OpenRouter
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		ChatModel:         getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		SearchModel:       getEnv("OPENROUTER_SEARCH_MODEL", "perplexity/sonar"),
		WritingModel:      getEnv("OPENROUTER_WRITING_MODEL", "openai/gpt-4o"),
		ChatTimeout:       time.Duration(getEnvInt("CHAT_TIMEOUT_SEC", 60)) * time.Second,
		SearchTimeout:     time.Duration(getEnvInt("SEARCH_TIMEOUT_SEC", 90)) * time.Second,
		WritingTimeout:    time.Duration(getEnvInt("WRITING_TIMEOUT_SEC", 90)) * time.Second,

		// SendGrid
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		FromEmail:      getEnv("FROM_EMAIL", "ITK <hello@itk.so>"),
		ReplyToEmail:   getEnv("REPLY_TO_EMAIL", "hello@itk.so"),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		// OAuth - Spotify
		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),

		// Security
		CronSecret:           getEnv("API_CRON_SECRET", "change-me"),
		InboundWebhookSecret: getEnv("INBOUND_WEBHOOK_SECRET", ""),
		TokenEncryptionKey:   getEnv("TOKEN_ENCRYPTION_KEY", ""),

		// Pipeline
		PairFreshnessDays:       getEnvInt("PAIR_FRESHNESS_DAYS", 7),
		VenueFreshnessDays:      getEnvInt("VENUE_FRESHNESS_DAYS", 30),
		VenueEventFreshnessDays: getEnvInt("VENUE_EVENT_FRESHNESS_DAYS", 6),
		PairSearchLimit:         getEnvInt("PAIR_SEARCH_LIMIT", 50),
		DraftWorkers:            getEnvInt("DRAFT_WORKERS", 4),

		// Rate limiting
		WebhookRateLimit: getEnvInt("WEBHOOK_RATE_LIMIT", 10),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
