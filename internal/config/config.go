package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port      string
	Transport string
	Timezone  string

	DBDriver string
	DBDSN    string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioBaseURL    string

	WhatsAppDataDir string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	VenueTimeout    time.Duration
	DefaultLocation string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	VenueCacheTTL time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int

	LogLevel  string
	LogFormat string
}

// Oracle calls are clamped to this window.
const (
	minOracleTimeout = 8 * time.Second
	maxOracleTimeout = 30 * time.Second
)

// LoadConfig loads configuration from environment variables or defaults.
// A .env file in the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		Transport: getEnv("TRANSPORT", "console"),
		Timezone:  getEnv("TIMEZONE", "America/Los_Angeles"),

		DBDriver: getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:    getEnv("DB_DSN", "file:data/planner.db?_foreign_keys=on"),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioBaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),

		WhatsAppDataDir: getEnv("WHATSAPP_DATA_DIR", "data"),

		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: clampOracleTimeout(getDuration("LLM_TIMEOUT", 15*time.Second)),

		VenueTimeout:    clampOracleTimeout(getDuration("VENUE_TIMEOUT", 15*time.Second)),
		DefaultLocation: getEnv("DEFAULT_LOCATION", "San Francisco, CA"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		VenueCacheTTL: getDuration("VENUE_CACHE_TTL", 6*time.Hour),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 20),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 5),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func clampOracleTimeout(d time.Duration) time.Duration {
	if d < minOracleTimeout {
		return minOracleTimeout
	}
	if d > maxOracleTimeout {
		return maxOracleTimeout
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
