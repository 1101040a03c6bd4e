package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSessionSecret is only acceptable outside production
const DefaultSessionSecret = "foodshare-dev-secret-change-in-production"

// Config holds all runtime settings, read from the environment
type Config struct {
	AppEnv  string
	Port    string
	BaseURL string

	DBDriver string
	DBDSN    string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL string

	LoginMaxAttempts int
	LoginWindow      time.Duration

	APIRateLimitRPS   float64
	APIRateLimitBurst int

	CORSOrigins []string

	ReminderCron string
	ReminderDays int

	LogLevel string
}

// Load reads the configuration from environment variables, applying defaults
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		Port:    getEnv("PORT", "8080"),
		BaseURL: strings.TrimRight(getEnv("FOODSHARE_BASE_URL", "http://localhost:8080"), "/"),

		DBDriver: strings.ToLower(getEnv("FOODSHARE_DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("FOODSHARE_DB_DSN", "foodshare.db"),

		SessionSecret: getEnv("SESSION_SECRET", DefaultSessionSecret),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL: getEnv("AMQP_URL", ""),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      getEnvDuration("LOGIN_WINDOW", 15*time.Minute),

		APIRateLimitRPS:   getEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: getEnvInt("API_RATE_LIMIT_BURST", 40),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		ReminderCron: getEnv("REMINDER_CRON", "0 8 * * *"),
		ReminderDays: getEnvInt("REMINDER_DAYS", 3),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks the configuration for unusable or unsafe values
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported FOODSHARE_DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}

	if c.DBDSN == "" {
		return fmt.Errorf("FOODSHARE_DB_DSN is required")
	}

	if c.IsProduction() {
		if c.SessionSecret == DefaultSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set in production")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
		}
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.LoginMaxAttempts < 1 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be at least 1")
	}

	if c.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_WINDOW must be positive")
	}

	if c.ReminderDays < 1 {
		return fmt.Errorf("REMINDER_DAYS must be at least 1")
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
