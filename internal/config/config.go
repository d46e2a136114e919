package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env       string
	Port      string
	ClientURL string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Tokens
	JWTSecret          string
	JWTExpirationDur   time.Duration
	RefreshTokenTTL    time.Duration
	TokenPurgeInterval time.Duration

	// Rate limiting
	RateLimitStore       string
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Metrics
	MetricsAPIKey string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		ClientURL: getEnv("CLIENT_URL", "http://localhost:3000"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "spendify"),
		DBPassword: getEnv("DB_PASSWORD", "spendify"),
		DBName:     getEnv("DB_NAME", "spendify"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "spendify.db"),

		JWTSecret:          getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JWTExpirationDur:   getDuration("JWT_EXPIRES_IN", 15*time.Minute),
		RefreshTokenTTL:    getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		TokenPurgeInterval: getDuration("TOKEN_PURGE_INTERVAL", time.Hour),

		RateLimitStore:       getEnv("RATE_LIMIT_STORE", "memory"),
		RateLimitWindow:      getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMaxRequests: getInt("RATE_LIMIT_MAX_REQUESTS", 100),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		MetricsAPIKey: getEnv("METRICS_API_KEY", ""),
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

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
