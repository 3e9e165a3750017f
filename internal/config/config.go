package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Engine   EngineConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	LogLevel string
}

// EngineConfig holds the client sync engine configuration. Every timing
// constant of the engine lives here so tests can shrink them.
type EngineConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration

	// Offline queue / background sync.
	SyncInterval    time.Duration
	RetryDelay      time.Duration
	MaxRetries      int
	MaxHeadFailures int

	// Driver negotiation.
	PollInterval       time.Duration
	NegotiationTimeout time.Duration

	// Fare estimation.
	BaseFare        float64
	PerKmRate       float64
	AverageSpeedKmh float64
}

// ServerConfig holds reference backend HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AcceptDelay is how long the reference backend waits before marking
	// a selected driver as having accepted the trip.
	AcceptDelay time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the reference backend.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Enabled  bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// NewRelicConfig holds New Relic configuration for the reference backend.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Engine: EngineConfig{
			APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8080"),
			RequestTimeout:     getDurationEnv("API_REQUEST_TIMEOUT", 10*time.Second),
			SyncInterval:       getDurationEnv("SYNC_INTERVAL", 30*time.Second),
			RetryDelay:         getDurationEnv("SYNC_RETRY_DELAY", 1*time.Second),
			MaxRetries:         getIntEnv("SYNC_MAX_RETRIES", 3),
			MaxHeadFailures:    getIntEnv("SYNC_MAX_HEAD_FAILURES", 5),
			PollInterval:       getDurationEnv("NEGOTIATION_POLL_INTERVAL", 3*time.Second),
			NegotiationTimeout: getDurationEnv("NEGOTIATION_TIMEOUT", 120*time.Second),
			BaseFare:           getFloatEnv("FARE_BASE", 25.0),
			PerKmRate:          getFloatEnv("FARE_PER_KM", 8.5),
			AverageSpeedKmh:    getFloatEnv("FARE_AVG_SPEED_KMH", 30.0),
		},
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			AcceptDelay:  getDurationEnv("BACKEND_ACCEPT_DELAY", 5*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ridesync"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Enabled:  getBoolEnv("DB_ENABLED", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ridesync-backend"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
