package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port    string
	BaseURL string

	ShortCodeLength int
	CodeMaxAttempts int
	CacheTTL        time.Duration

	RateLimit       int
	RateLimitWindow time.Duration

	ClickQueueSize int
	ClickWorkers   int

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	ClickRetention  time.Duration
	ArchiveInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:    getEnv("PORT", "8080"),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		ShortCodeLength: getEnvInt("SHORT_CODE_LENGTH", 6),
		CodeMaxAttempts: getEnvInt("CODE_MAX_ATTEMPTS", 5),
		CacheTTL:        getEnvDuration("CACHE_TTL", time.Hour),

		RateLimit:       getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		ClickQueueSize: getEnvInt("CLICK_QUEUE_SIZE", 1024),
		ClickWorkers:   getEnvInt("CLICK_WORKERS", 4),

		PostgresUser:     getEnv("POSTGRES_USER", "shortlink"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase: getEnv("POSTGRES_DATABASE", "shortlink"),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKey:     getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		ClickRetention:  getEnvDuration("CLICK_RETENTION", 90*24*time.Hour),
		ArchiveInterval: getEnvDuration("ARCHIVE_INTERVAL", 6*time.Hour),
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
