package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for the keyword server
type Config struct {
	Port                  string
	LogLevel              string
	LogFormat             string
	RegistryPath          string
	Providers             []string
	RequestTimeout        time.Duration
	AssistantPollInterval time.Duration
	AssistantPollTimeout  time.Duration
	UploadConcurrency     int
	JaegerEndpoint        string
	Environment           string
}

// Load reads configuration from the environment, after applying ENV_FILE when it is set
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	config := &Config{
		Port:                  getEnv("KEYWORDD_PORT", "8270"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		RegistryPath:          getEnv("CONFIG", ""),
		Providers:             parseCommaSeparated(getEnv("PROVIDERS", "")),
		RequestTimeout:        getEnvDuration("REQUEST_TIMEOUT", "3m"),
		AssistantPollInterval: getEnvDuration("ASSISTANT_POLL_INTERVAL", "500ms"),
		AssistantPollTimeout:  getEnvDuration("ASSISTANT_POLL_TIMEOUT", "2m"),
		UploadConcurrency:     getEnvInt("UPLOAD_CONCURRENCY", 4),
		JaegerEndpoint:        getEnv("JAEGER_ENDPOINT", ""),
		Environment:           getEnv("ENVIRONMENT", "development"),
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
