package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string
	MongoURI    string
	RedisURL    string

	// Generative-text provider (OpenAI-compatible endpoint)
	ProviderBaseURL string
	ProviderAPIKey  string
	DefaultModel    string

	// Requests per second allowed against the provider, process-wide
	GenerationRPS float64

	// Optional YAML catalog override; empty means the built-in catalog
	CatalogPath string

	// Interval in hours between context-refresh sweeps (0 disables the sweep)
	ContextSweepHours int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017/venturekit"),
		RedisURL:    getEnv("REDIS_URL", ""),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://api.openai.com/v1"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", "gpt-4o-mini"),

		GenerationRPS: getFloatEnv("GENERATION_RPS", 2.0),

		CatalogPath:       getEnv("CATALOG_PATH", ""),
		ContextSweepHours: getIntEnv("CONTEXT_SWEEP_HOURS", 6),
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
