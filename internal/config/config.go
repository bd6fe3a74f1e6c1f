package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Catalog CatalogConfig `json:"catalog"`
	AI      AIConfig      `json:"ai"`
	Store   StoreConfig   `json:"store"`
	Logs    LogConfig     `json:"logs"`
}

type CatalogConfig struct {
	Source      string `json:"source"` // "csv" or "postgres"
	CSV         string `json:"csv"`    // local path or http(s) url
	DatabaseURL string `json:"database_url"`
	Table       string `json:"table"`
}

type AIConfig struct {
	Provider    string        `json:"provider"` // "ollama", "openai", "gemini" or "mock"
	Endpoint    string        `json:"endpoint"`
	Model       string        `json:"model"`
	APIKey      string        `json:"api_key"`
	RecipeCount int           `json:"recipe_count"`
	Timeout     time.Duration `json:"timeout"`
}

type StoreConfig struct {
	Backend       string `json:"backend"` // "memory", "file", "redis" or "blob"
	Path          string `json:"path"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	AccountName   string `json:"account_name"`
	AccountKey    string `json:"account_key"`
	Container     string `json:"container"`
}

// LogConfig enables shipping logs to append blobs when Container is set.
type LogConfig struct {
	Container   string `json:"container"`
	AccountName string `json:"account_name"`
	AccountKey  string `json:"account_key"`
}

// Load reads configuration from the environment, after applying an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	count, err := getEnvInt("AI_RECIPE_COUNT", 3)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("AI_RECIPE_COUNT must be positive, got %d", count)
	}
	timeout, err := getEnvDuration("AI_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Catalog: CatalogConfig{
			Source:      strings.ToLower(getEnvOrDefault("CATALOG_SOURCE", "csv")),
			CSV:         getEnvOrDefault("CATALOG_CSV", "discounted_products.csv"),
			DatabaseURL: os.Getenv("CATALOG_DATABASE_URL"),
			Table:       getEnvOrDefault("CATALOG_TABLE", "discounted_products"),
		},
		AI: AIConfig{
			Provider:    strings.ToLower(getEnvOrDefault("AI_PROVIDER", "ollama")),
			Endpoint:    os.Getenv("AI_ENDPOINT"),
			Model:       os.Getenv("AI_MODEL"),
			APIKey:      os.Getenv("AI_API_KEY"),
			RecipeCount: count,
			Timeout:     timeout,
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnvOrDefault("RECIPE_STORE", "memory")),
			Path:          getEnvOrDefault("RECIPE_STORE_PATH", "recipes"),
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			AccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			AccountKey:    os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			Container:     getEnvOrDefault("RECIPE_CONTAINER", "recipes"),
		},
		Logs: LogConfig{
			Container:   os.Getenv("LOG_CONTAINER"),
			AccountName: os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			AccountKey:  os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
		},
	}

	if cfg.Catalog.Source == "postgres" && cfg.Catalog.DatabaseURL == "" {
		return nil, fmt.Errorf("CATALOG_DATABASE_URL is required when CATALOG_SOURCE=postgres")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
