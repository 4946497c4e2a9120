package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	AnthropicAPIKey     string
	AnthropicModel      string
	GoogleClientID      string
	GoogleClientSecret  string
	AzureClientID       string
	AzureClientSecret   string
	SyncWorkers         int
	QueueSize           int
	SweepEveryMinutes   int
	Timezone            string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILAPP_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("MAILAPP_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("MAILAPP_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILAPP_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILAPP_DB_USER", "mailapp"),
		DBPassword:          os.Getenv("MAILAPP_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILAPP_DB_NAME", "mailapp"),
		DBSSLMode:           getEnvOrDefault("MAILAPP_DB_SSLMODE", "disable"),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:      getEnvOrDefault("MAILAPP_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		GoogleClientID:      os.Getenv("MAILAPP_GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("MAILAPP_GOOGLE_CLIENT_SECRET"),
		AzureClientID:       os.Getenv("MAILAPP_AZURE_CLIENT_ID"),
		AzureClientSecret:   os.Getenv("MAILAPP_AZURE_CLIENT_SECRET"),
		SyncWorkers:         getEnvIntOrDefault("MAILAPP_SYNC_WORKERS", 4),
		QueueSize:           getEnvIntOrDefault("MAILAPP_QUEUE_SIZE", 256),
		SweepEveryMinutes:   getEnvIntOrDefault("MAILAPP_SWEEP_EVERY_MINUTES", 5),
		Timezone:            getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILAPP_ENCRYPTION_KEY_BASE64 is required")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("MAILAPP_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("MAILAPP_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILAPP_DB_PASSWORD is required")
	}

	if !isValidPort(c.DBPort) {
		return fmt.Errorf("MAILAPP_DB_PORT is not a valid port number: %s", c.DBPort)
	}

	if c.SyncWorkers < 1 {
		return fmt.Errorf("MAILAPP_SYNC_WORKERS must be at least 1")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func isValidPort(port string) bool {
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
