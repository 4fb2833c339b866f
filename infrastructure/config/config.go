// Package config loads the daemon configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all daemon configuration.
type Config struct {
	// Control API
	ServerAddress string `validate:"required"`
	Environment   string `validate:"oneof=development staging production"`
	EnableCORS    bool

	// Remote store. An empty table name selects the in-memory remote,
	// which keeps the daemon usable for offline development.
	AWSRegion     string
	DynamoDBTable string

	// Local store
	LocalDBPath string `validate:"required"`

	// Identity: a JWT whose subject becomes the sync user id. Either the
	// token or an explicit user id must be present.
	AccessToken string
	UserID      string

	// Sync loop
	SyncInterval time.Duration `validate:"min=1s"`

	// Connectivity probe
	ProbeAddress  string        `validate:"required,hostname_port"`
	ProbeInterval time.Duration `validate:"min=1s"`

	// Logging
	LogLevel string `validate:"oneof=debug info warn error"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", ""),

		LocalDBPath: getEnv("LOCAL_DB_PATH", "canvassync.db"),

		AccessToken: getEnv("ACCESS_TOKEN", ""),
		UserID:      getEnv("USER_ID", ""),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		ProbeAddress:  getEnv("PROBE_ADDRESS", "1.1.1.1:443"),
		ProbeInterval: getEnvDuration("PROBE_INTERVAL", 10*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.AccessToken == "" && cfg.UserID == "" {
		return nil, fmt.Errorf("invalid configuration: one of ACCESS_TOKEN or USER_ID is required")
	}
	return cfg, nil
}

// IsDevelopment reports whether the daemon runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
