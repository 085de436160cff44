package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup. Engine
// tuning lives in the separate policy file named by EnginePolicyPath.
type Config struct {
	DatabaseURL      string
	JWTSecretKey     string
	ServerPort       int
	MigrationsPath   string
	EnginePolicyPath string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file. A missing .env is fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}

	cfg := &Config{
		DatabaseURL:      dbURL,
		JWTSecretKey:     jwtKey,
		ServerPort:       port,
		MigrationsPath:   migrationsPath,
		EnginePolicyPath: os.Getenv("ENGINE_POLICY_PATH"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// EvidenceStorageConfigured reports whether the R2 credentials are complete.
// Evidence upload is optional; the engine runs without it.
func (c *Config) EvidenceStorageConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2BucketName != "" && c.R2PublicBaseURL != ""
}
