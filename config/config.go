package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Annany2002/nebula-workbench/internal/logger"
	"github.com/joho/godotenv"
)

var (
	customLog = logger.NewLogger()
)

// Engine drivers selectable through ENGINE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration values
type Config struct {
	ServerPort string

	// Session and engine storage
	DatabaseDir      string
	SessionStoreFile string
	EngineDriver     string
	PostgresDSN      string

	// Policy evaluator
	PolicyEvaluatorURL string
	PolicyTimeout      time.Duration

	// HTTP surface
	RateLimitPerMinute int
	AllowedOrigins     []string

	// Access lock; disabled while AccessPasswordHash is empty
	AccessPasswordHash string
	JWTSecret          string
	JWTExpiration      time.Duration
}

// AccessLockEnabled reports whether /api/v1 requires a bearer token.
func (c *Config) AccessLockEnabled() bool {
	return c.AccessPasswordHash != ""
}

// EngineDir is where sqlite engine files live.
func (c *Config) EngineDir() string {
	return filepath.Join(c.DatabaseDir, "engines")
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	// Attempt to load .env file if in development environment (skip in production)
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		ServerPort:         strings.TrimPrefix(getEnv("SERVER_PORT", "8080"), ":"),
		DatabaseDir:        getEnv("DATABASE_DIRECTORY", "data"),
		SessionStoreFile:   getEnv("SESSION_STORE_FILE", "session.db"),
		EngineDriver:       strings.ToLower(getEnv("ENGINE_DRIVER", DriverSQLite)),
		PostgresDSN:        getEnv("POSTGRES_DSN", ""),
		PolicyEvaluatorURL: getEnv("POLICY_EVALUATOR_URL", "http://localhost:8181"),
		PolicyTimeout:      time.Second * time.Duration(getEnvInt("POLICY_TIMEOUT_SECONDS", 0, 0)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120, 1),
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AccessPasswordHash: getEnv("ACCESS_PASSWORD_HASH", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpiration:      time.Hour * time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24, 1)),
	}

	// --- Validation ---
	switch cfg.EngineDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN environment variable must be set when ENGINE_DRIVER is postgres")
		}
	default:
		return nil, errors.New("ENGINE_DRIVER must be 'sqlite' or 'postgres'")
	}

	if cfg.AccessLockEnabled() && cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set when ACCESS_PASSWORD_HASH is set")
	}
	if cfg.JWTSecret == "!!replace_this_with_a_real_secret_key!!" {
		customLog.Warnln("WARNING: JWT_SECRET is set to the default placeholder!")
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, Engine: %s, Access lock: %t",
		cfg.ServerPort, cfg.EngineDriver, cfg.AccessLockEnabled())
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvInt parses an integer variable, falling back when it is missing,
// malformed or below minimum.
func getEnvInt(key string, fallback, minimum int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minimum {
		customLog.Warnf("Invalid %s '%s'. Using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
