package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// MinEncryptionKeyLength is the shortest ENCRYPTION_KEY accepted at startup.
const MinEncryptionKeyLength = 32

var ErrEncryptionKeyTooShort = errors.New("ENCRYPTION_KEY must be at least 32 characters")

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// DBHost, DBPort, DBUser, DBPassword, DBName and DBSSLMode describe the Postgres connection.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// EncryptionKey protects AI wallet private keys at rest. There is no fallback.
	EncryptionKey string

	// WebPort is the port of the HTTP API.
	WebPort int

	// LogLevel, LogFormat and LogFile configure the logger.
	LogLevel  string
	LogFormat string
	LogFile   string

	// AnthropicAPIKey enables /api/chat. Chat answers 503 when it is empty.
	AnthropicAPIKey string
	// ChatModel is the model used by the chat agent.
	ChatModel string
	// ChatMaxTokens bounds a single model response.
	ChatMaxTokens int
	// ChatMaxTurns bounds the number of model calls in one chat request.
	ChatMaxTurns int

	// ProtocolsFile optionally replaces the embedded protocol table.
	ProtocolsFile string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Required variables are DB_HOST, DB_USER, DB_NAME and ENCRYPTION_KEY; the rest have defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	DBHost, err = getEnv("DB_HOST")
	if err != nil {
		return err
	}

	DBPort, err = getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return err
	}

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBPassword = getEnvOrDefault("DB_PASSWORD", "")

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	EncryptionKey, err = getEnv("ENCRYPTION_KEY")
	if err != nil {
		return err
	}
	if len(EncryptionKey) < MinEncryptionKeyLength {
		return ErrEncryptionKeyTooShort
	}

	WebPort, err = getEnvAsInt("WEB_PORT", 3001)
	if err != nil {
		return err
	}

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFormat = getEnvOrDefault("LOG_FORMAT", "console")
	LogFile = getEnvOrDefault("LOG_FILE", "")

	AnthropicAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", "")
	ChatModel = getEnvOrDefault("CHAT_MODEL", "claude-3-5-sonnet-latest")

	ChatMaxTokens, err = getEnvAsInt("CHAT_MAX_TOKENS", 4096)
	if err != nil {
		return err
	}

	ChatMaxTurns, err = getEnvAsInt("CHAT_MAX_TURNS", 8)
	if err != nil {
		return err
	}

	ProtocolsFile = getEnvOrDefault("PROTOCOLS_FILE", "")

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("DBHost", DBHost).
		Int("DBPort", DBPort).
		Str("DBName", DBName).
		Int("WebPort", WebPort).
		Bool("ChatEnabled", AnthropicAPIKey != "").
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, or def when it is unset or empty.
func getEnvOrDefault(key, def string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return def
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if set but invalid.
func getEnvAsInt(key string, def int) (int, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration (e.g. "8s"). Returns error if set but invalid.
func getEnvAsDuration(key string, def time.Duration) (time.Duration, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return def, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
