package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the port the HTTP API listens on.
	WebPort string

	// JWTSecret signs and verifies session tokens.
	JWTSecret []byte

	// CoinGeckoAPIKey is the optional demo-plan API key for the price source.
	CoinGeckoAPIKey string
	// CoinGeckoBaseURL overrides the price API base URL (tests, proxies).
	CoinGeckoBaseURL string

	// TextGenBaseURL is the OpenAI-compatible endpoint for yield analysis.
	TextGenBaseURL string
	// TextGenAPIKey authenticates against the text-generation endpoint.
	TextGenAPIKey string
	// TextGenModel is the model name sent with each completion request.
	TextGenModel string

	// DefaultUsdToBRL is the exchange rate used before an owner saves one.
	DefaultUsdToBRL float64
)

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LoadConfig loads configuration from environment variables and sets the
// global config vars. JWT_SECRET is required; everything else has a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	secret, err := getEnv("JWT_SECRET")
	if err != nil {
		return err
	}
	JWTSecret = []byte(secret)

	WebPort = getEnvOr("WEB_PORT", "8080")

	CoinGeckoAPIKey = os.Getenv("COINGECKO_API_KEY")
	CoinGeckoBaseURL = getEnvOr("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3")

	TextGenBaseURL = getEnvOr("TEXTGEN_BASE_URL", "https://api.openai.com/v1")
	TextGenAPIKey = os.Getenv("TEXTGEN_API_KEY")
	TextGenModel = getEnvOr("TEXTGEN_MODEL", "gpt-4o-mini")

	DefaultUsdToBRL, err = getEnvAsFloat64Or("DEFAULT_USD_TO_BRL", 5.5)
	if err != nil {
		return err
	}

	log.Debug().
		Str("WebPort", WebPort).
		Str("CoinGeckoBaseURL", CoinGeckoBaseURL).
		Str("TextGenModel", TextGenModel).
		Msg("Configuration loaded successfully.")

	return nil
}

// LoadDBConfig assembles the database configuration from environment variables.
func LoadDBConfig() (DBConfig, error) {
	port, err := getEnvAsIntOr("DB_PORT", 5432)
	if err != nil {
		return DBConfig{}, err
	}
	return DBConfig{
		Host:     getEnvOr("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnvOr("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvOr("DB_NAME", "pooltrack"),
		SSLMode:  getEnvOr("DB_SSLMODE", "disable"),
	}, nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOr retrieves a string environment variable with a fallback default.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsIntOr retrieves an environment variable as an int with a default.
func getEnvAsIntOr(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsFloat64Or retrieves an environment variable as a float64 with a default.
func getEnvAsFloat64Or(key string, fallback float64) (float64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}
