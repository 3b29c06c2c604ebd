package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort        string
	DatabaseURL       string
	RedisAddr         string
	RedisDB           int
	RedisPass         string
	SecretKey         string
	Algorithm         string
	AccessTokenTTL    time.Duration
	BcryptCost        int
	AlphaVantageKey   string
	AlphaVantageURL   string
	MarketDataTimeout time.Duration
	LogLevel          string
	SwaggerHost       string
}

// Load builds Config from environment with sensible defaults. Values from a
// .env file in the working directory are applied first when present; real
// environment variables always win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8000"),
		DatabaseURL:       getEnv("DATABASE_URL", "sqlite:///./data/findash.db"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		SecretKey:         os.Getenv("SECRET_KEY"),
		Algorithm:         strings.ToUpper(strings.TrimSpace(getEnv("ALGORITHM", "HS256"))),
		AccessTokenTTL:    time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		BcryptCost:        getEnvInt("BCRYPT_COST", 12),
		AlphaVantageKey:   os.Getenv("ALPHA_VANTAGE_API_KEY"),
		AlphaVantageURL:   getEnv("ALPHA_VANTAGE_URL", "https://www.alphavantage.co/query"),
		MarketDataTimeout: getEnvDuration("MARKET_DATA_TIMEOUT", 15*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("ALGORITHM %q is not supported (use HS256, HS384 or HS512)", c.Algorithm))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
