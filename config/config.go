package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile        = "my.env"
	defaultServerHost     = "127.0.0.1"
	defaultServerPort     = "5000"
	defaultModel          = "gpt-4o"
	defaultAllowedOrigin  = "https://kaursimar9464.github.io"
	defaultMaxUploadBytes = 16 << 20
	defaultOpenAITimeout  = 60 * time.Second
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerHost string
	ServerPort string
	StaticDir  string

	// Model API configuration. OpenAIAPIKey may be empty: the server still
	// starts and /analyze answers 502 until a key is provided.
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	// HTTP surface
	AllowedOrigin  string
	MaxUploadBytes int64

	// Optional Redis-backed rate limiting for /analyze
	RedisURL           string
	RateLimitPerMinute int
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// HasAPIKey reports whether a model API credential was configured
func (c *Config) HasAPIKey() bool {
	return c.OpenAIAPIKey != ""
}

// LoadConfig reads my.env (if present) and the process environment
func LoadConfig() (*Config, error) {
	envFile := getEnv("ENV_FILE", defaultEnvFile)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		ServerHost:    getEnv("SERVER_HOST", defaultServerHost),
		ServerPort:    getEnv("SERVER_PORT", defaultServerPort),
		StaticDir:     getEnv("STATIC_DIR", "."),
		OpenAIModel:   getEnv("OPENAI_MODEL", defaultModel),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", defaultAllowedOrigin),
		RedisURL:      os.Getenv("REDIS_URL"),
	}

	apiKey, err := readAPIKey()
	if err != nil {
		return nil, err
	}
	cfg.OpenAIAPIKey = apiKey

	if cfg.OpenAITimeout, err = getDuration("OPENAI_TIMEOUT", defaultOpenAITimeout); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes); err != nil {
		return nil, err
	}
	limit, err := getInt64("RATE_LIMIT_PER_MINUTE", 0)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitPerMinute = int(limit)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// readAPIKey returns OPENAI_API_KEY, falling back to the file named by
// OPENAI_API_KEY_FILE. An unset key is not an error.
func readAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return key, nil
	}

	keyFile := os.Getenv("OPENAI_API_KEY_FILE")
	if keyFile == "" {
		return "", nil
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ValidationError{Field: key, Message: fmt.Sprintf("not an integer: %q", v)}
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, ValidationError{Field: key, Message: fmt.Sprintf("not a duration: %q", v)}
	}
	return d, nil
}
