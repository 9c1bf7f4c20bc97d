package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks every field and reports all problems at once.
// A missing OPENAI_API_KEY is deliberately not reported here.
func ValidateConfig(cfg *Config) error {
	var problems []string

	if cfg.ServerHost == "" {
		problems = append(problems, ValidationError{"SERVER_HOST", "must not be empty"}.Error())
	}
	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port < 1 || port > 65535 {
		problems = append(problems, ValidationError{"SERVER_PORT", fmt.Sprintf("invalid port %q", cfg.ServerPort)}.Error())
	}
	if cfg.OpenAIModel == "" {
		problems = append(problems, ValidationError{"OPENAI_MODEL", "must not be empty"}.Error())
	}
	if cfg.OpenAIBaseURL != "" {
		if u, err := url.Parse(cfg.OpenAIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, ValidationError{"OPENAI_BASE_URL", fmt.Sprintf("invalid URL %q", cfg.OpenAIBaseURL)}.Error())
		}
	}
	if cfg.OpenAITimeout < 0 {
		problems = append(problems, ValidationError{"OPENAI_TIMEOUT", "must not be negative"}.Error())
	}
	if u, err := url.Parse(cfg.AllowedOrigin); err != nil || u.Scheme == "" || u.Host == "" || strings.TrimSuffix(u.Path, "/") != "" {
		problems = append(problems, ValidationError{"CORS_ALLOWED_ORIGIN", fmt.Sprintf("invalid origin %q", cfg.AllowedOrigin)}.Error())
	}
	if cfg.MaxUploadBytes <= 0 {
		problems = append(problems, ValidationError{"MAX_UPLOAD_BYTES", "must be positive"}.Error())
	}
	if cfg.RateLimitPerMinute < 0 {
		problems = append(problems, ValidationError{"RATE_LIMIT_PER_MINUTE", "must not be negative"}.Error())
	}
	if cfg.RateLimitPerMinute > 0 && cfg.RedisURL == "" {
		problems = append(problems, ValidationError{"REDIS_URL", "required when RATE_LIMIT_PER_MINUTE is set"}.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "\n"))
	}
	return nil
}
