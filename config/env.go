package config

import (
	"os"

	"github.com/gin-gonic/gin"
)

// Environment represents the current runtime environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment determines the current environment. CI=true wins, then
// ENV. With ENV unset, GIN_MODE=release also means production so a plain
// gin deployment does not log in development format.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch os.Getenv("ENV") {
	case "production":
		return Production
	case "test":
		return Test
	case "":
		if os.Getenv(gin.EnvGinMode) == gin.ReleaseMode {
			return Production
		}
	}
	return Development
}

// IsProduction returns true if the current environment is production
func IsProduction() bool {
	return GetEnvironment() == Production
}

// GinMode returns the gin mode to run in. An explicit GIN_MODE is kept;
// otherwise it follows the environment.
func GinMode() string {
	if mode := os.Getenv(gin.EnvGinMode); mode != "" {
		return mode
	}
	switch GetEnvironment() {
	case Production:
		return gin.ReleaseMode
	case Test, CI:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
