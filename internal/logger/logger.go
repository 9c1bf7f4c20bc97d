package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kaursimar9464/nutrisnap/backend/config"
)

var (
	log  *zap.Logger
	once sync.Once
)

// New builds a logger for env: JSON in production, colored console
// otherwise.
func New(env config.Environment) (*zap.Logger, error) {
	if env == config.Production {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// Init builds the global logger once and installs it as zap's global.
// Call it after my.env is loaded so ENV from the file is honored.
func Init(env config.Environment) *zap.Logger {
	once.Do(func() {
		var err error
		if log, err = New(env); err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
		zap.ReplaceGlobals(log)
	})
	return log
}

// Sync flushes buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
