package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kaursimar9464/nutrisnap/backend/config"
	"github.com/kaursimar9464/nutrisnap/backend/internal/logger"
	"github.com/kaursimar9464/nutrisnap/backend/internal/server"
)

func main() {
	// Initialize configuration; this also applies my.env, so the logger is
	// built afterwards
	cfg, cfgErr := config.LoadConfig()

	log := logger.Init(config.GetEnvironment())
	defer logger.Sync()

	if cfgErr != nil {
		log.Fatal("failed to load configuration", zap.Error(cfgErr))
	}

	gin.SetMode(config.GinMode())

	srv, err := server.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal("server error", zap.Error(err))
		}
		return
	case sig := <-quit:
		log.Info("received signal", zap.String("signal", sig.String()))
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return
	}
	log.Info("server stopped")
}
