package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kaursimar9464/nutrisnap/backend/config"
	"github.com/kaursimar9464/nutrisnap/backend/internal/api"
	"github.com/kaursimar9464/nutrisnap/backend/internal/database"
	"github.com/kaursimar9464/nutrisnap/backend/internal/middleware"
	"github.com/kaursimar9464/nutrisnap/backend/internal/router"
	"github.com/kaursimar9464/nutrisnap/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	redis  *redis.Client
	log    *zap.Logger
}

// New wires the handlers for cfg. A missing API key is not fatal: the
// server starts and /analyze reports the problem per request.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var analyzer service.NutritionAnalyzer
	if cfg.HasAPIKey() {
		client := service.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITimeout)
		analyzer = service.NewLLMService(client, cfg.OpenAIModel, log)
	} else {
		log.Warn("OPENAI_API_KEY is not set; /analyze will answer 502 until it is configured")
	}

	s := &Server{log: log}

	var limiter *middleware.RateLimiter
	if cfg.RedisURL != "" && cfg.RateLimitPerMinute > 0 {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to set up rate limiting: %w", err)
		}
		s.redis = rdb
		limiter = middleware.NewAnalyzeRateLimiter(rdb, cfg.RateLimitPerMinute, log)
	}

	s.router = router.SetupRouter(log,
		api.NewPageHandler(cfg.StaticDir, cfg.HasAPIKey()),
		api.NewAnalyzeHandler(analyzer, cfg.MaxUploadBytes, log),
		cfg.AllowedOrigin,
		limiter,
	)
	s.http = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.router,
	}
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until the server is shut down
func (s *Server) Start() error {
	s.log.Info("starting server",
		zap.String("addr", s.http.Addr),
		zap.String("gin_mode", gin.Mode()))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and releases the Redis client
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
