package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kaursimar9464/nutrisnap/backend/internal/api"
	"github.com/kaursimar9464/nutrisnap/backend/internal/metrics"
	"github.com/kaursimar9464/nutrisnap/backend/internal/middleware"
)

// SetupRouter configures the application routes. limiter may be nil when
// rate limiting is disabled.
func SetupRouter(
	log *zap.Logger,
	pageHandler *api.PageHandler,
	analyzeHandler *api.AnalyzeHandler,
	allowedOrigin string,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	metrics.Register()

	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))

	// Page and probes
	pageHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// CORS only covers /analyze, the one route the hosted frontend calls
	analyzeMW := []gin.HandlerFunc{middleware.CORS(allowedOrigin)}
	if limiter != nil {
		analyzeMW = append(analyzeMW, limiter.Middleware())
	}
	analyzeHandler.RegisterRoutes(router, analyzeMW...)

	return router
}
