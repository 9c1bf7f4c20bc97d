package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// PageHandler serves the single static page and the health probe
type PageHandler struct {
	staticDir       string
	modelConfigured bool
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(staticDir string, modelConfigured bool) *PageHandler {
	return &PageHandler{
		staticDir:       staticDir,
		modelConfigured: modelConfigured,
	}
}

// Index serves index.html from the static directory
func (h *PageHandler) Index(c *gin.Context) {
	c.File(filepath.Join(h.staticDir, "index.html"))
}

// Health reports liveness and whether a model credential is configured
func (h *PageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:          "healthy",
		ModelConfigured: h.modelConfigured,
	})
}

// RegisterRoutes registers GET / and GET /health
func (h *PageHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.Index)
	router.GET("/health", h.Health)
}
