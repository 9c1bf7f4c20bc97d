package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kaursimar9464/nutrisnap/backend/internal/metrics"
	"github.com/kaursimar9464/nutrisnap/backend/internal/middleware"
	"github.com/kaursimar9464/nutrisnap/backend/internal/service"
)

// AnalyzeHandler handles food photo uploads
type AnalyzeHandler struct {
	analyzer       service.NutritionAnalyzer
	maxUploadBytes int64
	log            *zap.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler. analyzer is nil when no
// model credential is configured; every upload then fails with 502.
func NewAnalyzeHandler(analyzer service.NutritionAnalyzer, maxUploadBytes int64, log *zap.Logger) *AnalyzeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalyzeHandler{
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Analyze handles POST /analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	upload, err := openUpload(c.Request, imageField)
	if err != nil {
		h.failUpload(c, err)
		return
	}

	// the key check precedes reading the file, so an unconfigured server
	// answers 502 whatever the upload body holds
	if h.analyzer == nil {
		h.fail(c, http.StatusBadGateway, metrics.OutcomeNotConfigured, msgMissingAPIKey, nil)
		return
	}

	data, err := upload.Read()
	if err != nil {
		h.failUpload(c, err)
		return
	}

	img, err := service.DecodeImage(data)
	if err != nil {
		h.fail(c, http.StatusBadRequest, metrics.OutcomeBadRequest, msgInvalidImage, err)
		return
	}

	raw, err := h.analyzer.QueryJSON(c.Request.Context(), img)
	if err != nil {
		h.fail(c, http.StatusBadGateway, metrics.OutcomeModelError, fmt.Sprintf(msgModelErrorFmt, err), err)
		return
	}

	estimate, err := service.ParseEstimate(raw)
	if err != nil {
		h.logger(c).Warn("model reply is not a JSON object", zap.String("raw", raw), zap.Error(err))
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInvalidJSON).Inc()
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInvalidJSON, Raw: &raw})
		return
	}

	h.logger(c).Info("nutrition estimate produced",
		zap.String("filename", upload.Filename),
		zap.String("format", img.Format),
		zap.Int("bytes", len(data)))
	metrics.RequestsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	c.JSON(http.StatusOK, estimate)
}

func (h *AnalyzeHandler) failUpload(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		h.fail(c, http.StatusRequestEntityTooLarge, metrics.OutcomeTooLarge, msgFileTooLarge, err)
	case errors.Is(err, ErrNoSelectedFile):
		h.fail(c, http.StatusBadRequest, metrics.OutcomeBadRequest, msgNoSelectedFile, err)
	case errors.Is(err, ErrUploadRead):
		h.fail(c, http.StatusBadRequest, metrics.OutcomeBadRequest, msgInvalidImage, err)
	default:
		h.fail(c, http.StatusBadRequest, metrics.OutcomeBadRequest, msgNoFilePart, err)
	}
}

func (h *AnalyzeHandler) fail(c *gin.Context, status int, outcome, message string, err error) {
	fields := []zap.Field{zap.Int("status", status), zap.String("message", message)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		_ = c.Error(err)
	}
	h.logger(c).Warn("analyze request failed", fields...)

	metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	c.JSON(status, ErrorResponse{Error: message})
}

func (h *AnalyzeHandler) logger(c *gin.Context) *zap.Logger {
	return h.log.With(zap.String("request_id", c.GetString(middleware.RequestIDKey)))
}

// RegisterRoutes registers /analyze on the given group. Extra middleware
// (CORS, rate limiting) applies to this route only.
func (h *AnalyzeHandler) RegisterRoutes(router gin.IRouter, mw ...gin.HandlerFunc) {
	analyze := router.Group("/analyze", mw...)
	{
		analyze.POST("", h.Analyze)
		// preflight is answered by the CORS middleware; the route only has
		// to exist so the request reaches it
		analyze.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}
