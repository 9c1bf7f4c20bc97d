package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaursimar9464/nutrisnap/backend/config"
	"github.com/kaursimar9464/nutrisnap/backend/internal/testhelpers"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServerHost:     "127.0.0.1",
		ServerPort:     "0",
		StaticDir:      t.TempDir(),
		OpenAIModel:    "gpt-4o",
		OpenAIBaseURL:  "https://api.openai.com/v1",
		OpenAITimeout:  time.Second,
		AllowedOrigin:  "https://frontend.example",
		MaxUploadBytes: 1 << 20,
	}
}

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	require.NotNil(t, server)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","model_configured":false}`, w.Body.String())
}

func TestNewWithAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.OpenAIAPIKey = "sk-test"
	server, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.JSONEq(t, `{"status":"healthy","model_configured":true}`, w.Body.String())
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1/0?max_retries=-1&dial_timeout=200ms"
	cfg.RateLimitPerMinute = 10

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRateLimitedAnalyze(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.RedisURL = testhelpers.RedisURL(t)
	cfg.RateLimitPerMinute = 1

	server, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, server.redis)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	// a fresh client address per run keeps counts from a shared Redis apart
	n := time.Now().UnixNano()
	remoteAddr := fmt.Sprintf("[2001:db8::%x:%x]:40000", (n>>16)&0xffff, n&0xffff)
	analyze := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		return w
	}

	first := analyze()
	assert.Equal(t, http.StatusBadRequest, first.Code, "first call reaches the handler")
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := analyze()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestStartAndShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// give ListenAndServe a moment to bind
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}
