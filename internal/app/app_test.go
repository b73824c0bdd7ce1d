package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eficli/internal/config"
	"eficli/internal/infrastructure"
)

var (
	testOTelOnce      sync.Once
	testOTelProviders *infrastructure.OTelProviders
	testOTelErr       error
)

// testOTel initializes the OpenTelemetry providers once per test binary.
// The Prometheus exporter registers collectors with the default registry,
// so repeated initialization would collide.
func testOTel(t *testing.T) *infrastructure.OTelProviders {
	t.Helper()
	testOTelOnce.Do(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		cfg := infrastructure.DefaultOTelConfig()
		testOTelProviders, testOTelErr = infrastructure.InitializeOTel(cfg, logger)
	})
	require.NoError(t, testOTelErr)
	return testOTelProviders
}

func newTestAppConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  5 * time.Second,
			OperationTimeout: time.Minute,
		},
		Security: config.SecurityConfig{
			EnableCORS: true,
			RateLimit:  config.RateLimitConfig{Enabled: false},
		},
		Logging: config.LoggingConfig{Level: "info"},
		Paths:   config.PathsConfig{DataDir: t.TempDir()},
		Forecast: config.ForecastConfig{
			Horizon:    []int{2025, 2026, 2027},
			TargetYear: 2025,
		},
		Report: config.ReportConfig{
			Title:         "Ethiopia Financial Inclusion Outlook",
			RenderTimeout: 30 * time.Second,
		},
	}
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	providers := testOTel(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	app := &Application{
		Config:          newTestAppConfig(t),
		Logger:          logger,
		OTelProviders:   providers,
		BusinessMetrics: metrics,
	}
	require.NoError(t, app.initializeServices())
	t.Cleanup(func() {
		app.WebSocketHub.Stop()
	})

	app.setupRouter()
	app.createServer()
	return app
}

func TestGenerateBuildID(t *testing.T) {
	id := generateBuildID()
	assert.Len(t, id, 12)
	assert.Equal(t, id, generateBuildID())
}

func TestIsDevelopmentMode(t *testing.T) {
	app := &Application{Config: newTestAppConfig(t)}

	t.Setenv("GO_ENV", "")
	t.Setenv("EFI_ENV", "")
	assert.False(t, app.isDevelopmentMode())

	t.Setenv("EFI_ENV", "development")
	assert.True(t, app.isDevelopmentMode())
}

func TestGetCORSConfig(t *testing.T) {
	t.Setenv("GO_ENV", "")
	t.Setenv("EFI_ENV", "")

	cfg := newTestAppConfig(t)
	cfg.Security.AllowedOrigins = []string{"https://dashboard.efipulse.et"}
	app := &Application{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	corsConfig := app.getCORSConfig()
	assert.Contains(t, corsConfig.AllowedOrigins, "http://localhost:8080")
	assert.Contains(t, corsConfig.AllowedOrigins, "https://dashboard.efipulse.et")
	assert.True(t, corsConfig.AllowCredentials)

	t.Setenv("EFI_ENV", "development")
	devConfig := app.getCORSConfig()
	assert.Contains(t, devConfig.AllowedOrigins, "http://localhost:3000")
}

func TestCreateServer(t *testing.T) {
	app := &Application{Config: newTestAppConfig(t)}
	app.createServer()

	require.NotNil(t, app.Server)
	assert.Equal(t, ":8080", app.Server.Addr)
	assert.Equal(t, 15*time.Second, app.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, app.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, app.Server.IdleTimeout)
}

func TestInitializeServices(t *testing.T) {
	app := newTestApplication(t)

	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.OperationService)
	assert.NotNil(t, app.DataService)
	assert.NotNil(t, app.ForecastService)
	assert.NotNil(t, app.ReportService)
	assert.NotNil(t, app.HealthService)
}

func TestRouterLivenessEndpoint(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
}

func TestRouterVersionEndpoint(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, VERSION, body["version"])
}

func TestRouterOperationTypes(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/api/operations/types", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var types []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.NotEmpty(t, types)
}

func TestRouterPrometheusEndpoint(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestRouterSecurityHeaders(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRouterUnknownRoute(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopShutsDownCleanly(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.OperationService.StartQueue(ctx)

	// Bind to an ephemeral port so the test does not collide with a
	// running instance
	app.Server.Addr = "127.0.0.1:0"

	// The OTel providers are shared across tests, so they are not shut
	// down here
	app.OTelProviders = nil

	err := app.Stop(context.Background())
	assert.NoError(t, err)
}

func TestWebSocketHubBroadcastAfterInit(t *testing.T) {
	app := newTestApplication(t)

	// Broadcast with no clients connected must not block
	done := make(chan struct{})
	go func() {
		app.WebSocketHub.Broadcast("operation_update", map[string]interface{}{
			"operation_id": "op-1",
			"status":       "pending",
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no connected clients")
	}
}
