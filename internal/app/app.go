package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"eficli/internal/config"
	apierrors "eficli/internal/errors"
	"eficli/internal/infrastructure"
	customMiddleware "eficli/internal/middleware"
	"eficli/internal/operations"
	"eficli/internal/services"
	handlers "eficli/internal/transport/http"
	ws "eficli/internal/websocket"
	"eficli/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const (
	VERSION  = "v" + contracts.Version
	REPO_URL = "https://github.com/efipulse/efi-pulse"
	AppName  = "EFI Pulse - Ethiopia Financial Inclusion Analytics"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application wires configuration, services, and the HTTP server
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	WebSocketHub     *ws.Hub
	OperationService *services.OperationService
	DataService      *services.DataService
	ForecastService  *services.ForecastService
	ReportService    *services.ReportService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	BusinessMetrics  *infrastructure.BusinessMetrics
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	if !config.FileExists(cfg.GetDatasetFile()) {
		logger.Warn("Unified dataset not found",
			slog.String("path", cfg.GetDatasetFile()),
			slog.String("action", "run the load step or place the dataset file before starting an analysis"))
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if err := operations.InitGlobalOperationTracer(otelProviders); err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket OpenTelemetry metrics: %w", err)
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:          cfg,
		Logger:          logger,
		OTelProviders:   otelProviders,
		BusinessMetrics: businessMetrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	adapter := services.NewWebSocketOperationAdapter(hub)
	operationService, err := services.NewOperationService(a.Config, adapter, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize operation service: %w", err)
	}
	a.OperationService = operationService

	dataService, err := services.NewDataServiceWithLogger(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize data service: %w", err)
	}
	a.DataService = dataService

	a.ForecastService = services.NewForecastServiceWithLogger(a.Config, dataService, a.Logger)

	reportService, err := services.NewReportServiceWithLogger(a.Config, dataService, a.ForecastService, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report service: %w", err)
	}
	a.ReportService = reportService

	a.HealthService = services.NewHealthServiceWithBuildInfo(
		VERSION,
		REPO_URL,
		BuildTime,
		BuildID,
		a.Config,
		a.OperationService.GetManager(),
		a.WebSocketHub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that does not wrap the ResponseWriter, so the
	// WebSocket upgrade keeps working
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.BusinessMetricsMiddleware(a.BusinessMetrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus exposition endpoint stays outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Use(validation.ValidateRequest)

		// Standard timeout for read-mostly endpoints
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)

			metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP)
			r.Mount("/metrics", metricsHandler.Routes())

			dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
			r.Mount("/data", dataHandler.Routes())

			forecastHandler := handlers.NewForecastHandler(a.ForecastService, a.DataService, a.Logger, errorHandler)
			r.Mount("/forecasts", forecastHandler.Routes())
			r.Mount("/charts", forecastHandler.ChartRoutes())

			r.Post("/logs", handlers.NewClientLogHandler(a.Logger).Handle)
		})

		// Report generation renders HTML and optionally PDF, so it gets
		// the long operation timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))
			r.Use(customMiddleware.AuditLog(a.Logger))

			reportHandler := handlers.NewReportHandler(a.ReportService, a.Logger, errorHandler)
			r.Mount("/reports", reportHandler.Routes())

			operationsHandler := handlers.NewOperationsHandler(a.OperationService, a.WebSocketHub, a.Logger)
			operationsHandler.SetMetrics(a.BusinessMetrics)

			operationsMetricsHandler, err := handlers.NewOperationsMetricsHandler(a.OperationService, a.Logger)
			if err != nil {
				a.Logger.Error("Failed to create operations metrics handler", slog.String("error", err.Error()))
			}

			r.Route("/operations", func(r chi.Router) {
				if operationsMetricsHandler != nil {
					r.Mount("/metrics", operationsMetricsHandler.Routes())
				}
				r.Mount("/", operationsHandler.Routes())
			})
		})
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if a.isDevelopmentMode() {
		cfg.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
	} else {
		cfg.AllowedOrigins = []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}
	}

	a.Logger.Info("CORS configured",
		slog.Bool("development", a.isDevelopmentMode()),
		slog.Any("allowed_origins", cfg.AllowedOrigins))

	return cfg
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	if env := os.Getenv("EFI_ENV"); env == "development" {
		return true
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	paths, _ := config.GetPaths()
	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("executable_dir", paths.ExecutableDir),
		slog.String("data_dir", paths.DataDir),
		slog.String("exports_dir", paths.ExportsDir),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("logs_dir", paths.LogsDir))

	a.OperationService.StartQueue(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.OperationService.StopQueue(30 * time.Second); err != nil {
		a.Logger.ErrorContext(ctx, "Failed to stop job queue gracefully", slog.String("error", err.Error()))
	}

	if err := a.OperationService.CancelAll(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error cancelling operations", slog.String("error", err.Error()))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// handleWebSocket handles WebSocket connections
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if a.isDevelopmentMode() {
				return true
			}
			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.WarnContext(ctx, "WebSocket origin not allowed",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.GetMetrics().RecordFailedConnection()
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClientWithTrace(a.WebSocketHub, conn, reqID, a.Logger)
	a.WebSocketHub.Register(client)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	go client.WritePump()
	go client.ReadPump()
}

// performStartupHealthCheck verifies that the working directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	var warnings []string

	directories := map[string]string{
		"Data":    paths.DataDir,
		"Exports": paths.ExportsDir,
		"Reports": paths.ReportsDir,
		"Charts":  paths.ChartsDir,
		"Logs":    paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if !config.FileExists(paths.DatasetFile) {
		a.Logger.InfoContext(ctx, "Dataset file not present yet",
			slog.String("path", paths.DatasetFile))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
