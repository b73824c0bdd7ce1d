package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"eficli/internal/config"
	"eficli/internal/infrastructure"
	"eficli/internal/operations"
	"eficli/internal/services"
	"eficli/pkg/contracts"
)

// logHub reports pipeline progress updates on the logger instead of a
// WebSocket connection
type logHub struct {
	logger *slog.Logger
}

func (h *logHub) Broadcast(messageType string, data interface{}) {
	h.logger.Info("pipeline update",
		slog.String("event", messageType),
		slog.Any("data", data))
}

func main() {
	datasetPath := flag.String("dataset", "", "path to the unified dataset CSV (defaults to data/ethiopia_fi_unified_data.csv relative to executable)")
	outputDir := flag.String("out", "", "output directory for exports (defaults to data/exports)")
	chartsDir := flag.String("charts", "", "output directory for chart payloads (defaults to data/exports/charts)")
	step := flag.String("step", "", "run a single pipeline step (load, quality, forecast, export, report); empty runs the full pipeline")
	horizon := flag.String("horizon", "", "comma separated forecast years, e.g. 2025,2026,2027")
	skipReport := flag.Bool("skip-report", false, "skip HTML/PDF report generation")
	showVersion := flag.Bool("version", false, "print version and exit")

	scenarios := map[string]float64{}
	flag.Func("scenario", "scenario override as name=rate, repeatable (e.g. -scenario accelerated=4.5)", func(value string) error {
		name, rate, ok := strings.Cut(value, "=")
		if !ok {
			return fmt.Errorf("expected name=rate, got %q", value)
		}
		parsed, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", rate, err)
		}
		if parsed < 0 {
			return fmt.Errorf("scenario rate must be non-negative, got %s", rate)
		}
		scenarios[strings.TrimSpace(name)] = parsed
		return nil
	})
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = &config.Config{
			Logging: config.LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if *step != "" && *step != operations.FullPipeline {
		valid := false
		for _, id := range operations.StepIDs() {
			if *step == id {
				valid = true
				break
			}
		}
		if !valid {
			logger.Error("Unknown pipeline step",
				slog.String("step", *step),
				slog.String("valid", strings.Join(operations.StepIDs(), ", ")))
			os.Exit(1)
		}
	}

	var horizonYears []int
	if *horizon != "" {
		for _, part := range strings.Split(*horizon, ",") {
			year, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				logger.Error("Invalid horizon year", slog.String("value", part))
				os.Exit(1)
			}
			horizonYears = append(horizonYears, year)
		}
		if !sort.IntsAreSorted(horizonYears) {
			logger.Error("Horizon years must be in ascending order", slog.Any("years", horizonYears))
			os.Exit(1)
		}
	}

	adapter := services.NewWebSocketOperationAdapter(&logHub{logger: logger})
	operationService, err := services.NewOperationService(cfg, adapter, logger)
	if err != nil {
		logger.Error("Failed to initialize operation service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mode := operations.ModeAnalysis
	request := operations.OperationRequest{
		Mode:         mode,
		DatasetPath:  *datasetPath,
		OutputDir:    *outputDir,
		ChartsDir:    *chartsDir,
		HorizonYears: horizonYears,
		Scenarios:    scenarios,
		SkipReport:   *skipReport,
	}
	if *step != "" && *step != operations.FullPipeline {
		request.Mode = operations.ModeStep
		request.Parameters = map[string]interface{}{"step": *step}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting analysis",
		slog.String("step", *step),
		slog.Bool("skip_report", *skipReport),
		slog.Any("horizon", horizonYears))

	response, err := operationService.ExecuteOperation(ctx, request)
	if err != nil {
		logger.Error("Analysis failed", slog.String("error", err.Error()))
		if response != nil {
			printStepResults(response)
		}
		os.Exit(1)
	}

	printStepResults(response)

	if response.Status != operations.OperationStatusCompleted {
		logger.Error("Analysis did not complete",
			slog.String("status", string(response.Status)),
			slog.String("error", response.Error))
		os.Exit(1)
	}

	logger.Info("Analysis complete",
		slog.String("operation_id", response.ID),
		slog.Duration("duration", response.Duration),
		slog.String("exports_dir", paths.ExportsDir),
		slog.String("reports_dir", paths.ReportsDir))
}

func printStepResults(response *operations.OperationResponse) {
	ids := make([]string, 0, len(response.Steps))
	for id := range response.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		state := response.Steps[id]
		line := fmt.Sprintf("  %-10s %s", state.ID, state.Status)
		if state.Message != "" {
			line += "  " + state.Message
		}
		fmt.Println(line)
	}
}
