package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"eficli/internal/config"
	"eficli/internal/dataset"
	"eficli/internal/forecast"
	"eficli/pkg/contracts"
)

func main() {
	datasetPath := flag.String("dataset", "", "path to the unified dataset CSV (defaults to data/ethiopia_fi_unified_data.csv relative to executable)")
	outputDir := flag.String("out", "", "output directory for forecast artifacts (defaults to data/exports)")
	horizon := flag.String("horizon", "", "comma separated forecast years, e.g. 2025,2026,2027")
	showVersion := flag.Bool("version", false, "print version and exit")
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

	if *datasetPath == "" {
		*datasetPath = paths.DatasetFile
	}
	if *outputDir == "" {
		*outputDir = paths.ExportsDir
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "error", err, "dir", *outputDir)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx := context.Background()
	ds, err := dataset.Load(ctx, *datasetPath)
	if err != nil {
		logger.Error("Failed to load dataset", slog.String("path", *datasetPath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Dataset loaded",
		slog.String("path", *datasetPath),
		slog.Int("records", ds.Len()))

	analyzer := forecast.NewAnalyzer(logger)
	if *horizon != "" {
		var years []int
		for _, part := range strings.Split(*horizon, ",") {
			year, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				logger.Error("Invalid horizon year", slog.String("value", part))
				os.Exit(1)
			}
			years = append(years, year)
		}
		if err := analyzer.SetHorizon(years); err != nil {
			logger.Error("Invalid horizon", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	results, err := analyzer.Analyze(ctx, ds)
	if err != nil {
		logger.Error("Forecast analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	printForecastTable(results)

	csvPath := filepath.Join(*outputDir, "forecasts.csv")
	if err := forecast.SaveForecastsCSV(results, csvPath); err != nil {
		logger.Error("Failed to write forecast CSV", slog.String("error", err.Error()))
		os.Exit(1)
	}

	jsonPath := filepath.Join(*outputDir, "forecasts.json")
	if err := forecast.SaveForecastsJSON(results, jsonPath); err != nil {
		logger.Error("Failed to write forecast JSON", slog.String("error", err.Error()))
		os.Exit(1)
	}

	summaryPath := filepath.Join(*outputDir, "forecast_summary.txt")
	if err := forecast.SaveSummaryReport(results, summaryPath); err != nil {
		logger.Error("Failed to write summary report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Forecast artifacts written",
		slog.String("csv", csvPath),
		slog.String("json", jsonPath),
		slog.String("summary", summaryPath))
}

func printForecastTable(results map[string]forecast.IndicatorForecast) {
	rows := forecast.ForecastTable(results)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Code != rows[j].Code {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Year < rows[j].Year
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDICATOR\tYEAR\tLINEAR\tCI 95%\tLOG\tTARGET")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			row.Code, row.Year, row.LinearForecast, row.ConfidenceInterval, row.LogForecast, row.Target)
	}
	w.Flush()
}
