package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"eficli/internal/dataset"
	"eficli/internal/exporter"
	"eficli/internal/forecast"
	"eficli/internal/infrastructure"
	"eficli/internal/report"
	"eficli/internal/validation"
)

// AnalysisResult bundles everything the forecast step computes. The
// export and report steps consume it from the operation context.
type AnalysisResult struct {
	Forecasts map[string]forecast.IndicatorForecast `json:"forecasts"`
	Growth    map[string][]forecast.GrowthPeriod    `json:"growth"`
	Table     []forecast.ForecastRow                `json:"table"`
	Scenarios *forecast.ScenarioProjection          `json:"scenarios,omitempty"`
}

// QualityReport summarizes dataset health for the quality step. It is
// advisory: warnings never fail the pipeline, they ride the operation
// state so the dashboard and the manifest can surface them.
type QualityReport struct {
	Summary            dataset.Summary `json:"summary"`
	LowConfidenceShare float64         `json:"low_confidence_share"`
	IndicatorCoverage  map[string]int  `json:"indicator_coverage"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// reportStepProgress pushes a progress update to the in-memory step
// state and, when a broadcaster is wired, to connected dashboards.
func reportStepProgress(options *StepOptions, state *OperationState, stepID string, progress int, message string) {
	if stepState := state.GetStep(stepID); stepState != nil {
		stepState.UpdateProgress(float64(progress), message)
	}
	if options != nil && options.StatusBroadcaster != nil {
		options.StatusBroadcaster.UpdateStepProgress(state.ID, stepID, progress, message)
	}
}

// stringConfig reads a string configuration value from the state
func stringConfig(state *OperationState, key string) string {
	if v, ok := state.GetConfig(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// boolConfig reads a boolean configuration value from the state
func boolConfig(state *OperationState, key string) bool {
	if v, ok := state.GetConfig(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// horizonConfig reads the forecast horizon. Requests built in-process
// carry []int; requests round-tripped through JSON arrive as
// []interface{} of float64.
func horizonConfig(state *OperationState) []int {
	v, ok := state.GetConfig(ConfigKeyHorizonYears)
	if !ok {
		return nil
	}
	switch years := v.(type) {
	case []int:
		return years
	case []interface{}:
		out := make([]int, 0, len(years))
		for _, y := range years {
			switch n := y.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return nil
}

// scenarioConfig reads the scenario overrides, tolerating the JSON
// round-trip shape the same way horizonConfig does.
func scenarioConfig(state *OperationState) forecast.ScenarioSet {
	v, ok := state.GetConfig(ConfigKeyScenarios)
	if !ok {
		return nil
	}
	switch scenarios := v.(type) {
	case map[string]float64:
		return forecast.ScenarioSet(scenarios)
	case forecast.ScenarioSet:
		return scenarios
	case map[string]interface{}:
		out := make(forecast.ScenarioSet, len(scenarios))
		for name, rate := range scenarios {
			if r, ok := rate.(float64); ok {
				out[name] = r
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// datasetFromState returns the loaded dataset, loading it from the
// configured path when the load step did not run (single-step mode).
func datasetFromState(ctx context.Context, state *OperationState, logger *slog.Logger) (*dataset.Dataset, error) {
	if v, ok := state.GetContext(ContextKeyDataset); ok {
		if ds, ok := v.(*dataset.Dataset); ok && ds != nil {
			return ds, nil
		}
	}

	path := stringConfig(state, ConfigKeyDatasetPath)
	if path == "" {
		return nil, fmt.Errorf("no dataset in operation state and no dataset path configured")
	}

	if logger != nil {
		logger.InfoContext(ctx, "loading dataset for standalone step",
			slog.String("operation_id", state.ID),
			slog.String("path", path))
	}

	ds, err := dataset.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	state.SetContext(ContextKeyDataset, ds)
	state.SetContext(ContextKeyRecordsLoaded, ds.Len())
	return ds, nil
}

// analysisFromState returns the forecast step's output, computing it on
// the spot when the forecast step did not run (single-step mode).
func analysisFromState(ctx context.Context, state *OperationState, logger *slog.Logger) (*AnalysisResult, error) {
	if v, ok := state.GetContext(ContextKeyAnalysis); ok {
		if analysis, ok := v.(*AnalysisResult); ok && analysis != nil {
			return analysis, nil
		}
	}

	ds, err := datasetFromState(ctx, state, logger)
	if err != nil {
		return nil, err
	}

	analysis, err := computeAnalysis(ctx, state, ds, logger)
	if err != nil {
		return nil, err
	}

	state.SetContext(ContextKeyAnalysis, analysis)
	return analysis, nil
}

// computeAnalysis runs the trend fits, growth decomposition, display
// table and scenario projection over a loaded dataset.
func computeAnalysis(ctx context.Context, state *OperationState, ds *dataset.Dataset, logger *slog.Logger) (*AnalysisResult, error) {
	analyzer := forecast.NewAnalyzer(logger)
	if years := horizonConfig(state); len(years) > 0 {
		if err := analyzer.SetHorizon(years); err != nil {
			return nil, fmt.Errorf("configure horizon: %w", err)
		}
	}

	results, err := analyzer.Analyze(ctx, ds)
	if err != nil {
		return nil, err
	}

	growth := make(map[string][]forecast.GrowthPeriod, len(results))
	for code, bundle := range results {
		points := make([]forecast.Point, len(bundle.HistoricalYears))
		for i, year := range bundle.HistoricalYears {
			points[i] = forecast.Point{Year: year, Value: bundle.HistoricalValues[i]}
		}
		periods, err := forecast.GrowthPeriods(points)
		if err != nil {
			if logger != nil {
				logger.WarnContext(ctx, "growth decomposition skipped",
					slog.String("code", code),
					slog.String("error", err.Error()))
			}
			continue
		}
		growth[code] = periods
	}

	analysis := &AnalysisResult{
		Forecasts: results,
		Growth:    growth,
		Table:     forecast.ForecastTable(results),
	}

	// Scenario paths run off the primary indicator to the end of the
	// horizon. The policy target keeps its own earlier date.
	if primary, ok := results[forecast.CodeAccountOwnership]; ok {
		horizon := analyzer.Horizon()
		targetYear := horizon[len(horizon)-1]
		projection := forecast.ScenarioPaths(
			primary.CurrentValue,
			primary.Target,
			primary.CurrentYear,
			targetYear,
			scenarioConfig(state),
		)
		analysis.Scenarios = &projection
	}

	return analysis, nil
}

// LoadStep reads and validates the unified dataset CSV
type LoadStep struct {
	BaseStep
	logger    *slog.Logger
	options   *StepOptions
	validator *validation.FileValidator
}

// NewLoadStep creates the dataset load step
func NewLoadStep(logger *slog.Logger, options *StepOptions) *LoadStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger != nil {
		logger = logger.With(slog.String("step", StepIDLoad))
	}

	return &LoadStep{
		BaseStep:  NewBaseStep(StepIDLoad, StepNameLoad, nil),
		logger:    logger,
		options:   options,
		validator: validation.NewFileValidator(logger),
	}
}

// Validate checks that a dataset path is configured
func (s *LoadStep) Validate(state *OperationState) error {
	if stringConfig(state, ConfigKeyDatasetPath) == "" {
		return fmt.Errorf("dataset path not configured")
	}
	return nil
}

// Execute loads the dataset into the operation context
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	path := stringConfig(state, ConfigKeyDatasetPath)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "loading dataset",
			slog.String("operation_id", state.ID),
			slog.String("path", path))
	}

	reportStepProgress(s.options, state, s.ID(), 5, "Validating dataset file...")
	if err := s.validator.ValidateDatasetFile(path); err != nil {
		return fmt.Errorf("dataset validation failed: %w", err)
	}

	reportStepProgress(s.options, state, s.ID(), 30, "Parsing records...")
	loadStart := time.Now()
	ds, err := dataset.Load(ctx, path)
	if pt := GetOperationTracer(); pt != nil {
		var records, skipped int64
		if ds != nil {
			records = int64(ds.Len())
			skipped = int64(ds.Skipped())
		}
		infrastructure.RecordDatasetLoadMetrics(ctx, pt.Metrics(), path, records, skipped, time.Since(loadStart), err)
	}
	if err != nil {
		return fmt.Errorf("dataset load failed: %w", err)
	}
	if ds.Len() == 0 {
		return fmt.Errorf("dataset %s parsed to zero records", path)
	}

	state.SetContext(ContextKeyDataset, ds)
	state.SetContext(ContextKeyRecordsLoaded, ds.Len())

	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("records", ds.Len())
		stepState.SetMetadata("observations", len(ds.Observations()))
		stepState.SetMetadata("path", path)
	}

	reportStepProgress(s.options, state, s.ID(), 100, fmt.Sprintf("Loaded %d records", ds.Len()))
	return nil
}

// QualityStep runs coverage and confidence checks over the loaded
// dataset. Its warnings are advisory; only a structurally unusable
// dataset fails the step.
type QualityStep struct {
	BaseStep
	logger  *slog.Logger
	options *StepOptions
}

// NewQualityStep creates the data quality step
func NewQualityStep(logger *slog.Logger, options *StepOptions) *QualityStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger != nil {
		logger = logger.With(slog.String("step", StepIDQuality))
	}

	return &QualityStep{
		BaseStep: NewBaseStep(StepIDQuality, StepNameQuality, []string{StepIDLoad}),
		logger:   logger,
		options:  options,
	}
}

// Execute summarizes the dataset and records coverage warnings
func (s *QualityStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := datasetFromState(ctx, state, s.logger)
	if err != nil {
		return err
	}

	reportStepProgress(s.options, state, s.ID(), 20, "Summarizing dataset...")
	summary := ds.Summarize()

	quality := &QualityReport{
		Summary:           summary,
		IndicatorCoverage: make(map[string]int),
	}

	if summary.ByType[dataset.RecordObservation] == 0 {
		return fmt.Errorf("dataset has no observation records")
	}

	if summary.TotalRecords > 0 {
		quality.LowConfidenceShare = float64(summary.ByConfidence[dataset.ConfidenceLow]) / float64(summary.TotalRecords)
	}
	if quality.LowConfidenceShare > 0.5 {
		quality.Warnings = append(quality.Warnings,
			fmt.Sprintf("%.0f%% of records are low confidence", quality.LowConfidenceShare*100))
	}

	reportStepProgress(s.options, state, s.ID(), 60, "Checking indicator coverage...")
	for _, spec := range forecast.DefaultIndicators() {
		series, err := ds.TimeSeries(spec.Code)
		if err != nil {
			return fmt.Errorf("coverage check for %s: %w", spec.Code, err)
		}
		quality.IndicatorCoverage[spec.Code] = len(series)

		if len(series) < forecast.MinPointsForFit {
			msg := fmt.Sprintf("indicator %s has %d observation(s); trend fits need at least %d",
				spec.Code, len(series), forecast.MinPointsForFit)
			if !spec.Optional {
				return fmt.Errorf("required %s", msg)
			}
			quality.Warnings = append(quality.Warnings, msg)
		}
	}

	state.SetContext(ContextKeySummary, summary)
	state.SetContext(ContextKeyQualityReport, quality)

	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("indicators", summary.Indicators)
		stepState.SetMetadata("warnings", len(quality.Warnings))
	}

	if s.logger != nil && len(quality.Warnings) > 0 {
		s.logger.WarnContext(ctx, "quality checks raised warnings",
			slog.String("operation_id", state.ID),
			slog.Any("warnings", quality.Warnings))
	}

	reportStepProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("Quality checks passed with %d warning(s)", len(quality.Warnings)))
	return nil
}

// ForecastStep fits the trend models, decomposes growth and projects
// scenarios for the configured indicators
type ForecastStep struct {
	BaseStep
	logger  *slog.Logger
	options *StepOptions
}

// NewForecastStep creates the forecast generation step
func NewForecastStep(logger *slog.Logger, options *StepOptions) *ForecastStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger != nil {
		logger = logger.With(slog.String("step", StepIDForecast))
	}

	return &ForecastStep{
		BaseStep: NewBaseStep(StepIDForecast, StepNameForecast, []string{StepIDLoad, StepIDQuality}),
		logger:   logger,
		options:  options,
	}
}

// Execute produces the analysis bundle for the downstream steps
func (s *ForecastStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := datasetFromState(ctx, state, s.logger)
	if err != nil {
		return err
	}

	reportStepProgress(s.options, state, s.ID(), 10, "Fitting trend models...")
	fitStart := time.Now()
	analysis, err := computeAnalysis(ctx, state, ds, s.logger)
	if pt := GetOperationTracer(); pt != nil {
		var produced, skipped int64
		if analysis != nil {
			produced = int64(len(analysis.Forecasts))
			if tracked := int64(len(ds.Indicators())); tracked > produced {
				skipped = tracked - produced
			}
		}
		infrastructure.RecordForecastRunMetrics(ctx, pt.Metrics(), produced, skipped, time.Since(fitStart), err)
	}
	if err != nil {
		return fmt.Errorf("forecast computation failed: %w", err)
	}

	state.SetContext(ContextKeyAnalysis, analysis)

	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("indicators_forecast", len(analysis.Forecasts))
		stepState.SetMetadata("table_rows", len(analysis.Table))
		if analysis.Scenarios != nil {
			stepState.SetMetadata("scenario_years", len(analysis.Scenarios.Years))
		}
	}

	reportStepProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("Forecast ready for %d indicator(s)", len(analysis.Forecasts)))
	return nil
}

// ExportStep writes the CSV, JSON and workbook artifacts of a run
type ExportStep struct {
	BaseStep
	logger    *slog.Logger
	options   *StepOptions
	validator *validation.FileValidator
}

// NewExportStep creates the artifact export step
func NewExportStep(logger *slog.Logger, options *StepOptions) *ExportStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger != nil {
		logger = logger.With(slog.String("step", StepIDExport))
	}

	return &ExportStep{
		BaseStep:  NewBaseStep(StepIDExport, StepNameExport, []string{StepIDForecast}),
		logger:    logger,
		options:   options,
		validator: validation.NewFileValidator(logger),
	}
}

// Validate checks that an output directory is configured
func (s *ExportStep) Validate(state *OperationState) error {
	if stringConfig(state, ConfigKeyOutputDir) == "" {
		return fmt.Errorf("output directory not configured")
	}
	return nil
}

// Execute fans the artifact writers out into the output directory
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := datasetFromState(ctx, state, s.logger)
	if err != nil {
		return err
	}
	analysis, err := analysisFromState(ctx, state, s.logger)
	if err != nil {
		return err
	}

	outputDir := stringConfig(state, ConfigKeyOutputDir)
	reportStepProgress(s.options, state, s.ID(), 5, "Preparing output directory...")
	if err := s.validator.ValidateOutputDirectory(outputDir); err != nil {
		return err
	}

	reportStepProgress(s.options, state, s.ID(), 20, "Writing artifacts...")
	artifacts, err := exporter.NewExporter(s.logger).Export(ctx, exporter.Input{
		Dataset:     ds,
		DatasetPath: stringConfig(state, ConfigKeyDatasetPath),
		Forecasts:   analysis.Forecasts,
		Growth:      analysis.Growth,
		Table:       analysis.Table,
	}, outputDir)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	files := artifacts.Files()
	state.SetContext(ContextKeyExportFiles, files)

	if pt := GetOperationTracer(); pt != nil {
		csvCount := int64(len(files))
		if artifacts.Workbook != "" {
			csvCount--
			infrastructure.RecordExportMetrics(ctx, pt.Metrics(), 1, "xlsx")
		}
		infrastructure.RecordExportMetrics(ctx, pt.Metrics(), csvCount, "csv")
	}

	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("files_written", len(files))
		stepState.SetMetadata("output_dir", outputDir)
	}

	reportStepProgress(s.options, state, s.ID(), 100,
		fmt.Sprintf("Wrote %d artifact file(s)", len(files)))
	return nil
}

// ReportStep renders the HTML report and prints it to PDF
type ReportStep struct {
	BaseStep
	logger    *slog.Logger
	options   *StepOptions
	validator *validation.FileValidator

	// pdfTimeout bounds the headless Chrome print; zero keeps the
	// generator default
	pdfTimeout time.Duration
}

// NewReportStep creates the report generation step
func NewReportStep(logger *slog.Logger, options *StepOptions) *ReportStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger != nil {
		logger = logger.With(slog.String("step", StepIDReport))
	}

	return &ReportStep{
		BaseStep:  NewBaseStep(StepIDReport, StepNameReport, []string{StepIDForecast}),
		logger:    logger,
		options:   options,
		validator: validation.NewFileValidator(logger),
	}
}

// SetPDFTimeout overrides the Chrome print budget for this step
func (s *ReportStep) SetPDFTimeout(d time.Duration) {
	if d > 0 {
		s.pdfTimeout = d
	}
}

// Validate checks that an output directory is configured
func (s *ReportStep) Validate(state *OperationState) error {
	if stringConfig(state, ConfigKeyOutputDir) == "" {
		return fmt.Errorf("output directory not configured")
	}
	return nil
}

// Execute renders the report artifacts
func (s *ReportStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := datasetFromState(ctx, state, s.logger)
	if err != nil {
		return err
	}
	analysis, err := analysisFromState(ctx, state, s.logger)
	if err != nil {
		return err
	}

	outputDir := stringConfig(state, ConfigKeyOutputDir)
	if err := s.validator.ValidateOutputDirectory(outputDir); err != nil {
		return err
	}

	chartsDir := stringConfig(state, ConfigKeyChartsDir)
	if images, err := s.validator.ValidateChartsDirectory(chartsDir); err != nil {
		return err
	} else if s.logger != nil {
		s.logger.InfoContext(ctx, "charts directory scanned",
			slog.String("operation_id", state.ID),
			slog.String("charts_dir", chartsDir),
			slog.Int("images", images))
	}

	generator, err := report.NewGenerator(s.logger)
	if err != nil {
		return fmt.Errorf("report generator init failed: %w", err)
	}
	if s.pdfTimeout > 0 {
		generator.SetPDFTimeout(s.pdfTimeout)
	}

	stamp := time.Now().Format("20060102_150405")
	htmlPath := filepath.Join(outputDir, fmt.Sprintf("efi_outlook_%s.html", stamp))
	pdfPath := filepath.Join(outputDir, fmt.Sprintf("efi_outlook_%s.pdf", stamp))

	reportStepProgress(s.options, state, s.ID(), 20, "Rendering report...")
	renderStart := time.Now()
	artifacts, err := generator.Generate(ctx, report.Input{
		Dataset:   ds,
		Forecasts: analysis.Forecasts,
		Growth:    analysis.Growth,
		Scenarios: analysis.Scenarios,
		ChartsDir: chartsDir,
	}, htmlPath, pdfPath)
	if pt := GetOperationTracer(); pt != nil {
		pdfRendered := artifacts != nil && artifacts.PDFPath != ""
		infrastructure.RecordReportGenerationMetrics(ctx, pt.Metrics(), time.Since(renderStart), pdfRendered, err)
	}
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}

	files := artifacts.Files()
	state.SetContext(ContextKeyReportFiles, files)

	if stepState := state.GetStep(s.ID()); stepState != nil {
		stepState.SetMetadata("html_path", artifacts.HTMLPath)
		stepState.SetMetadata("pdf_rendered", artifacts.PDFPath != "")
	}

	message := "Report written (HTML only)"
	if artifacts.PDFPath != "" {
		message = "Report written (HTML and PDF)"
	}
	reportStepProgress(s.options, state, s.ID(), 100, message)
	return nil
}

// RegisterPipelineSteps registers the full analysis pipeline on a
// manager in dependency order. The report step inherits the manager's
// report timeout as its Chrome print budget.
func RegisterPipelineSteps(manager *Manager, logger *slog.Logger) error {
	options := &StepOptions{
		WebSocketManager:  manager.hub,
		EnableProgress:    true,
		StatusBroadcaster: manager.GetBroadcaster(),
	}

	reportStep := NewReportStep(logger, options)
	reportStep.SetPDFTimeout(manager.GetConfig().GetStepTimeout(StepIDReport))

	steps := []Step{
		NewLoadStep(logger, options),
		NewQualityStep(logger, options),
		NewForecastStep(logger, options),
		NewExportStep(logger, options),
		reportStep,
	}

	for _, step := range steps {
		if err := manager.RegisterStep(step); err != nil {
			return fmt.Errorf("register step %s: %w", step.ID(), err)
		}
	}
	return nil
}
