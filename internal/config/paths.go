package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	WebDir        string
	StaticDir     string
	DataDir       string
	ExportsDir    string
	ReportsDir    string
	ChartsDir     string
	CacheDir      string
	LogsDir       string

	// Input data files
	DatasetFile   string
	ReferenceFile string

	// Well-known output files (simplified paths in exports/reports directories)
	ForecastsCSV  string
	ForecastsJSON string
	GrowthCSV     string
	SummaryTXT    string
	WorkbookXLSX  string
	ReportHTML    string
	ReportPDF     string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	// Get the directory containing the executable
	exeDir := filepath.Dir(exe)

	// Log the resolved executable directory for debugging
	if logger := slog.Default(); logger != nil {
		logger.Info("Resolved executable directory",
			slog.String("exe_path", exe),
			slog.String("exe_dir", exeDir))
	}

	// All paths are relative to the executable directory
	// This ensures the application works correctly whether run from dev/ or dist/
	// Directory structure:
	// dist/
	//   ├── data/
	//   │   ├── ethiopia_fi_unified_data.csv
	//   │   ├── reference_codes.csv
	//   │   ├── exports/     (Generated CSV/JSON/XLSX outputs)
	//   │   ├── reports/     (Generated HTML/PDF reports)
	//   │   │   └── charts/  (Chart images embedded into reports)
	//   │   └── cache/       (Temporary files)
	//   ├── logs/            (Application logs)
	//   └── web/             (Frontend assets)

	dataDir := filepath.Join(exeDir, "data")
	exportsDir := filepath.Join(dataDir, "exports")
	reportsDir := filepath.Join(dataDir, "reports")
	chartsDir := filepath.Join(reportsDir, "charts")

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		WebDir:        filepath.Join(exeDir, "web"),
		StaticDir:     filepath.Join(exeDir, "web", "static"),
		ExportsDir:    exportsDir,
		ReportsDir:    reportsDir,
		ChartsDir:     chartsDir,
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(exeDir, "logs"),

		// Input data files (root of the data directory)
		DatasetFile:   filepath.Join(dataDir, "ethiopia_fi_unified_data.csv"),
		ReferenceFile: filepath.Join(dataDir, "reference_codes.csv"),

		// Well-known output files
		ForecastsCSV:  filepath.Join(exportsDir, "indicator_forecasts.csv"),
		ForecastsJSON: filepath.Join(exportsDir, "indicator_forecasts.json"),
		GrowthCSV:     filepath.Join(exportsDir, "indicator_growth.csv"),
		SummaryTXT:    filepath.Join(exportsDir, "forecast_summary.txt"),
		WorkbookXLSX:  filepath.Join(exportsDir, "efi_dashboard_workbook.xlsx"),
		ReportHTML:    filepath.Join(reportsDir, "ethiopia_fi_report.html"),
		ReportPDF:     filepath.Join(reportsDir, "ethiopia_fi_report.pdf"),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ExportsDir,
		p.ReportsDir,
		p.ChartsDir,
		p.CacheDir,
		p.LogsDir,
		p.WebDir,
		p.StaticDir,
	}

	// Log directory creation
	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		// Log successful directory creation
		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetIndicatorPillar determines the inclusion pillar for a given indicator code
func GetIndicatorPillar(code string) string {
	// Gender-disaggregated series carry their own pillar regardless of prefix
	gender := []string{"ACC_OWNERSHIP_F", "ACC_OWNERSHIP_M", "USG_DIGITAL_PAYMENT_F",
		"USG_DIGITAL_PAYMENT_M", "GEN_GAP_OWNERSHIP"}

	codeUpper := strings.ToUpper(code)

	for _, g := range gender {
		if codeUpper == g {
			return "GENDER"
		}
	}

	switch {
	case strings.HasPrefix(codeUpper, "ACC_"):
		return "ACCESS"
	case strings.HasPrefix(codeUpper, "USG_"):
		return "USAGE"
	case strings.HasPrefix(codeUpper, "QLT_"):
		return "QUALITY"
	case strings.HasPrefix(codeUpper, "IMP_"):
		return "IMPACT"
	}

	// Default to "other" for uncategorized indicator codes
	return "other"
}

// GetDatasetPath returns the unified dataset CSV path
// This ONLY uses the executable directory path - no current working directory fallback
func GetDatasetPath() (string, error) {
	paths, err := GetPaths()
	if err != nil {
		return "", fmt.Errorf("failed to get paths: %w", err)
	}

	logger := slog.Default()
	if logger != nil {
		wd, _ := os.Getwd()
		absPath, _ := filepath.Abs(paths.DatasetFile)

		logger.Info("Dataset path resolution",
			slog.Group("paths",
				slog.String("configured", paths.DatasetFile),
				slog.String("absolute", absPath),
				slog.String("executable_dir", paths.ExecutableDir),
			),
			slog.Group("environment",
				slog.String("working_dir", wd),
			),
			slog.Group("status",
				slog.Bool("file_exists", FileExists(paths.DatasetFile)),
				slog.String("method", "executable-relative"),
			),
		)
	}

	return paths.DatasetFile, nil
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the path to a static file
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// GetExportPath returns the path for an exported data file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetChartPath returns the path for a chart image file
func (p *Paths) GetChartPath(filename string) string {
	return filepath.Join(p.ChartsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetForecastsCSVPath returns the path for the indicator_forecasts.csv file
func (p *Paths) GetForecastsCSVPath() string {
	return p.ForecastsCSV
}

// GetForecastsJSONPath returns the path for the indicator_forecasts.json file
func (p *Paths) GetForecastsJSONPath() string {
	return p.ForecastsJSON
}

// GetGrowthCSVPath returns the path for the indicator_growth.csv file
func (p *Paths) GetGrowthCSVPath() string {
	return p.GrowthCSV
}

// GetWorkbookPath returns the path for the efi_dashboard_workbook.xlsx file
func (p *Paths) GetWorkbookPath() string {
	return p.WorkbookXLSX
}

// GetReportHTMLPath returns the path for the ethiopia_fi_report.html file
func (p *Paths) GetReportHTMLPath() string {
	return p.ReportHTML
}

// GetReportPDFPath returns the path for the ethiopia_fi_report.pdf file
func (p *Paths) GetReportPDFPath() string {
	return p.ReportPDF
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("charts", p.ChartsDir),
			slog.String("cache", p.CacheDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.Group("data_files",
			slog.String("dataset", p.DatasetFile),
			slog.String("reference_codes", p.ReferenceFile),
		),
		slog.Group("output_files",
			slog.String("forecasts_csv", p.ForecastsCSV),
			slog.String("forecasts_json", p.ForecastsJSON),
			slog.String("growth_csv", p.GrowthCSV),
			slog.String("workbook_xlsx", p.WorkbookXLSX),
			slog.String("report_html", p.ReportHTML),
			slog.String("report_pdf", p.ReportPDF),
		))
}

// ValidateRequiredFiles checks if critical files exist and returns detailed error information
func (p *Paths) ValidateRequiredFiles() error {
	requiredFiles := map[string]string{
		"Dataset": p.DatasetFile,
	}

	var missingFiles []string
	for name, path := range requiredFiles {
		if !FileExists(path) {
			missingFiles = append(missingFiles, fmt.Sprintf("%s (%s)", name, path))
		}
	}

	if len(missingFiles) > 0 {
		return fmt.Errorf("required files missing: %s", strings.Join(missingFiles, ", "))
	}

	return nil
}
