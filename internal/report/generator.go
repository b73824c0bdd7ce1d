package report

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
)

//go:embed report.html.tmpl
var reportTemplate string

// Generation date format from the original report, e.g.
// "August 23, 2026 at 14:05".
const generationDateFormat = "January 2, 2006 at 15:04"

const defaultPDFTimeout = 2 * time.Minute

// Input carries everything one report rendering needs. Forecasts,
// Growth and Scenarios may be nil; the affected sections degrade to a
// short note instead of failing the render.
type Input struct {
	Dataset   *dataset.Dataset
	Forecasts map[string]forecast.IndicatorForecast
	Growth    map[string][]forecast.GrowthPeriod
	Scenarios *forecast.ScenarioProjection
	ChartsDir string
}

// Artifacts lists the files a generation run produced. PDFPath is
// empty when PDF rendering was skipped or failed.
type Artifacts struct {
	HTMLPath string `json:"html_path"`
	PDFPath  string `json:"pdf_path,omitempty"`
}

// Files lists the produced file paths.
func (a *Artifacts) Files() []string {
	var files []string
	if a.HTMLPath != "" {
		files = append(files, a.HTMLPath)
	}
	if a.PDFPath != "" {
		files = append(files, a.PDFPath)
	}
	return files
}

// Generator renders the analysis report. WriteHTML and RenderPDF are
// separate operations so callers can trace and time the Chrome step
// on its own.
type Generator struct {
	logger     *slog.Logger
	tmpl       *template.Template
	pdfTimeout time.Duration
}

// NewGenerator parses the embedded report template and returns a
// ready generator.
func NewGenerator(logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	return &Generator{
		logger:     logger.With(slog.String("component", "report")),
		tmpl:       tmpl,
		pdfTimeout: defaultPDFTimeout,
	}, nil
}

// SetPDFTimeout overrides the Chrome print timeout.
func (g *Generator) SetPDFTimeout(d time.Duration) {
	if d > 0 {
		g.pdfTimeout = d
	}
}

// WriteHTML renders the report and writes it to outputPath. The file
// appears atomically via a temp file and rename.
func (g *Generator) WriteHTML(ctx context.Context, in Input, outputPath string) error {
	if in.Dataset == nil {
		return fmt.Errorf("report input has no dataset")
	}
	if outputPath == "" {
		return fmt.Errorf("report output path is empty")
	}

	start := time.Now()
	data := g.buildTemplateData(in)

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render report template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmpPath := outputPath + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write report html: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize report html: %w", err)
	}

	g.logger.InfoContext(ctx, "report html written",
		slog.String("path", outputPath),
		slog.Int("bytes", buf.Len()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Generate writes the HTML report and then attempts the PDF. A PDF
// failure is downgraded to a warning so the HTML always survives;
// pass an empty pdfPath to skip the PDF entirely.
func (g *Generator) Generate(ctx context.Context, in Input, htmlPath, pdfPath string) (*Artifacts, error) {
	if err := g.WriteHTML(ctx, in, htmlPath); err != nil {
		return nil, err
	}

	artifacts := &Artifacts{HTMLPath: htmlPath}
	if pdfPath == "" {
		return artifacts, nil
	}

	if err := g.RenderPDF(ctx, htmlPath, pdfPath); err != nil {
		g.logger.WarnContext(ctx, "pdf generation failed, keeping html report",
			slog.String("html", htmlPath),
			slog.String("error", err.Error()))
		return artifacts, nil
	}

	artifacts.PDFPath = pdfPath
	return artifacts, nil
}

// templateData is the fully precomputed model the template renders.
// Everything is formatted here so the template stays free of logic
// beyond conditionals and ranges.
type templateData struct {
	Title           string
	GenerationDate  string
	DataPeriod      string
	ForecastHorizon string

	Stats    Stats
	Metrics  []metricBox
	Findings []string

	Charts ChartSet

	Indicators []indicatorSection

	GrowthRows []growthRow

	ForecastRows []forecast.ForecastRow

	Scenarios *scenarioTable

	Events []eventRow

	Sources []sourceCount
}

type metricBox struct {
	Value    string
	Label    string
	Change   string
	Negative bool
}

type indicatorSection struct {
	Code    string
	Name    string
	Pillar  string
	Chart   template.URL
	Caption string
	History []historyRow
	Target  string
}

type historyRow struct {
	Year  int
	Value string
}

type growthRow struct {
	Indicator string
	Period    string
	Span      int
	Start     string
	End       string
	Total     string
	Annual    string
}

type scenarioTable struct {
	Names  []string
	Rows   []scenarioRow
	Target string
}

type scenarioRow struct {
	Year   int
	Values []string
}

type eventRow struct {
	Date     string
	Title    string
	Category string
	Related  string
	Impact   string
}

type sourceCount struct {
	Name    string
	Records int
}

func (g *Generator) buildTemplateData(in Input) templateData {
	stats := BuildStats(in.Dataset)
	charts := LoadCharts(in.ChartsDir, g.logger)

	data := templateData{
		Title:           "Ethiopia Financial Inclusion Forecasting System - Analysis Report",
		GenerationDate:  time.Now().Format(generationDateFormat),
		DataPeriod:      yearRange(stats.FirstObsYear, stats.LatestObsYear),
		ForecastHorizon: horizonRange(in.Forecasts),
		Stats:           stats,
		Charts:          charts,
	}

	data.Metrics = buildMetrics(stats)
	data.Findings = buildFindings(stats, in.Forecasts)
	data.Indicators = buildIndicatorSections(in, charts)
	data.GrowthRows = buildGrowthRows(in.Forecasts, in.Growth)
	data.ForecastRows = forecast.ForecastTable(in.Forecasts)
	data.Scenarios = buildScenarioTable(in.Scenarios)
	data.Events = buildEventRows(in.Dataset)
	data.Sources = buildSourceCounts(in.Dataset)

	return data
}

func buildMetrics(stats Stats) []metricBox {
	var boxes []metricBox

	if stats.Ownership.Present {
		boxes = append(boxes, metricBox{
			Value:    formatPercent(stats.Ownership.Latest),
			Label:    fmt.Sprintf("Account Ownership (%d)", stats.Ownership.LatestYear),
			Change:   changeSince(stats.Ownership),
			Negative: stats.Ownership.ChangePP < 0,
		})
	}

	if stats.Digital.Present {
		boxes = append(boxes, metricBox{
			Value:    formatPercent(stats.Digital.Latest),
			Label:    fmt.Sprintf("Digital Payments (%d)", stats.Digital.LatestYear),
			Change:   changeSince(stats.Digital),
			Negative: stats.Digital.ChangePP < 0,
		})
	}

	if stats.MobileMoneyAccounts != "" {
		boxes = append(boxes, metricBox{
			Value:  stats.MobileMoneyAccounts,
			Label:  "Mobile Money Accounts",
			Change: stats.MobileMoneySource,
		})
	}

	if stats.GenderGap.Present {
		box := metricBox{
			Value: formatPP(stats.GenderGap.Latest),
			Label: fmt.Sprintf("Gender Gap (%d)", stats.GenderGap.LatestYear),
		}
		switch {
		case stats.GenderGap.ChangePP < 0:
			box.Change = fmt.Sprintf("Reduced from %s", formatPP(stats.GenderGap.FirstValue))
		case stats.GenderGap.ChangePP > 0:
			box.Change = fmt.Sprintf("Widened from %s", formatPP(stats.GenderGap.FirstValue))
			box.Negative = true
		default:
			box.Change = fmt.Sprintf("Unchanged since %d", stats.GenderGap.FirstYear)
		}
		boxes = append(boxes, box)
	}

	return boxes
}

func changeSince(h Headline) string {
	if h.FirstYear == h.LatestYear {
		return ""
	}
	return fmt.Sprintf("%s since %d", formatSignedPP(h.ChangePP), h.FirstYear)
}

func buildFindings(stats Stats, results map[string]forecast.IndicatorForecast) []string {
	var findings []string

	if fc, ok := results[forecast.CodeAccountOwnership]; ok && stats.Ownership.Present && fc.Target > 0 {
		gap := fc.Target - stats.Ownership.Latest
		if gap > 0 {
			findings = append(findings, fmt.Sprintf(
				"Account ownership stands at %s against the %s target for %d, a gap of %.0f percentage points.",
				formatPercent(stats.Ownership.Latest), formatPercent(fc.Target), fc.TargetYear, gap))
		} else {
			findings = append(findings, fmt.Sprintf(
				"Account ownership at %s has already reached the %s target set for %d.",
				formatPercent(stats.Ownership.Latest), formatPercent(fc.Target), fc.TargetYear))
		}
	}

	if stats.MobileMoneyAccounts != "" && stats.Ownership.Present {
		findings = append(findings, fmt.Sprintf(
			"Operators report %s mobile money accounts while surveyed account ownership sits at %s, pointing to heavy overlap and inactive registrations.",
			stats.MobileMoneyAccounts, formatPercent(stats.Ownership.Latest)))
	}

	if stats.GenderGap.Present && stats.GenderGap.ChangePP != 0 {
		direction := "narrowed"
		if stats.GenderGap.ChangePP > 0 {
			direction = "widened"
		}
		findings = append(findings, fmt.Sprintf(
			"The gender gap in account ownership %s from %s (%d) to %s (%d).",
			direction, formatPP(stats.GenderGap.FirstValue), stats.GenderGap.FirstYear,
			formatPP(stats.GenderGap.Latest), stats.GenderGap.LatestYear))
	}

	if stats.Events > 0 && stats.ImpactLinks > 0 {
		findings = append(findings, fmt.Sprintf(
			"%d market and policy events are tracked with %d evidence-graded impact links informing the scenario assumptions.",
			stats.Events, stats.ImpactLinks))
	}

	return findings
}

func buildIndicatorSections(in Input, charts ChartSet) []indicatorSection {
	var sections []indicatorSection

	for _, info := range in.Dataset.Indicators() {
		series, err := in.Dataset.TimeSeries(info.Code)
		if err != nil || len(series) == 0 {
			continue
		}

		section := indicatorSection{
			Code:   info.Code,
			Name:   indicatorLabel(info, in.Forecasts),
			Pillar: info.Pillar,
			Chart:  chartForIndicator(charts, info.Code),
		}

		for _, p := range series {
			section.History = append(section.History, historyRow{
				Year:  p.Year,
				Value: strconv.FormatFloat(p.Value, 'f', 1, 64),
			})
		}

		if fc, ok := in.Forecasts[info.Code]; ok {
			section.Caption = forecastCaption(fc)
			if fc.Target > 0 {
				section.Target = fmt.Sprintf("%s by %d", formatPercent(fc.Target), fc.TargetYear)
			}
		}
		if section.Target == "" {
			if rec, ok := in.Dataset.Target(info.Code); ok {
				if v, hasValue := rec.Value(); hasValue {
					section.Target = fmt.Sprintf("%s by %d", formatPercent(v), rec.Year())
				}
			}
		}

		sections = append(sections, section)
	}

	return sections
}

func indicatorLabel(info dataset.IndicatorInfo, results map[string]forecast.IndicatorForecast) string {
	if fc, ok := results[info.Code]; ok && fc.Indicator != "" {
		return fc.Indicator
	}
	if info.Name != "" {
		return info.Name
	}
	return info.Code
}

func chartForIndicator(charts ChartSet, code string) template.URL {
	switch code {
	case forecast.CodeAccountOwnership:
		return charts.OwnershipTrajectory
	case codeOwnershipFemale:
		return charts.GenderGap
	default:
		return ""
	}
}

func forecastCaption(fc forecast.IndicatorForecast) string {
	n := len(fc.ForecastYears)
	if n == 0 || len(fc.LinearForecast) < n || len(fc.LogForecast) < n {
		return ""
	}
	return fmt.Sprintf("Linear trend projects %.1f%% by %d; log trend %.1f%%.",
		fc.LinearForecast[n-1], fc.ForecastYears[n-1], fc.LogForecast[n-1])
}

func buildGrowthRows(results map[string]forecast.IndicatorForecast, growth map[string][]forecast.GrowthPeriod) []growthRow {
	codes := make([]string, 0, len(growth))
	for code := range growth {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var rows []growthRow
	for _, code := range codes {
		label := code
		if fc, ok := results[code]; ok && fc.Indicator != "" {
			label = fc.Indicator
		}
		for _, p := range growth[code] {
			rows = append(rows, growthRow{
				Indicator: label,
				Period:    p.Period(),
				Span:      p.SpanYears,
				Start:     strconv.FormatFloat(p.StartValue, 'f', 1, 64),
				End:       strconv.FormatFloat(p.EndValue, 'f', 1, 64),
				Total:     fmt.Sprintf("%+.1f", p.TotalGrowthPP),
				Annual:    fmt.Sprintf("%+.2f", p.AnnualGrowthPP),
			})
		}
	}
	return rows
}

func buildScenarioTable(projection *forecast.ScenarioProjection) *scenarioTable {
	if projection == nil || len(projection.Years) == 0 || len(projection.Paths) == 0 {
		return nil
	}

	names := scenarioOrder(projection.Paths)

	table := &scenarioTable{Names: make([]string, 0, len(names))}
	for _, name := range names {
		table.Names = append(table.Names, titleCase(name))
	}
	if projection.Target > 0 {
		table.Target = fmt.Sprintf("%s by %d", formatPercent(projection.Target), projection.TargetYear)
	}

	for i, year := range projection.Years {
		row := scenarioRow{Year: year}
		for _, name := range names {
			path := projection.Paths[name]
			if i < len(path) {
				row.Values = append(row.Values, fmt.Sprintf("%.1f%%", path[i]))
			} else {
				row.Values = append(row.Values, "-")
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

// scenarioOrder lists the canonical scenarios first and any custom
// names after them alphabetically.
func scenarioOrder(paths map[string][]float64) []string {
	canonical := []string{forecast.ScenarioOptimistic, forecast.ScenarioBase, forecast.ScenarioPessimistic}

	var names []string
	seen := make(map[string]bool)
	for _, name := range canonical {
		if _, ok := paths[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}

	var extra []string
	for name := range paths {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	return append(names, extra...)
}

func buildEventRows(ds *dataset.Dataset) []eventRow {
	var rows []eventRow
	for _, impact := range ds.EventImpacts() {
		row := eventRow{
			Title:    impact.Title,
			Category: impact.Category,
			Related:  impact.RelatedIndicator,
			Impact:   describeImpact(impact),
		}
		if !impact.EventDate.IsZero() {
			row.Date = impact.EventDate.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}

func describeImpact(impact dataset.EventImpact) string {
	if impact.ImpactDirection == "" && impact.ImpactMagnitude == "" {
		return ""
	}

	desc := impact.ImpactDirection
	if impact.ImpactMagnitude != "" {
		if desc != "" {
			desc += ", "
		}
		desc += impact.ImpactMagnitude + " magnitude"
	}
	if impact.LagMonths != nil {
		desc += fmt.Sprintf(" (~%dmo lag)", *impact.LagMonths)
	}
	return desc
}

func buildSourceCounts(ds *dataset.Dataset) []sourceCount {
	counts := make(map[string]int)
	for _, r := range ds.Records() {
		if r.SourceName != "" {
			counts[r.SourceName]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]sourceCount, 0, len(names))
	for _, name := range names {
		out = append(out, sourceCount{Name: name, Records: counts[name]})
	}
	return out
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}

func formatPP(v float64) string {
	return fmt.Sprintf("%.0fpp", v)
}

func formatSignedPP(v float64) string {
	return fmt.Sprintf("%+.0fpp", v)
}

func yearRange(first, last int) string {
	if first == 0 || last == 0 {
		return "n/a"
	}
	if first == last {
		return strconv.Itoa(first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

func horizonRange(results map[string]forecast.IndicatorForecast) string {
	years := forecast.DefaultForecastYears()
	if fc, ok := results[forecast.CodeAccountOwnership]; ok && len(fc.ForecastYears) > 0 {
		years = fc.ForecastYears
	} else {
		for _, fc := range results {
			if len(fc.ForecastYears) > 0 {
				years = fc.ForecastYears
				break
			}
		}
	}
	if len(years) == 0 {
		return "n/a"
	}
	return yearRange(years[0], years[len(years)-1])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
