package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Well-known chart file names produced by the chart renderer. The
// report embeds whichever of these exist in the charts directory.
const (
	ChartOwnershipTrajectory = "account_ownership_trajectory.png"
	ChartScenarioForecasts   = "scenario_forecasts.png"
	ChartGrowthRates         = "growth_rates.png"
	ChartGenderGap           = "gender_gap.png"
	ChartEventTimeline       = "event_timeline.png"
	ChartForecastComparison  = "forecast_comparison.png"
)

// ChartSet holds the embeddable data URIs for the report figures. An
// empty URI means the chart was not rendered; the template shows a
// placeholder note instead.
type ChartSet struct {
	OwnershipTrajectory template.URL
	ScenarioForecasts   template.URL
	GrowthRates         template.URL
	GenderGap           template.URL
	EventTimeline       template.URL
	ForecastComparison  template.URL
}

// LoadCharts reads the well-known chart images from dir and converts
// them to data URIs. Missing files are skipped, never an error; a
// report without figures is still a report.
func LoadCharts(dir string, logger *slog.Logger) ChartSet {
	if logger == nil {
		logger = slog.Default()
	}

	load := func(name string) template.URL {
		uri, err := imageDataURI(filepath.Join(dir, name))
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("chart image unreadable",
					slog.String("chart", name),
					slog.String("error", err.Error()))
			}
			return ""
		}
		return uri
	}

	return ChartSet{
		OwnershipTrajectory: load(ChartOwnershipTrajectory),
		ScenarioForecasts:   load(ChartScenarioForecasts),
		GrowthRates:         load(ChartGrowthRates),
		GenderGap:           load(ChartGenderGap),
		EventTimeline:       load(ChartEventTimeline),
		ForecastComparison:  load(ChartForecastComparison),
	}
}

// imageDataURI reads an image file and encodes it as a data URI for
// inline embedding, so the HTML report stays a single portable file.
func imageDataURI(path string) (template.URL, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	mimeType := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	return template.URL(fmt.Sprintf("data:%s;base64,%s", mimeType, encoded)), nil
}
