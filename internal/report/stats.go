package report

import (
	"strconv"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
)

// Indicator codes the report's headline metrics are read from, beyond
// the two the forecast layer tracks by default.
const (
	codeMobileMoneyAccounts = "ACC_MM_ACCOUNTS"
	codeOwnershipFemale     = "ACC_OWNERSHIP_F"
	codeOwnershipMale       = "ACC_OWNERSHIP_M"
)

// Headline is the latest reading of one headline indicator together
// with its change since the start of the series.
type Headline struct {
	Present    bool    `json:"present"`
	Latest     float64 `json:"latest"`
	LatestYear int     `json:"latest_year"`
	FirstValue float64 `json:"first_value"`
	FirstYear  int     `json:"first_year"`
	ChangePP   float64 `json:"change_pp"`
}

// Stats aggregates the dataset figures the report's cover and
// executive summary are built from.
type Stats struct {
	TotalRecords int `json:"total_records"`
	Observations int `json:"observations"`
	Events       int `json:"events"`
	ImpactLinks  int `json:"impact_links"`
	Targets      int `json:"targets"`

	HighConfidencePct   float64 `json:"high_confidence_pct"`
	MediumConfidencePct float64 `json:"medium_confidence_pct"`
	LowConfidencePct    float64 `json:"low_confidence_pct"`

	FirstObsYear  int `json:"first_obs_year,omitempty"`
	LatestObsYear int `json:"latest_obs_year,omitempty"`

	Ownership Headline `json:"ownership"`
	Digital   Headline `json:"digital"`
	GenderGap Headline `json:"gender_gap"`

	// Operator-reported mobile money account count, kept as the text
	// it was reported in ("64M").
	MobileMoneyAccounts string `json:"mobile_money_accounts,omitempty"`
	MobileMoneySource   string `json:"mobile_money_source,omitempty"`
}

// BuildStats assembles the report statistics from the dataset.
func BuildStats(ds *dataset.Dataset) Stats {
	if ds == nil {
		return Stats{}
	}

	summary := ds.Summarize()

	stats := Stats{
		TotalRecords:  summary.TotalRecords,
		Observations:  summary.ByType[dataset.RecordObservation],
		Events:        summary.ByType[dataset.RecordEvent],
		ImpactLinks:   summary.ByType[dataset.RecordImpactLink],
		Targets:       summary.ByType[dataset.RecordTarget],
		FirstObsYear:  summary.FirstObsYear,
		LatestObsYear: summary.LatestObsYear,
	}

	if summary.TotalRecords > 0 {
		total := float64(summary.TotalRecords)
		stats.HighConfidencePct = float64(summary.ByConfidence[dataset.ConfidenceHigh]) / total * 100
		stats.MediumConfidencePct = float64(summary.ByConfidence[dataset.ConfidenceMedium]) / total * 100
		stats.LowConfidencePct = float64(summary.ByConfidence[dataset.ConfidenceLow]) / total * 100
	}

	stats.Ownership = headlineFor(ds, forecast.CodeAccountOwnership)
	stats.Digital = headlineFor(ds, forecast.CodeDigitalPayment)
	stats.GenderGap = genderGapHeadline(ds)

	stats.MobileMoneyAccounts, stats.MobileMoneySource = mobileMoneyFigure(ds)

	return stats
}

func headlineFor(ds *dataset.Dataset, code string) Headline {
	series, err := ds.TimeSeries(code)
	if err != nil || len(series) == 0 {
		return Headline{}
	}

	first, last := series[0], series[len(series)-1]
	return Headline{
		Present:    true,
		Latest:     last.Value,
		LatestYear: last.Year,
		FirstValue: first.Value,
		FirstYear:  first.Year,
		ChangePP:   last.Value - first.Value,
	}
}

// genderGapHeadline derives the ownership gender gap from the female
// and male series, male minus female in percentage points, over the
// years both series report.
func genderGapHeadline(ds *dataset.Dataset) Headline {
	female, err := ds.TimeSeries(codeOwnershipFemale)
	if err != nil || len(female) == 0 {
		return Headline{}
	}
	male, err := ds.TimeSeries(codeOwnershipMale)
	if err != nil || len(male) == 0 {
		return Headline{}
	}

	maleByYear := make(map[int]float64, len(male))
	for _, p := range male {
		maleByYear[p.Year] = p.Value
	}

	var gap []forecast.Point
	for _, p := range female {
		if m, ok := maleByYear[p.Year]; ok {
			gap = append(gap, forecast.Point{Year: p.Year, Value: m - p.Value})
		}
	}
	if len(gap) == 0 {
		return Headline{}
	}

	first, last := gap[0], gap[len(gap)-1]
	return Headline{
		Present:    true,
		Latest:     last.Value,
		LatestYear: last.Year,
		FirstValue: first.Value,
		FirstYear:  first.Year,
		ChangePP:   last.Value - first.Value,
	}
}

// mobileMoneyFigure returns the latest operator-reported account
// count. Registrations arrive as text ("64M") rather than as a
// percentage, so the raw text is preferred over the numeric field.
func mobileMoneyFigure(ds *dataset.Dataset) (figure, source string) {
	var latest dataset.Record
	found := false
	for _, r := range ds.Observations() {
		if r.IndicatorCode != codeMobileMoneyAccounts {
			continue
		}
		if !found || r.ObservationDate.After(latest.ObservationDate) {
			latest = r
			found = true
		}
	}
	if !found {
		return "", ""
	}

	figure = latest.ValueText
	if figure == "" {
		if v, ok := latest.Value(); ok {
			figure = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return figure, latest.SourceName
}
