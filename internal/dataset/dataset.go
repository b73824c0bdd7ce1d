package dataset

import (
	"fmt"
	"sort"

	"eficli/internal/forecast"
)

// Dataset is the in-memory unified dataset. It is immutable after
// loading; every accessor returns fresh slices, so a Dataset is safe
// to share across handlers and pipeline steps without locking.
type Dataset struct {
	records []Record
	skipped int
}

// New builds a dataset from already-parsed records. Used by tests and
// by callers that assemble records from sources other than the CSV.
func New(records []Record) *Dataset {
	return &Dataset{records: append([]Record(nil), records...)}
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.records)
}

// Skipped returns the number of malformed rows dropped during loading
func (d *Dataset) Skipped() int {
	return d.skipped
}

// Records returns a copy of all records
func (d *Dataset) Records() []Record {
	return append([]Record(nil), d.records...)
}

// byType filters records by record type
func (d *Dataset) byType(rt RecordType) []Record {
	var out []Record
	for _, r := range d.records {
		if r.RecordType == rt {
			out = append(out, r)
		}
	}
	return out
}

// Observations returns all observation records
func (d *Dataset) Observations() []Record {
	return d.byType(RecordObservation)
}

// Events returns all event records sorted by event date
func (d *Dataset) Events() []Record {
	events := d.byType(RecordEvent)
	sort.Slice(events, func(i, j int) bool {
		return events[i].EventDate.Before(events[j].EventDate)
	})
	return events
}

// ImpactLinks returns all impact link records
func (d *Dataset) ImpactLinks() []Record {
	return d.byType(RecordImpactLink)
}

// Targets returns all policy target records
func (d *Dataset) Targets() []Record {
	return d.byType(RecordTarget)
}

// Filter returns records matching every non-empty criterion
func (d *Dataset) Filter(recordType RecordType, pillar, indicatorCode string, confidence Confidence) []Record {
	var out []Record
	for _, r := range d.records {
		if recordType != "" && r.RecordType != recordType {
			continue
		}
		if pillar != "" && r.Pillar != pillar {
			continue
		}
		if indicatorCode != "" && r.IndicatorCode != indicatorCode {
			continue
		}
		if confidence != "" && r.Confidence != confidence {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TimeSeries extracts a sorted (year, value) series for one indicator
// from the observation records, implementing forecast.SeriesSource.
//
// Observations without a numeric value or a parseable date are
// dropped. When two observations land in the same year the one with
// the latest observation date wins, keeping the series strictly
// increasing by year for the trend and growth math.
//
// A code with no usable observations yields an empty series, not an
// error; the forecast layer decides whether that is fatal.
func (d *Dataset) TimeSeries(code string) ([]forecast.Point, error) {
	if code == "" {
		return nil, fmt.Errorf("empty indicator code")
	}

	type dated struct {
		record Record
		year   int
	}

	var candidates []dated
	for _, r := range d.records {
		if r.RecordType != RecordObservation || r.IndicatorCode != code {
			continue
		}
		if _, ok := r.Value(); !ok {
			continue
		}
		year := r.Year()
		if year == 0 {
			continue
		}
		candidates = append(candidates, dated{record: r, year: year})
	}

	byYear := make(map[int]Record, len(candidates))
	for _, c := range candidates {
		current, exists := byYear[c.year]
		if !exists || c.record.ObservationDate.After(current.ObservationDate) {
			byYear[c.year] = c.record
		}
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	series := make([]forecast.Point, 0, len(years))
	for _, year := range years {
		value, _ := byYear[year].Value()
		series = append(series, forecast.Point{Year: year, Value: value})
	}

	return series, nil
}

// Target returns the target record for an indicator code, if present
func (d *Dataset) Target(code string) (Record, bool) {
	for _, r := range d.records {
		if r.RecordType == RecordTarget && r.IndicatorCode == code {
			return r, true
		}
	}
	return Record{}, false
}

// Indicators lists the distinct indicators present in the observation
// records with their observation counts and year coverage, sorted by
// code.
func (d *Dataset) Indicators() []IndicatorInfo {
	byCode := make(map[string]*IndicatorInfo)

	for _, r := range d.records {
		if r.RecordType != RecordObservation || r.IndicatorCode == "" {
			continue
		}

		info, ok := byCode[r.IndicatorCode]
		if !ok {
			info = &IndicatorInfo{
				Code:   r.IndicatorCode,
				Name:   r.Indicator,
				Pillar: r.Pillar,
				Unit:   r.Unit,
			}
			byCode[r.IndicatorCode] = info
		}

		info.Observations++
		if year := r.Year(); year > 0 {
			if info.FirstYear == 0 || year < info.FirstYear {
				info.FirstYear = year
			}
			if year > info.LastYear {
				info.LastYear = year
			}
		}
		if info.Name == "" {
			info.Name = r.Indicator
		}
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]IndicatorInfo, 0, len(codes))
	for _, code := range codes {
		out = append(out, *byCode[code])
	}
	return out
}

// EventImpacts joins events with their impact links on
// impact_link.parent_id == event.id. Events without links still appear
// once with empty impact fields so the timeline shows every event.
// Rows are ordered by event date.
func (d *Dataset) EventImpacts() []EventImpact {
	linksByParent := make(map[string][]Record)
	for _, link := range d.ImpactLinks() {
		linksByParent[link.ParentID] = append(linksByParent[link.ParentID], link)
	}

	var out []EventImpact
	for _, event := range d.Events() {
		base := EventImpact{
			EventID:   event.ID,
			EventDate: event.EventDate,
			Title:     event.Indicator,
			Category:  event.Category,
			Source:    event.SourceName,
		}
		if base.Title == "" {
			base.Title = event.ValueText
		}

		links := linksByParent[event.ID]
		if len(links) == 0 {
			out = append(out, base)
			continue
		}

		for _, link := range links {
			joined := base
			joined.RelatedIndicator = link.RelatedIndicator
			joined.ImpactDirection = link.ImpactDirection
			joined.ImpactMagnitude = link.ImpactMagnitude
			joined.LagMonths = link.LagMonths
			joined.EvidenceBasis = link.EvidenceBasis
			out = append(out, joined)
		}
	}

	return out
}

// Summarize computes the dataset overview used by the dashboard and
// the quality pipeline step.
func (d *Dataset) Summarize() Summary {
	summary := Summary{
		TotalRecords: len(d.records),
		ByType:       make(map[RecordType]int),
		ByPillar:     make(map[string]int),
		ByConfidence: make(map[Confidence]int),
	}

	indicators := make(map[string]bool)

	for _, r := range d.records {
		summary.ByType[r.RecordType]++
		if r.Pillar != "" {
			summary.ByPillar[r.Pillar]++
		}
		if r.Confidence != "" {
			summary.ByConfidence[r.Confidence]++
		}

		if r.RecordType == RecordObservation {
			if r.IndicatorCode != "" {
				indicators[r.IndicatorCode] = true
			}
			if year := r.Year(); year > 0 {
				if summary.FirstObsYear == 0 || year < summary.FirstObsYear {
					summary.FirstObsYear = year
				}
				if year > summary.LatestObsYear {
					summary.LatestObsYear = year
				}
			}
		}
	}

	summary.Indicators = len(indicators)
	return summary
}
