package dataset

import (
	"time"
)

// RecordType discriminates the four kinds of rows in the unified CSV
type RecordType string

const (
	// RecordObservation is a survey or administrative measurement of an indicator
	RecordObservation RecordType = "observation"
	// RecordEvent is a policy or market event (product launch, regulation, entry)
	RecordEvent RecordType = "event"
	// RecordImpactLink ties an event to an indicator it plausibly moved
	RecordImpactLink RecordType = "impact_link"
	// RecordTarget is a national policy target for an indicator
	RecordTarget RecordType = "target"
)

// IsValid checks if the record type is one of the known kinds
func (rt RecordType) IsValid() bool {
	switch rt {
	case RecordObservation, RecordEvent, RecordImpactLink, RecordTarget:
		return true
	default:
		return false
	}
}

// Confidence grades the reliability of a record's source
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidence grades for sorting; higher is more reliable
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// IsValid checks if the confidence grade is known
func (c Confidence) IsValid() bool {
	return c.Rank() > 0
}

// Financial-inclusion pillars used to group indicators
const (
	PillarAccess  = "ACCESS"
	PillarUsage   = "USAGE"
	PillarQuality = "QUALITY"
	PillarImpact  = "IMPACT"
	PillarGender  = "GENDER"
)

// Record is one row of the unified dataset. Which fields are populated
// depends on RecordType: observations carry ObservationDate and
// ValueNumeric, events carry EventDate and Category, impact links carry
// ParentID and the impact fields, targets carry ValueNumeric and the
// target date in ObservationDate.
type Record struct {
	ID         string     `json:"id"`
	RecordType RecordType `json:"record_type"`
	Pillar     string     `json:"pillar,omitempty"`

	Indicator     string `json:"indicator,omitempty"`
	IndicatorCode string `json:"indicator_code,omitempty"`

	ObservationDate time.Time `json:"observation_date,omitempty"`
	ValueNumeric    *float64  `json:"value_numeric,omitempty"`
	ValueText       string    `json:"value_text,omitempty"`
	Unit            string    `json:"unit,omitempty"`

	SourceName string     `json:"source_name,omitempty"`
	SourceType string     `json:"source_type,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`

	EventDate time.Time `json:"event_date,omitempty"`
	Category  string    `json:"category,omitempty"`

	ParentID         string `json:"parent_id,omitempty"`
	RelatedIndicator string `json:"related_indicator,omitempty"`
	ImpactDirection  string `json:"impact_direction,omitempty"`
	ImpactMagnitude  string `json:"impact_magnitude,omitempty"`
	LagMonths        *int   `json:"lag_months,omitempty"`
	EvidenceBasis    string `json:"evidence_basis,omitempty"`

	CollectionDate time.Time `json:"collection_date,omitempty"`
}

// Value returns the numeric value and whether one is present
func (r Record) Value() (float64, bool) {
	if r.ValueNumeric == nil {
		return 0, false
	}
	return *r.ValueNumeric, true
}

// Year returns the observation year, or 0 when no date is set
func (r Record) Year() int {
	if r.ObservationDate.IsZero() {
		return 0
	}
	return r.ObservationDate.Year()
}

// IsValid checks the minimal invariants for a usable record
func (r Record) IsValid() bool {
	if !r.RecordType.IsValid() {
		return false
	}
	switch r.RecordType {
	case RecordObservation:
		return r.IndicatorCode != "" && !r.ObservationDate.IsZero()
	case RecordEvent:
		return !r.EventDate.IsZero()
	case RecordImpactLink:
		return r.ParentID != ""
	case RecordTarget:
		return r.IndicatorCode != "" && r.ValueNumeric != nil
	}
	return false
}

// EventImpact is an event joined with one of its impact links. One
// event with three links yields three EventImpact rows, mirroring the
// shape the dashboard's event timeline consumes.
type EventImpact struct {
	EventID   string    `json:"event_id"`
	EventDate time.Time `json:"event_date"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Source    string    `json:"source,omitempty"`

	RelatedIndicator string `json:"related_indicator,omitempty"`
	ImpactDirection  string `json:"impact_direction,omitempty"`
	ImpactMagnitude  string `json:"impact_magnitude,omitempty"`
	LagMonths        *int   `json:"lag_months,omitempty"`
	EvidenceBasis    string `json:"evidence_basis,omitempty"`
}

// IndicatorInfo describes one distinct indicator present in the dataset
type IndicatorInfo struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Pillar       string `json:"pillar,omitempty"`
	Unit         string `json:"unit,omitempty"`
	Observations int    `json:"observations"`
	FirstYear    int    `json:"first_year,omitempty"`
	LastYear     int    `json:"last_year,omitempty"`
}

// Summary aggregates the dataset's shape for the overview endpoint and
// the quality pipeline step
type Summary struct {
	TotalRecords  int                `json:"total_records"`
	ByType        map[RecordType]int `json:"by_type"`
	ByPillar      map[string]int     `json:"by_pillar"`
	ByConfidence  map[Confidence]int `json:"by_confidence"`
	Indicators    int                `json:"indicators"`
	FirstObsYear  int                `json:"first_obs_year,omitempty"`
	LatestObsYear int                `json:"latest_obs_year,omitempty"`
}

// ReferenceCode is one row of the indicator reference list that ships
// beside the unified dataset
type ReferenceCode struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Pillar     string `json:"pillar,omitempty"`
	Unit       string `json:"unit,omitempty"`
	Definition string `json:"definition,omitempty"`
}
