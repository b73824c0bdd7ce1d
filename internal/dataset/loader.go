package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load reads the unified dataset CSV into memory. The file must carry
// a header row; columns are located by name so column order does not
// matter and unknown columns are ignored.
//
// Rows that cannot be parsed are logged and skipped rather than
// failing the whole load, matching how the rest of the pipeline treats
// imperfect inputs.
func Load(ctx context.Context, path string) (*Dataset, error) {
	logger := slog.Default()

	logger.InfoContext(ctx, "loading unified dataset", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, fields resolve by header index

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset CSV: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	columns := headerIndex(rows[0])
	if _, ok := columns["record_type"]; !ok {
		return nil, fmt.Errorf("dataset %s missing required column record_type", path)
	}

	records := make([]Record, 0, len(rows)-1)
	skipped := 0

	for i := 1; i < len(rows); i++ {
		record, err := parseRecord(rows[i], columns, i+1)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed dataset row",
				"line", i+1,
				"error", err,
			)
			skipped++
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s contains no usable records", path)
	}

	ds := &Dataset{records: records, skipped: skipped}

	logger.InfoContext(ctx, "dataset loaded",
		"records", len(records),
		"skipped", skipped,
		"observations", len(ds.Observations()),
		"events", len(ds.Events()),
		"targets", len(ds.Targets()),
	)

	return ds, nil
}

// headerIndex maps normalized column names to their positions
func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.TrimPrefix(key, "\ufeff") // strip BOM on the first column
		columns[key] = i
	}
	return columns
}

// parseRecord converts one CSV row into a Record
func parseRecord(row []string, columns map[string]int, lineNum int) (Record, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	recordType := RecordType(strings.ToLower(field("record_type")))
	if !recordType.IsValid() {
		return Record{}, fmt.Errorf("unknown record_type %q (line %d)", field("record_type"), lineNum)
	}

	record := Record{
		ID:               field("id"),
		RecordType:       recordType,
		Pillar:           strings.ToUpper(field("pillar")),
		Indicator:        field("indicator"),
		IndicatorCode:    field("indicator_code"),
		ValueText:        field("value_text"),
		Unit:             field("unit"),
		SourceName:       field("source_name"),
		SourceType:       field("source_type"),
		Confidence:       Confidence(strings.ToLower(field("confidence"))),
		Category:         field("category"),
		ParentID:         field("parent_id"),
		RelatedIndicator: field("related_indicator"),
		ImpactDirection:  strings.ToLower(field("impact_direction")),
		ImpactMagnitude:  strings.ToLower(field("impact_magnitude")),
		EvidenceBasis:    field("evidence_basis"),
	}

	var err error
	if record.ObservationDate, err = parseOptionalDate(field("observation_date"), "observation_date", lineNum); err != nil {
		return Record{}, err
	}
	if record.EventDate, err = parseOptionalDate(field("event_date"), "event_date", lineNum); err != nil {
		return Record{}, err
	}
	if record.CollectionDate, err = parseOptionalDate(field("collection_date"), "collection_date", lineNum); err != nil {
		return Record{}, err
	}
	if record.ValueNumeric, err = parseOptionalFloat(field("value_numeric"), "value_numeric", lineNum); err != nil {
		return Record{}, err
	}
	if record.LagMonths, err = parseOptionalInt(field("lag_months"), "lag_months", lineNum); err != nil {
		return Record{}, err
	}

	return record, nil
}

// parseOptionalDate parses dates as full ISO dates, year-months or bare
// years; an empty field is a zero time, not an error
func parseOptionalDate(value, fieldName string, lineNum int) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	dateFormats := []string{
		"2006-01-02",
		"2006-01",
		"2006",
		"2006-01-02 15:04:05",
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, value); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("parse %s %q (line %d)", fieldName, value, lineNum)
}

// parseOptionalFloat parses a numeric field; empty means absent
func parseOptionalFloat(value, fieldName string, lineNum int) (*float64, error) {
	if value == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q (line %d): %w", fieldName, value, lineNum, err)
	}

	return &parsed, nil
}

// parseOptionalInt parses an integer field; empty means absent
func parseOptionalInt(value, fieldName string, lineNum int) (*int, error) {
	if value == "" {
		return nil, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q (line %d): %w", fieldName, value, lineNum, err)
	}

	return &parsed, nil
}

// LoadReferenceCodes reads the indicator reference list that documents
// each code's name, pillar, unit and definition.
func LoadReferenceCodes(path string) ([]ReferenceCode, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference codes: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read reference codes CSV: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("reference codes %s has no data rows", path)
	}

	columns := headerIndex(rows[0])

	var codes []ReferenceCode
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		code := ReferenceCode{
			Code:       field("code"),
			Name:       field("name"),
			Pillar:     strings.ToUpper(field("pillar")),
			Unit:       field("unit"),
			Definition: field("definition"),
		}
		if code.Code == "" {
			continue
		}
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("reference codes %s contains no usable rows", path)
	}

	return codes, nil
}
