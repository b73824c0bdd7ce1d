// Package dataset loads and queries the unified financial-inclusion
// dataset: a single curated CSV holding survey observations, policy and
// market events, event-to-indicator impact links, and national targets,
// discriminated by a record_type column.
//
// The Dataset is immutable after Load. Accessors return fresh slices
// and the time-series extraction implements forecast.SeriesSource, so
// handlers, pipeline steps and the forecast analyzer can all share one
// instance without coordination.
//
// Rows that fail to parse are logged and skipped; the load only fails
// when the file is missing, unreadable, lacks the record_type column or
// yields zero usable records.
package dataset
