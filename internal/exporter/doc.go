// Package exporter writes the file artifacts of an analysis run.
//
// This package contains five main components:
//
// CSVWriter: core CSV writing with UTF-8 BOM support and atomic
// temp-file-plus-rename persistence, plus a StreamWriter for
// row-at-a-time dumps.
//
// ForecastExporter: per-indicator forecast CSVs (history plus both
// trend models with bounds), the flattened forecast table and the
// growth-period table.
//
// IndicatorExporter: per-indicator summary statistics joined with
// forecast endpoints.
//
// DatasetExporter: the dataset summary JSON and a full record snapshot
// for provenance.
//
// WorkbookExporter: a single Excel workbook with Observations, Events,
// Targets, Forecasts and Growth sheets.
//
// Exporter ties them together and fans all artifacts out concurrently:
//
//	exp := exporter.NewExporter(logger)
//	artifacts, err := exp.Export(ctx, exporter.Input{
//		Dataset:   ds,
//		Forecasts: results,
//		Growth:    growth,
//		Table:     forecast.ForecastTable(results),
//	}, "data/exports")
package exporter
