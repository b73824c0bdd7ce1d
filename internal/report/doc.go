// Package report renders the analysis report: an HTML document built
// from the dataset, the forecast results and pre-rendered chart
// images, optionally printed to PDF with headless Chrome.
//
// WriteHTML and RenderPDF are separate operations so the pipeline can
// trace the Chrome step on its own and keep the HTML report when PDF
// rendering fails.
package report
