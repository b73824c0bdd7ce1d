package exporter

import (
	"strconv"
	"time"
)

// formatFloat formats a float64 value for CSV output with a fixed
// number of decimal places so values like 13.4 render as 13.4 rather
// than drifting with %g
func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}

// formatOptionalFloat formats a nullable numeric field; absent values
// stay blank in the output, matching the source CSV convention
func formatOptionalFloat(f *float64, precision int) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f, precision)
}

// formatOptionalInt formats a nullable integer field
func formatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// formatDate formats a date for CSV output; zero times stay blank
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
