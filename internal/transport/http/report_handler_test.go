package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "eficli/internal/errors"
	"eficli/internal/report"
	"eficli/internal/services"
	"eficli/pkg/contracts/domain"
)

func newTestReportHandler(t *testing.T) (*ReportHandler, *mockReportService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &mockReportService{}
	return NewReportHandler(svc, logger, apierrors.NewErrorHandler(logger, false)), svc
}

func TestReportHandlerListReports(t *testing.T) {
	handler, svc := newTestReportHandler(t)
	svc.On("ListReports", mock.Anything).Return(domain.ReportListing{
		Files: []domain.ReportFile{
			{Name: "fi_report.html", Format: domain.ReportFormatHTML, SizeBytes: 2048},
			{Name: "forecasts.csv", Format: domain.ReportFormatCSV, SizeBytes: 512},
		},
		Total: 2,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["total"])
	svc.AssertExpectations(t)
}

func TestReportHandlerDownloadServesFile(t *testing.T) {
	handler, svc := newTestReportHandler(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "fi_report.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body>EFI Pulse</body></html>"), 0o644))

	svc.On("ResolveDownload", mock.Anything, "fi_report.html").Return(path, nil)

	req := httptest.NewRequest(http.MethodGet, "/download/fi_report.html", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="fi_report.html"`)
	assert.Contains(t, rec.Body.String(), "EFI Pulse")
}

func TestReportHandlerDownloadNotFound(t *testing.T) {
	handler, svc := newTestReportHandler(t)
	svc.On("ResolveDownload", mock.Anything, "missing.pdf").
		Return("", services.ErrFileNotFound)

	req := httptest.NewRequest(http.MethodGet, "/download/missing.pdf", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlerGenerateReport(t *testing.T) {
	handler, svc := newTestReportHandler(t)
	svc.On("GenerateReport", mock.Anything, false).Return(&report.Artifacts{
		HTMLPath: "/data/reports/fi_report.html",
	}, nil)

	req := postJSON(t, "/generate", map[string]interface{}{"include_pdf": false})
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/data/reports/fi_report.html", data["html_path"])
	svc.AssertExpectations(t)
}

func TestReportHandlerGenerateReportDefaultsToPDF(t *testing.T) {
	handler, svc := newTestReportHandler(t)
	svc.On("GenerateReport", mock.Anything, true).Return(&report.Artifacts{
		HTMLPath: "/data/reports/fi_report.html",
		PDFPath:  "/data/reports/fi_report.pdf",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestReportHandlerGenerateReportNoForecasts(t *testing.T) {
	handler, svc := newTestReportHandler(t)
	svc.On("GenerateReport", mock.Anything, true).
		Return(nil, services.ErrNoForecasts)

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
