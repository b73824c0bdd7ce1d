package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "eficli/internal/errors"
	"eficli/internal/services"
	"eficli/internal/middleware"
)

// ReportHandler handles report listing, download and generation requests
type ReportHandler struct {
	service      ReportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListReports)
	r.Get("/download/{name}", h.DownloadReport)
	r.Post("/generate", h.GenerateReport)

	return r
}

// GenerateRequest is the request body for POST /api/reports/generate
type GenerateRequest struct {
	IncludePDF bool `json:"include_pdf"`
}

// Bind implements render.Binder; the body has no invalid states
func (req *GenerateRequest) Bind(r *http.Request) error {
	return nil
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "listing reports",
		slog.String("request_id", reqID),
	)

	listing, err := h.service.ListReports(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list reports",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   listing,
	})
}

// DownloadReport handles GET /api/reports/download/{name}
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	name := chi.URLParam(r, "name")

	h.logger.InfoContext(r.Context(), "downloading report",
		slog.String("request_id", reqID),
		slog.String("name", name),
	)

	path, err := h.service.ResolveDownload(r.Context(), name)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to resolve report download",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("name", name),
		)

		if errors.Is(err, services.ErrFileNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"FILE_NOT_FOUND",
				fmt.Sprintf("Report '%s' not found", name),
				map[string]interface{}{
					"name": name,
				},
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// GenerateReport handles POST /api/reports/generate
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req := &GenerateRequest{IncludePDF: true}
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.Bind(r, req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusBadRequest,
				"INVALID_REQUEST",
				"Invalid request body",
				map[string]interface{}{
					"error": err.Error(),
				},
			))
			return
		}
	}

	h.logger.InfoContext(r.Context(), "generating report",
		slog.String("request_id", reqID),
		slog.Bool("include_pdf", req.IncludePDF),
	)

	artifacts, err := h.service.GenerateReport(r.Context(), req.IncludePDF)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate report",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrDatasetNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"DATASET_NOT_FOUND",
				"Unified dataset file not found",
			))
			return
		}

		if errors.Is(err, services.ErrNoForecasts) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusConflict,
				"NO_FORECASTS",
				"No forecasts available; run the forecast step first",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   artifacts,
	})
}
