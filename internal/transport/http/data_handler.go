package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"eficli/internal/dataset"
	apierrors "eficli/internal/errors"
	"eficli/internal/middleware"
	"eficli/internal/services"
)

// DataHandler handles dataset read requests with RFC 7807 compliance
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	query        *middleware.QueryParamValidator
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the data routes with proper Chi patterns
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// Resource routes following REST patterns
	r.Get("/summary", h.GetSummary)
	r.Get("/observations", h.GetObservations)
	r.Get("/events", h.GetEvents)
	r.Get("/targets", h.GetTargets)
	r.Get("/indicators", h.GetIndicators)

	// Sub-resource routes keyed by indicator code
	r.Route("/series/{code}", func(r chi.Router) {
		r.Use(h.IndicatorCtx)
		r.Get("/", h.GetSeries)
	})
	r.Route("/growth/{code}", func(r chi.Router) {
		r.Use(h.IndicatorCtx)
		r.Get("/", h.GetGrowth)
	})

	return r
}

// IndicatorCtx middleware validates the indicator code parameter
func (h *DataHandler) IndicatorCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if code == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("code", "Indicator code is required"))
			return
		}

		// Codes are short upper-snake identifiers like ACC_OWNERSHIP
		if len(code) > 64 || code != strings.ToUpper(code) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("code", "Invalid indicator code format"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetSummary handles GET /api/data/summary with RFC 7807 errors
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching dataset summary",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get summary",
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

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetObservations handles GET /api/data/observations with RFC 7807 errors
func (h *DataHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	indicator := r.URL.Query().Get("indicator")

	pillar, ok := h.query.ValidateEnum(w, r, "pillar", []string{
		dataset.PillarAccess,
		dataset.PillarUsage,
		dataset.PillarQuality,
		dataset.PillarImpact,
		dataset.PillarGender,
	}, "")
	if !ok {
		return
	}

	confidence, ok := h.query.ValidateEnum(w, r, "confidence", []string{
		string(dataset.ConfidenceHigh),
		string(dataset.ConfidenceMedium),
		string(dataset.ConfidenceLow),
	}, "")
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching observations",
		slog.String("request_id", reqID),
		slog.String("indicator", indicator),
		slog.String("pillar", pillar),
		slog.String("confidence", confidence),
	)

	observations, err := h.service.GetObservations(r.Context(), indicator, pillar, confidence)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get observations",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   observations,
		"count":  len(observations),
		"params": map[string]interface{}{
			"indicator":  indicator,
			"pillar":     pillar,
			"confidence": confidence,
		},
	})
}

// GetEvents handles GET /api/data/events with RFC 7807 errors
func (h *DataHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching events",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	events, err := h.service.GetEvents(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get events",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   events,
		"count":  len(events),
	})
}

// GetTargets handles GET /api/data/targets with RFC 7807 errors
func (h *DataHandler) GetTargets(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching targets",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	targets, err := h.service.GetTargets(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get targets",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   targets,
		"count":  len(targets),
	})
}

// GetIndicators handles GET /api/data/indicators with RFC 7807 errors
func (h *DataHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching indicators",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	indicators, err := h.service.GetIndicators(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get indicators",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   indicators,
		"count":  len(indicators),
	})
}

// GetSeries handles GET /api/data/series/{code} with RFC 7807 errors
func (h *DataHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	code := chi.URLParam(r, "code")

	h.logger.InfoContext(r.Context(), "fetching indicator series",
		slog.String("request_id", reqID),
		slog.String("code", code),
	)

	series, err := h.service.GetSeries(r.Context(), code)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get series",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("code", code),
		)

		if errors.Is(err, services.ErrIndicatorNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"INDICATOR_NOT_FOUND",
				fmt.Sprintf("Indicator '%s' not found", code),
				map[string]interface{}{
					"code": code,
				},
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   series,
		"count":  len(series.Points),
	})
}

// GetGrowth handles GET /api/data/growth/{code} with RFC 7807 errors
func (h *DataHandler) GetGrowth(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	code := chi.URLParam(r, "code")

	h.logger.InfoContext(r.Context(), "fetching growth periods",
		slog.String("request_id", reqID),
		slog.String("code", code),
	)

	growth, err := h.service.GetGrowth(r.Context(), code)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get growth periods",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("code", code),
		)

		if errors.Is(err, services.ErrIndicatorNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"INDICATOR_NOT_FOUND",
				fmt.Sprintf("Indicator '%s' not found", code),
				map[string]interface{}{
					"code": code,
				},
			))
			return
		}

		if errors.Is(err, services.ErrNoObservations) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"NO_OBSERVATIONS",
				fmt.Sprintf("Not enough observations to compute growth for '%s'", code),
				map[string]interface{}{
					"code": code,
				},
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   growth,
		"count":  len(growth.Periods),
	})
}
