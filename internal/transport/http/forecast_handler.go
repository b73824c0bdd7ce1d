package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "eficli/internal/errors"
	"eficli/internal/services"
	"eficli/internal/middleware"
)

// ForecastHandler handles forecast and chart payload requests
type ForecastHandler struct {
	service      ForecastServiceInterface
	data         DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewForecastHandler creates a new forecast handler. The data service
// backs the gender-gap chart, which is derived from raw observations
// rather than the forecast models.
func NewForecastHandler(service ForecastServiceInterface, data DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		data:         data,
		logger:       logger.With(slog.String("component", "forecast_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the forecast routes
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetForecasts)
	r.Get("/table", h.GetForecastTable)

	return r
}

// ChartRoutes returns the chart payload routes
func (h *ForecastHandler) ChartRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/trajectory/{code}", h.GetTrajectory)
	r.Get("/scenarios", h.GetScenarios)
	r.Get("/gender-gap", h.GetGenderGap)

	return r
}

// GetForecasts handles GET /api/forecasts
func (h *ForecastHandler) GetForecasts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching forecasts",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	forecasts, err := h.service.GetForecasts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get forecasts",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrNoForecasts) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_FORECASTS",
				"No indicator had enough observations to forecast",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   forecasts,
		"count":  len(forecasts),
	})
}

// GetForecastTable handles GET /api/forecasts/table
func (h *ForecastHandler) GetForecastTable(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching forecast table",
		slog.String("request_id", reqID),
	)

	rows, err := h.service.GetForecastTable(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get forecast table",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrNoForecasts) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_FORECASTS",
				"No indicator had enough observations to forecast",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rows,
		"count":  len(rows),
	})
}

// GetTrajectory handles GET /api/charts/trajectory/{code}
func (h *ForecastHandler) GetTrajectory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	code := chi.URLParam(r, "code")

	if code == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("code", "Indicator code is required"))
		return
	}

	h.logger.InfoContext(r.Context(), "fetching trajectory chart",
		slog.String("request_id", reqID),
		slog.String("code", code),
	)

	chart, err := h.service.GetTrajectory(r.Context(), code)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get trajectory chart",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("code", code),
		)

		if errors.Is(err, services.ErrIndicatorNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"INDICATOR_NOT_FOUND",
				fmt.Sprintf("No forecast available for indicator '%s'", code),
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
		"data":   chart,
	})
}

// GetScenarios handles GET /api/charts/scenarios
func (h *ForecastHandler) GetScenarios(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching scenario chart",
		slog.String("request_id", reqID),
	)

	chart, err := h.service.GetScenarios(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get scenario chart",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrIndicatorNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"INDICATOR_NOT_FOUND",
				"Primary indicator has no forecast to build scenarios from",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   chart,
	})
}

// GetGenderGap handles GET /api/charts/gender-gap
func (h *ForecastHandler) GetGenderGap(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching gender gap chart",
		slog.String("request_id", reqID),
	)

	chart, err := h.data.GetGenderGap(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get gender gap chart",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrNoObservations) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_OBSERVATIONS",
				"No gendered ownership observations in the dataset",
			))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   chart,
	})
}
