// Package router configures the forecaster's HTTP API.
//
// Routes configured:
//   - POST /v1/forecast - Fit a model to the posted series and forecast it
//   - GET /v1/forecast/current?series=<name> - Retrieve the latest stored forecast
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// Stored snapshots older than the stale threshold carry an
// X-Arimacast-Stale header. Every route is wrapped in recovery and request
// logging middleware.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/cmd/forecaster/service"
	"github.com/HatiCode/arimacast/pkg/httpx"
	"github.com/HatiCode/arimacast/pkg/storage"
)

// StaleHeader marks snapshots older than the stale threshold.
const StaleHeader = "X-Arimacast-Stale"

// Options configures SetupRoutes.
type Options struct {
	Service      *service.Service
	Store        storage.Store
	StaleAfter   time.Duration
	MaxBodyBytes int64
	Metrics      *metrics.Metrics
	// Gatherer backs /metrics; nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// SetupRoutes configures HTTP endpoints for the forecaster.
func SetupRoutes(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", httpx.HealthHandler())
	mux.HandleFunc("POST /v1/forecast", handleForecast(opts))
	mux.HandleFunc("GET /v1/forecast/current", handleGetSnapshot(opts.Store, opts.StaleAfter, opts.Logger))
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	return httpx.Chain(mux,
		httpx.LoggingMiddleware(opts.Logger),
		httpx.RecoveryMiddleware(opts.Logger),
	)
}

// StatusFor maps a forecast error to an HTTP status code.
func StatusFor(err error) int {
	switch service.Classify(err) {
	case service.ClassInvalid:
		return http.StatusBadRequest
	case service.ClassUnprocessable:
		return http.StatusUnprocessableEntity
	case service.ClassTimeout:
		return http.StatusGatewayTimeout
	case service.ClassCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleForecast returns a handler for POST /v1/forecast.
func handleForecast(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := serveForecast(w, r, opts)
		opts.Metrics.RecordRequest("http", strconv.Itoa(status))
		if err == nil {
			return
		}
		if status >= http.StatusInternalServerError {
			opts.Logger.Error("forecast request failed", "status", status, "error", err)
			if status == http.StatusInternalServerError {
				httpx.WriteErrorMessage(w, status, "internal server error")
				return
			}
		}
		httpx.WriteError(w, status, err)
	}
}

func serveForecast(w http.ResponseWriter, r *http.Request, opts Options) (int, error) {
	body, err := httpx.ReadBody(w, r, opts.MaxBodyBytes)
	if errors.Is(err, httpx.ErrBodyTooLarge) {
		return http.StatusRequestEntityTooLarge, err
	}
	if err != nil {
		return http.StatusBadRequest, err
	}

	req, err := service.ParseRequest(body, opts.Service.MaxHorizon())
	if err != nil {
		return http.StatusBadRequest, err
	}

	resp, err := opts.Service.Forecast(r.Context(), req)
	if err != nil {
		return StatusFor(err), err
	}

	if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
		opts.Logger.Error("failed to write JSON response", "error", err)
	}
	return http.StatusOK, nil
}

// handleGetSnapshot returns a handler for GET /v1/forecast/current?series=<name>.
func handleGetSnapshot(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series := r.URL.Query().Get("series")
		if series == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "series parameter required")
			return
		}
		if err := storage.ValidateSeriesName(series); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, series)
		if err != nil {
			logger.Error("failed to get snapshot", "series", series, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for series %q", series))
			return
		}

		if staleAfter > 0 && time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set(StaleHeader, "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
