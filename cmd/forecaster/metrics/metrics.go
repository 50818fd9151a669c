// Package metrics provides Prometheus instrumentation for the forecaster.
//
// Metrics exposed:
//   - arimacast_fit_seconds: Histogram of model fitting duration by mode (auto, fixed)
//   - arimacast_candidates_total: Counter of grid-search candidates by outcome (evaluated, skipped)
//   - arimacast_requests_total: Counter of forecast requests by transport (http, grpc) and code
//   - arimacast_errors_total: Counter of errors by component and reason
//   - arimacast_collect_seconds: Histogram of adapter collection duration
//   - arimacast_forecast_value: Gauge of the first point of the latest loop forecast
//   - arimacast_forecast_age_seconds: Gauge of the age of the latest loop forecast
//
// All methods are no-ops on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecaster.
type Metrics struct {
	FitSeconds         *prometheus.HistogramVec
	CandidatesTotal    *prometheus.CounterVec
	RequestsTotal      *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	CollectSeconds     prometheus.Histogram
	ForecastValue      prometheus.Gauge
	ForecastAgeSeconds prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arimacast_fit_seconds",
			Help:    "Time spent selecting, fitting and forecasting a model",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),

		CandidatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arimacast_candidates_total",
			Help: "Grid-search candidate orders by outcome",
		}, []string{"outcome"}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arimacast_requests_total",
			Help: "Forecast requests by transport and result code",
		}, []string{"transport", "code"}),

		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arimacast_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),

		CollectSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arimacast_collect_seconds",
			Help:    "Time spent collecting a series from the adapter",
			Buckets: prometheus.DefBuckets,
		}),

		ForecastValue: f.NewGauge(prometheus.GaugeOpts{
			Name: "arimacast_forecast_value",
			Help: "First point of the latest loop forecast",
		}),

		ForecastAgeSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name: "arimacast_forecast_age_seconds",
			Help: "Age of the latest loop forecast in seconds",
		}),
	}
}

// RecordFit records the time spent fitting in mode.
func (m *Metrics) RecordFit(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.FitSeconds.WithLabelValues(mode).Observe(seconds)
}

// RecordCandidates adds a grid search's candidate counts.
func (m *Metrics) RecordCandidates(evaluated, skipped int) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues("evaluated").Add(float64(evaluated))
	m.CandidatesTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordRequest counts one forecast request.
func (m *Metrics) RecordRequest(transport, code string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(transport, code).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// RecordCollect records the time spent collecting.
func (m *Metrics) RecordCollect(seconds float64) {
	if m == nil {
		return
	}
	m.CollectSeconds.Observe(seconds)
}

// SetForecastValue sets the first point of the latest loop forecast.
func (m *Metrics) SetForecastValue(value float64) {
	if m == nil {
		return
	}
	m.ForecastValue.Set(value)
}

// SetForecastAge sets the age of the latest loop forecast.
func (m *Metrics) SetForecastAge(seconds float64) {
	if m == nil {
		return
	}
	m.ForecastAgeSeconds.Set(seconds)
}
