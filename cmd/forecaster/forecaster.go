// Package main implements the periodic forecast loop of the forecaster.
//
// This file contains the Forecaster type which orchestrates the pipeline:
//
//	collect → extract values → train → predict → storeSnapshot
//
// Run executes Tick at regular intervals. Each tick refits the model on the
// latest window of the series and replaces the stored snapshot that
// GET /v1/forecast/current serves. Every stage is timed and failures are
// counted by component in arimacast_errors_total.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/arimacast/cmd/forecaster/metrics"
	"github.com/HatiCode/arimacast/pkg/adapters"
	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/models"
	"github.com/HatiCode/arimacast/pkg/storage"
)

// Forecaster orchestrates the forecast loop: collect → train → predict → store.
type Forecaster struct {
	series  string
	adapter adapters.Adapter
	model   models.Model
	store   storage.Store
	step    time.Duration
	horizon time.Duration
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	lastSuccess time.Time
}

// NewForecaster creates a Forecaster for one series.
func NewForecaster(
	series string,
	adapter adapters.Adapter,
	model models.Model,
	store storage.Store,
	step, horizon, window time.Duration,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		series:  series,
		adapter: adapter,
		model:   model,
		store:   store,
		step:    step,
		horizon: horizon,
		window:  window,
		logger:  logger.With("series", series),
		metrics: metrics,
	}
}

// Run executes the forecast loop at regular intervals.
// Blocks until context is canceled.
func (f *Forecaster) Run(ctx context.Context, interval time.Duration) error {
	f.logger.Info("starting forecast loop", "interval", interval, "window", f.window, "horizon", f.horizon)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := f.Tick(ctx); err != nil {
		f.logger.Error("initial forecast tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("forecast loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := f.Tick(ctx); err != nil {
				f.logger.Error("forecast tick failed", "error", err)
			}
		}
	}
}

// Tick performs one forecast cycle.
func (f *Forecaster) Tick(ctx context.Context) error {
	start := time.Now()
	if !f.lastSuccess.IsZero() {
		f.metrics.SetForecastAge(time.Since(f.lastSuccess).Seconds())
	}

	series, collectDuration, err := f.collect(ctx)
	if err != nil {
		return err
	}

	res, fitDuration, err := f.fit(ctx, series)
	if err != nil {
		return err
	}

	if err := f.storeSnapshot(ctx, res); err != nil {
		f.metrics.RecordError("store", "put_failed")
		return fmt.Errorf("store: %w", err)
	}

	f.lastSuccess = time.Now()
	f.metrics.SetForecastAge(0)
	if len(res.Forecast) > 0 {
		f.metrics.SetForecastValue(res.Forecast[0])
	}

	f.logger.Info("forecast tick complete",
		"model", f.model.Name(),
		"order", res.Order.String(),
		"points", len(series),
		"forecast_points", len(res.Forecast),
		"confidence", arima.FormatConfidenceLevel(res.Confidence),
		"fallback", res.Fallback,
		"collect_ms", collectDuration.Milliseconds(),
		"fit_ms", fitDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// collect retrieves the window from the adapter and extracts its values.
func (f *Forecaster) collect(ctx context.Context) ([]float64, time.Duration, error) {
	start := time.Now()

	df, err := f.adapter.Collect(ctx, int(f.window.Seconds()))
	if err != nil {
		f.metrics.RecordError("adapter", "collect_failed")
		return nil, 0, fmt.Errorf("collect: %w", err)
	}
	values, err := df.Values()
	if err != nil {
		f.metrics.RecordError("adapter", "invalid_values")
		return nil, 0, fmt.Errorf("extract values: %w", err)
	}

	duration := time.Since(start)
	f.metrics.RecordCollect(duration.Seconds())

	f.logger.Debug("collected series",
		"adapter", f.adapter.Name(),
		"rows", len(values),
		"window_seconds", int(f.window.Seconds()),
		"duration_ms", duration.Milliseconds(),
	)
	return values, duration, nil
}

// fit trains the model on series and forecasts the horizon.
func (f *Forecaster) fit(ctx context.Context, series []float64) (*arima.Result, time.Duration, error) {
	start := time.Now()

	if err := f.model.Train(ctx, series); err != nil {
		f.metrics.RecordError("model", "train_failed")
		return nil, 0, fmt.Errorf("train: %w", err)
	}

	res, err := f.model.Predict(ctx, f.horizonSteps())
	if err != nil {
		f.metrics.RecordError("model", "predict_failed")
		return nil, 0, fmt.Errorf("predict: %w", err)
	}

	duration := time.Since(start)
	mode := "fixed"
	if auto, ok := f.model.(*models.AutoModel); ok {
		mode = "auto"
		sel, fallback := auto.Selection()
		f.metrics.RecordCandidates(sel.Evaluated, sel.Skipped)
		if fallback {
			f.metrics.RecordError("model", "fallback")
		}
	}
	f.metrics.RecordFit(mode, duration.Seconds())

	return res, duration, nil
}

func (f *Forecaster) horizonSteps() int {
	return max(int(f.horizon/f.step), 1)
}

// storeSnapshot persists the forecast snapshot.
func (f *Forecaster) storeSnapshot(ctx context.Context, res *arima.Result) error {
	snapshot := storage.Snapshot{
		Series:      f.series,
		Model:       res.Order.String(),
		GeneratedAt: time.Now(),
		StepSeconds: int(f.step.Seconds()),
		Values:      res.Forecast,
		Upper:       res.Upper,
		Lower:       res.Lower,
		AIC:         res.AIC,
		RMSE:        res.RMSE,
	}
	if err := f.store.Put(ctx, snapshot); err != nil {
		return err
	}

	f.logger.Debug("stored snapshot")
	return nil
}
