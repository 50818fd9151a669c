package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HatiCode/arimacast/pkg/arima"
)

// FallbackOrder is the random walk used when no candidate order can be fitted.
var FallbackOrder = arima.Order{D: 1}

// AutoModel selects its order by grid search on every Train.
//
// When every candidate fails, the model falls back to FallbackOrder with no
// estimated coefficients, so a forecast is still available for series too
// short to validate. Fallback results carry Fallback = true.
type AutoModel struct {
	cfg    arima.Config
	logger *slog.Logger

	mu        sync.RWMutex
	trained   bool
	series    []float64
	selection arima.Selection
	fallback  bool
}

// NewAutoModel creates an automatically selected model searching the grid of cfg.
func NewAutoModel(cfg arima.Config, logger *slog.Logger) *AutoModel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return &AutoModel{cfg: cfg, logger: logger}
}

// Name returns "auto-arima".
func (m *AutoModel) Name() string { return "auto-arima" }

// Selection returns the last grid-search outcome and whether the fallback
// order is in use.
func (m *AutoModel) Selection() (arima.Selection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selection, m.fallback
}

// Train runs the grid search on series.
func (m *AutoModel) Train(ctx context.Context, series []float64) error {
	sel, err := arima.SelectOrder(ctx, series, m.cfg)
	fallback := false
	switch {
	case errors.Is(err, arima.ErrNoValidModel):
		m.logger.Warn("no candidate order could be fitted, using fallback",
			"fallback", FallbackOrder.String(), "points", len(series), "skipped", sel.Skipped)
		sel.Order = FallbackOrder
		fallback = true
	case err != nil:
		return fmt.Errorf("select order: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.trained = true
	m.series = append([]float64(nil), series...)
	m.selection = sel
	m.fallback = fallback
	return nil
}

// Predict refits the selected order on the training series and forecasts
// horizon points.
func (m *AutoModel) Predict(ctx context.Context, horizon int) (*arima.Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	if !m.trained {
		m.mu.RUnlock()
		return nil, ErrNotTrained
	}
	series := m.series
	sel, fallback := m.selection, m.fallback
	m.mu.RUnlock()

	if fallback {
		return m.predictFallback(series, horizon, sel)
	}

	res, err := arima.ForecastOrder(series, sel.Order, horizon, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", sel.Order, err)
	}
	res.Evaluated = sel.Evaluated
	res.Skipped = sel.Skipped
	return res, nil
}

func (m *AutoModel) predictFallback(series []float64, horizon int, sel arima.Selection) (*arima.Result, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: %d", arima.ErrInvalidHorizon, horizon)
	}
	params, err := arima.NewParams(FallbackOrder)
	if err != nil {
		return nil, err
	}
	n := len(series)
	res, err := arima.ForecastWithParams(params, series, n, n+horizon)
	if err != nil {
		return nil, fmt.Errorf("fallback %s: %w", FallbackOrder, err)
	}
	res.Fallback = true
	res.Skipped = sel.Skipped
	return res, nil
}
