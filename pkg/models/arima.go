package models

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/HatiCode/arimacast/pkg/arima"
)

// ARIMAModel is a fixed-order seasonal ARIMA model.
//
// Train estimates the coefficients on the whole series and scores the order
// by hold-out validation; Predict forecasts past the end of that series with
// a prediction interval at the configured confidence level.
type ARIMAModel struct {
	order  arima.Order
	cfg    arima.Config
	logger *slog.Logger

	mu      sync.RWMutex
	trained bool
	params  *arima.Params
	series  []float64
	aic     float64
	rmse    float64
}

// NewARIMAModel creates a model for order.
//
// Panics if order is invalid.
func NewARIMAModel(order arima.Order, cfg arima.Config, logger *slog.Logger) *ARIMAModel {
	if err := order.Validate(); err != nil {
		panic(err.Error())
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TestFraction == 0 {
		cfg.TestFraction = arima.DefaultTestFraction
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = arima.DefaultConfidence
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = arima.DefaultMaxIterations
	}
	if cfg.MaxHorizon == 0 {
		cfg.MaxHorizon = arima.DefaultMaxHorizon
	}
	return &ARIMAModel{order: order, cfg: cfg, logger: logger}
}

// Name returns the order in lower case, e.g. "arima(1,1,1)(0,1,1)[12]".
func (m *ARIMAModel) Name() string {
	return strings.ToLower(m.order.String())
}

// Order returns the configured order.
func (m *ARIMAModel) Order() arima.Order { return m.order }

// Train fits the order on series with cfg.MaxIterations estimation rounds.
//
// Validation scores that cannot be computed (series too short for a test
// split) are recorded as -1 and leave the prediction interval at zero width.
func (m *ARIMAModel) Train(ctx context.Context, series []float64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	n := len(series)
	params, err := arima.NewParams(m.order)
	if err != nil {
		return err
	}
	if _, err := arima.EstimateARIMA(params, series, n, n+1, m.cfg.MaxIterations); err != nil {
		return fmt.Errorf("fit %s: %w", m.order, err)
	}

	aic, rmse, err := arima.ScoreOrder(series, m.order, m.cfg)
	if err != nil {
		m.logger.Warn("validation failed, interval disabled", "model", m.Name(), "error", err)
		aic, rmse = -1, -1
	}

	if m.order.P > 0 {
		m.logYuleWalker(series)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.trained = true
	m.params = params
	m.series = append([]float64(nil), series...)
	m.aic = aic
	m.rmse = rmse
	return nil
}

// logYuleWalker reports a moment-based AR(p) estimate next to the regression
// estimate; a large gap usually means the order is a poor fit.
func (m *ARIMAModel) logYuleWalker(series []float64) {
	stationary, err := arima.Stationary(series, m.order)
	if err != nil {
		return
	}
	phi, err := arima.YuleWalker(stationary, m.order.P)
	if err != nil {
		m.logger.Debug("yule-walker estimate unavailable", "model", m.Name(), "error", err)
		return
	}
	m.logger.Debug("yule-walker estimate", "model", m.Name(), "phi", phi)
}

// Predict forecasts horizon points past the training series.
func (m *ARIMAModel) Predict(ctx context.Context, horizon int) (*arima.Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := arima.CheckHorizon(horizon, m.cfg.MaxHorizon); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if !m.trained {
		m.mu.RUnlock()
		return nil, ErrNotTrained
	}
	params := m.params.Clone()
	series := m.series
	aic, rmse := m.aic, m.rmse
	m.mu.RUnlock()

	z, err := arima.ZScore(m.cfg.Confidence)
	if err != nil {
		return nil, err
	}

	n := len(series)
	res, err := arima.ForecastWithParams(params, series, n, n+horizon)
	if err != nil {
		return nil, err
	}
	res.AIC = aic
	res.RMSE = rmse
	res.Confidence = m.cfg.Confidence
	arima.SetPredictionInterval(params, res, z)
	return res, nil
}
