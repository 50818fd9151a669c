// Package models wraps the ARIMA engine in stateful forecasting models that
// are trained on a series once and then asked for forecasts.
package models

import (
	"context"
	"errors"

	"github.com/HatiCode/arimacast/pkg/arima"
)

// ErrNotTrained is returned by Predict before a successful Train.
var ErrNotTrained = errors.New("model not trained, call Train() first")

// Model is a forecasting model. Train replaces any previous fit; Predict is
// safe for concurrent use once Train has returned.
type Model interface {
	Name() string
	Train(ctx context.Context, series []float64) error
	Predict(ctx context.Context, horizon int) (*arima.Result, error)
}
