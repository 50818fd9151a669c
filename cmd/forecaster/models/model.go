// Package models builds the forecasting model the forecast loop trains.
package models

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/arimacast/cmd/forecaster/config"
	"github.com/HatiCode/arimacast/pkg/arima"
	"github.com/HatiCode/arimacast/pkg/models"
)

// New creates the model named by cfg.Model.
func New(cfg *config.Config, engine arima.Config, logger *slog.Logger) (models.Model, error) {
	switch cfg.Model {
	case config.ModelAuto:
		logger.Info("initializing auto-arima model",
			"max_p", engine.MaxP, "max_d", engine.MaxD, "max_q", engine.MaxQ,
			"period", engine.Period,
		)
		return models.NewAutoModel(engine, logger), nil

	case config.ModelARIMA:
		order := cfg.Order()
		if err := order.Validate(); err != nil {
			return nil, err
		}
		logger.Info("initializing arima model", "order", order.String())
		return models.NewARIMAModel(order, engine, logger), nil

	default:
		return nil, fmt.Errorf("invalid model type %q", cfg.Model)
	}
}
