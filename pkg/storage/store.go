// Package storage keeps the latest forecast snapshot per series.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Snapshot is one stored forecast of a series.
type Snapshot struct {
	Series      string    `json:"series"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
	// StepSeconds is the spacing of Values; 0 for ad-hoc request forecasts.
	StepSeconds int       `json:"stepSeconds,omitempty"`
	Values      []float64 `json:"values"`
	Upper       []float64 `json:"upper,omitempty"`
	Lower       []float64 `json:"lower,omitempty"`
	AIC         float64   `json:"aic"`
	RMSE        float64   `json:"rmse"`
}

// Store persists snapshots. GetLatest reports found=false, not an error,
// for an unknown series.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, series string) (Snapshot, bool, error)
}

// ErrInvalidSeriesName is returned for empty names and names outside
// [A-Za-z0-9_-].
var ErrInvalidSeriesName = errors.New("invalid series name")

// ValidateSeriesName checks that name can be used as a storage key.
func ValidateSeriesName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSeriesName)
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("%w %q: only alphanumeric, hyphens, and underscores allowed", ErrInvalidSeriesName, name)
		}
	}
	return nil
}
