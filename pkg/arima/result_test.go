package arima

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_SetConfidenceInterval(t *testing.T) {
	tests := []struct {
		name      string
		rmse      float64
		variance  float64
		wantUpper []float64
		wantLower []float64
		wantMaxNV float64
	}{
		{
			name:      "normalized by data variance",
			rmse:      1,
			variance:  4,
			wantUpper: []float64{12, 24},
			wantLower: []float64{8, 16},
			wantMaxNV: 4,
		},
		{
			name:      "tiny variance reports raw variance",
			rmse:      1,
			variance:  0,
			wantUpper: []float64{12, 24},
			wantLower: []float64{8, 16},
			wantMaxNV: 16,
		},
		{
			name:      "unset rmse gives zero width",
			rmse:      -1,
			variance:  4,
			wantUpper: []float64{10, 20},
			wantLower: []float64{10, 20},
			wantMaxNV: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResult([]float64{10, 20}, tt.variance)
			r.RMSE = tt.rmse

			got := r.SetConfidenceInterval(2, []float64{1, 2})
			assert.InDeltaSlice(t, tt.wantUpper, r.Upper, 1e-12)
			assert.InDeltaSlice(t, tt.wantLower, r.Lower, 1e-12)
			assert.InDelta(t, tt.wantMaxNV, got, 1e-12)
			assert.Equal(t, got, r.MaxNormalizedVariance)
			assert.Equal(t, []float64{10, 20}, r.Forecast)
		})
	}
}

func TestNewResult_Defaults(t *testing.T) {
	r := newResult([]float64{1, 2}, 3)
	assert.Equal(t, -1.0, r.AIC)
	assert.Equal(t, -1.0, r.RMSE)
	assert.Equal(t, -1.0, r.MaxNormalizedVariance)

	r.Upper[0] = 99
	assert.Equal(t, 1.0, r.Forecast[0], "bounds must not alias the forecast")
}

func TestSetPredictionInterval(t *testing.T) {
	p := mustParams(t, Order{P: 1})
	_ = p.SetAR(1, 0.5)

	r := newResult([]float64{0, 0, 0}, 1)
	r.RMSE = 1
	SetPredictionInterval(p, r, 1)

	// psi = 1, 0.5, 0.25
	assert.InDeltaSlice(t, []float64{1, 1.118033988749895, 1.1456439237389600}, r.Upper, 1e-12)
}
