package arima

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Difference returns dst[k] = src[k+lag] - src[k] together with the first
// lag values of src, which Integrate needs to undo the operation.
func Difference(src []float64, lag int) (diff, initial []float64, err error) {
	if lag < 1 {
		return nil, nil, fmt.Errorf("%w: differencing lag %d", ErrInvalidOrder, lag)
	}
	if len(src) <= lag {
		return nil, nil, insufficient(fmt.Sprintf("difference at lag %d", lag), lag+1, len(src))
	}
	initial = append([]float64(nil), src[:lag]...)
	diff = make([]float64, len(src)-lag)
	for k := range diff {
		diff[k] = src[k+lag] - src[k]
	}
	return diff, initial, nil
}

// Integrate inverts Difference: the first lag outputs are initial and
// dst[k+lag] = dst[k] + src[k].
func Integrate(src, initial []float64, lag int) ([]float64, error) {
	if lag < 1 {
		return nil, fmt.Errorf("%w: integration lag %d", ErrInvalidOrder, lag)
	}
	if len(initial) != lag {
		return nil, fmt.Errorf("integrate at lag %d: got %d initial values", lag, len(initial))
	}
	dst := make([]float64, len(src)+lag)
	copy(dst, initial)
	for k, v := range src {
		dst[k+lag] = dst[k] + v
	}
	return dst, nil
}

// Shift adds amount to every element of series in place.
func Shift(series []float64, amount float64) {
	floats.AddConst(amount, series)
}

// Mean is the arithmetic mean, 0 for an empty series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return stat.Mean(series, nil)
}

// Variance is the sample variance with divisor n-1. Callers guard n > 1.
func Variance(series []float64) float64 {
	return stat.Variance(series, nil)
}
