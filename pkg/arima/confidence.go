package arima

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Z95 is the two-sided 95% standard normal quantile.
const Z95 = 1.959963984540054

// DefaultConfidence is the confidence level of prediction intervals.
const DefaultConfidence = 0.95

// ZScore returns the two-sided standard normal quantile for level.
func ZScore(level float64) (float64, error) {
	if !(level > 0 && level < 1) {
		return 0, fmt.Errorf("%w: confidence level %v outside (0, 1)", ErrInvalidOrder, level)
	}
	if level == DefaultConfidence {
		return Z95, nil
	}
	return distuv.UnitNormal.Quantile(1 - (1-level)/2), nil
}

// ParseConfidenceLevel accepts p-notation ("p95"), percentages ("95%") and
// fractions ("0.95"). An empty string yields DefaultConfidence.
func ParseConfidenceLevel(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultConfidence, nil
	}

	scale := 1.0
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "p"):
		lower, scale = lower[1:], 100
	case strings.HasSuffix(lower, "%"):
		lower, scale = strings.TrimSuffix(lower, "%"), 100
	}

	v, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid confidence level %q: %w", s, err)
	}
	level := v / scale
	if !(level > 0 && level < 1) {
		return 0, fmt.Errorf("confidence level %q out of range (0, 1)", s)
	}
	return level, nil
}

// FormatConfidenceLevel renders a level in p-notation to one decimal,
// e.g. 0.95 → "p95", 0.975 → "p97.5".
func FormatConfidenceLevel(level float64) string {
	pct := math.Round(level*1000) / 10
	if pct == float64(int(pct)) {
		return fmt.Sprintf("p%d", int(pct))
	}
	return fmt.Sprintf("p%.1f", pct)
}
