package arima

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScore(t *testing.T) {
	z, err := ZScore(0.95)
	require.NoError(t, err)
	assert.Equal(t, Z95, z)

	z, err = ZScore(0.90)
	require.NoError(t, err)
	assert.InDelta(t, 1.6448536, z, 1e-6)

	z, err = ZScore(0.99)
	require.NoError(t, err)
	assert.InDelta(t, 2.5758293, z, 1e-6)

	for _, bad := range []float64{0, 1, -0.5, 1.2} {
		_, err := ZScore(bad)
		assert.ErrorIs(t, err, ErrInvalidOrder, "level %v", bad)
	}
}

func TestParseConfidenceLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "", want: 0.95},
		{in: "p95", want: 0.95},
		{in: "P90", want: 0.90},
		{in: "95%", want: 0.95},
		{in: "0.8", want: 0.8},
		{in: " p97.5 ", want: 0.975},
		{in: "p100", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "0", wantErr: true},
		{in: "high", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConfidenceLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestFormatConfidenceLevel(t *testing.T) {
	assert.Equal(t, "p95", FormatConfidenceLevel(0.95))
	assert.Equal(t, "p90", FormatConfidenceLevel(0.9))
	assert.Equal(t, "p97.5", FormatConfidenceLevel(0.975))
	assert.Equal(t, "p29", FormatConfidenceLevel(0.29))
	assert.Equal(t, "p57", FormatConfidenceLevel(0.57))
	assert.Equal(t, "p99.9", FormatConfidenceLevel(0.999))

	for _, s := range []string{"p80", "p99.5", "0.29"} {
		level, err := ParseConfidenceLevel(s)
		require.NoError(t, err)
		back, err := ParseConfidenceLevel(FormatConfidenceLevel(level))
		require.NoError(t, err)
		assert.InDelta(t, level, back, 1e-12, s)
	}
}
