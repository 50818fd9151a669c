package arima

// Backshift is a sparse lag polynomial. It records which lags participate in
// an AR or MA term and, once compiled, holds one coefficient per active lag.
//
// Lag 0 is always active. Compile freezes the active set into coefficient
// slots; coefficients are addressed by lag, not by slot.
type Backshift struct {
	degree int
	active []bool

	// slot maps a lag to its coefficient index, -1 when the lag has none.
	slot    []int
	offsets []int
	coeffs  []float64
}

// NewBackshift returns a polynomial of the given degree with every lag set
// to initial. It panics on a negative degree.
func NewBackshift(degree int, initial bool) *Backshift {
	if degree < 0 {
		panic("arima: backshift degree must be non-negative")
	}
	active := make([]bool, degree+1)
	for i := range active {
		active[i] = initial
	}
	active[0] = true
	return &Backshift{degree: degree, active: active}
}

// Degree is the largest lag the polynomial can hold.
func (b *Backshift) Degree() int { return b.degree }

// SetActive switches a lag on or off. Lag 0 cannot be switched off, and the
// active set is frozen once the polynomial is compiled.
func (b *Backshift) SetActive(lag int, on bool) {
	if lag <= 0 || lag > b.degree || b.Compiled() {
		return
	}
	b.active[lag] = on
}

// IsActive reports whether lag participates in the polynomial.
func (b *Backshift) IsActive(lag int) bool {
	return lag >= 0 && lag <= b.degree && b.active[lag]
}

// Apply multiplies two polynomials on their lag structure only: the result
// has degree b.Degree()+other.Degree() and lag j+k is active whenever j is
// active in b and k is active in other.
func (b *Backshift) Apply(other *Backshift) *Backshift {
	merged := NewBackshift(b.degree+other.degree, false)
	for j := 0; j <= b.degree; j++ {
		if !b.active[j] {
			continue
		}
		for k := 0; k <= other.degree; k++ {
			if other.active[k] {
				merged.active[j+k] = true
			}
		}
	}
	return merged
}

// Compile allocates a zero coefficient for every active lag. Lag 0 gets a
// coefficient only when includeZero is set. Compiling twice is a no-op.
func (b *Backshift) Compile(includeZero bool) {
	if b.Compiled() {
		return
	}
	b.slot = make([]int, b.degree+1)
	b.offsets = make([]int, 0, b.degree+1)
	for lag := 0; lag <= b.degree; lag++ {
		b.slot[lag] = -1
		if !b.active[lag] || (lag == 0 && !includeZero) {
			continue
		}
		b.slot[lag] = len(b.offsets)
		b.offsets = append(b.offsets, lag)
	}
	b.coeffs = make([]float64, len(b.offsets))
}

// Compiled reports whether Compile has run.
func (b *Backshift) Compiled() bool { return b.slot != nil }

// NumParams is the number of fitted coefficients.
func (b *Backshift) NumParams() int { return len(b.offsets) }

// Offsets returns the coefficient lags in ascending order.
func (b *Backshift) Offsets() []int {
	return append([]int(nil), b.offsets...)
}

// Param returns the coefficient at lag.
func (b *Backshift) Param(lag int) (float64, error) {
	i, err := b.index(lag)
	if err != nil {
		return 0, err
	}
	return b.coeffs[i], nil
}

// SetParam sets the coefficient at lag.
func (b *Backshift) SetParam(lag int, value float64) error {
	i, err := b.index(lag)
	if err != nil {
		return err
	}
	b.coeffs[i] = value
	return nil
}

func (b *Backshift) index(lag int) (int, error) {
	if lag < 0 || lag > b.degree || b.slot == nil || b.slot[lag] < 0 {
		return 0, &ParameterIndexError{Lag: lag}
	}
	return b.slot[lag], nil
}

// Coefficients returns the coefficients in the order of Offsets.
func (b *Backshift) Coefficients() []float64 {
	return append([]float64(nil), b.coeffs...)
}

// Combine evaluates Σ coeff(lag)·series[t-lag] over the compiled lags.
// The caller guarantees t >= the largest compiled lag.
func (b *Backshift) Combine(series []float64, t int) float64 {
	var sum float64
	for i, lag := range b.offsets {
		sum += b.coeffs[i] * series[t-lag]
	}
	return sum
}

// Dense returns the coefficients laid out by lag: element k holds the
// coefficient of lag k+1, zero for inactive lags. Lag 0 is not included.
func (b *Backshift) Dense() []float64 {
	maxLag := 0
	for _, lag := range b.offsets {
		maxLag = max(maxLag, lag)
	}
	dense := make([]float64, maxLag)
	for i, lag := range b.offsets {
		if lag > 0 {
			dense[lag-1] = b.coeffs[i]
		}
	}
	return dense
}
