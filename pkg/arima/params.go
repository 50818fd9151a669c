package arima

import "fmt"

// Params holds the AR and MA lag polynomials of one model order and their
// fitted coefficients. A Params is mutated in place by estimation and must
// not be shared between concurrent fits; use Clone to hand out a copy.
type Params struct {
	order Order
	ar    *Backshift
	ma    *Backshift
}

// NewParams builds the merged seasonal × non-seasonal lag structure for
// order with all coefficients at zero.
func NewParams(order Order) (*Params, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	p := &Params{
		order: order,
		ar:    mergeSeasonal(order.P, order.SeasonalP, order.Period),
		ma:    mergeSeasonal(order.Q, order.SeasonalQ, order.Period),
	}
	p.ar.Compile(false)
	p.ma.Compile(false)
	return p, nil
}

// mergeSeasonal multiplies a dense polynomial of degree nonSeasonal with a
// seasonal one whose active lags are the multiples of period up to
// seasonal periods.
func mergeSeasonal(nonSeasonal, seasonal, period int) *Backshift {
	dense := NewBackshift(nonSeasonal, true)
	if period <= 0 {
		seasonal = 0
	}
	sparse := NewBackshift(seasonal*period, false)
	for s := 1; s <= seasonal; s++ {
		sparse.SetActive(s*period, true)
	}
	return sparse.Apply(dense)
}

// Order returns the model order.
func (p *Params) Order() Order { return p.order }

// DegreeAR is the largest AR lag.
func (p *Params) DegreeAR() int { return p.ar.Degree() }

// DegreeMA is the largest MA lag.
func (p *Params) DegreeMA() int { return p.ma.Degree() }

func (p *Params) NumAR() int { return p.ar.NumParams() }

func (p *Params) NumMA() int { return p.ma.NumParams() }

func (p *Params) OffsetsAR() []int { return p.ar.Offsets() }

func (p *Params) OffsetsMA() []int { return p.ma.Offsets() }

// AR returns the coefficient of AR lag.
func (p *Params) AR(lag int) (float64, error) { return p.ar.Param(lag) }

// MA returns the coefficient of MA lag.
func (p *Params) MA(lag int) (float64, error) { return p.ma.Param(lag) }

// SetAR sets the coefficient of AR lag.
func (p *Params) SetAR(lag int, v float64) error { return p.ar.SetParam(lag, v) }

// SetMA sets the coefficient of MA lag.
func (p *Params) SetMA(lag int, v float64) error { return p.ma.SetParam(lag, v) }

// Vector returns the AR coefficients followed by the MA coefficients, each
// in ascending lag order.
func (p *Params) Vector() []float64 {
	return append(p.ar.Coefficients(), p.ma.Coefficients()...)
}

// SetVector is the inverse of Vector.
func (p *Params) SetVector(v []float64) error {
	if len(v) != p.NumAR()+p.NumMA() {
		return fmt.Errorf("parameter vector has %d values, model %s needs %d",
			len(v), p.order, p.NumAR()+p.NumMA())
	}
	copy(p.ar.coeffs, v[:p.NumAR()])
	copy(p.ma.coeffs, v[p.NumAR():])
	return nil
}

// ARCoefficients returns φ1..φk laid out by lag, zeros for inactive lags.
func (p *Params) ARCoefficients() []float64 { return p.ar.Dense() }

// MACoefficients returns θ1..θk laid out by lag, zeros for inactive lags.
func (p *Params) MACoefficients() []float64 { return p.ma.Dense() }

// Clone returns an independent copy including coefficients.
func (p *Params) Clone() *Params {
	c, _ := NewParams(p.order)
	_ = c.SetVector(p.Vector())
	return c
}

// forecastOnePoint is the one-step ARMA prediction at t.
func (p *Params) forecastOnePoint(data, errs []float64, t int) float64 {
	return p.ar.Combine(data, t) + p.ma.Combine(errs, t)
}

// transform is the per-fit differencing state: the initial conditions saved
// at every differencing level and the mean removed from the stationary
// series. It is owned by a single pipeline run.
type transform struct {
	period      int
	seasonal    [][]float64
	nonSeasonal [][]float64
	mean        float64
}

// differentiate applies D seasonal then d non-seasonal differences to train
// and centers the result.
func (p *Params) differentiate(train []float64) ([]float64, *transform, error) {
	tr := &transform{period: p.order.Period}
	current := append([]float64(nil), train...)
	if p.order.Period > 0 {
		for range p.order.SeasonalD {
			next, init, err := Difference(current, p.order.Period)
			if err != nil {
				return nil, nil, err
			}
			tr.seasonal = append(tr.seasonal, init)
			current = next
		}
	}
	for range p.order.D {
		next, init, err := Difference(current, 1)
		if err != nil {
			return nil, nil, err
		}
		tr.nonSeasonal = append(tr.nonSeasonal, init)
		current = next
	}
	tr.mean = Mean(current)
	Shift(current, -tr.mean)
	return current, tr, nil
}

// integrate restores the mean and undoes differencing on a stationary
// series that may extend past the training data. Non-seasonal levels are
// undone first, then seasonal ones, each from the last level back.
func (tr *transform) integrate(stationary []float64) ([]float64, error) {
	current := append([]float64(nil), stationary...)
	Shift(current, tr.mean)
	var err error
	for j := len(tr.nonSeasonal) - 1; j >= 0; j-- {
		if current, err = Integrate(current, tr.nonSeasonal[j], 1); err != nil {
			return nil, err
		}
	}
	for j := len(tr.seasonal) - 1; j >= 0; j-- {
		if current, err = Integrate(current, tr.seasonal[j], tr.period); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// Stationary returns series after the differencing and centering that order
// prescribes.
func Stationary(series []float64, order Order) ([]float64, error) {
	p, err := NewParams(order)
	if err != nil {
		return nil, err
	}
	out, _, err := p.differentiate(series)
	return out, err
}
