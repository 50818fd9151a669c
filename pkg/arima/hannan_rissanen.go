package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ridge is added to the diagonal of XᵀX before solving.
const ridge = 1e-6

// EstimateARMA estimates the AR and MA coefficients of params from a
// stationary series with the Hannan-Rissanen two-stage regression.
//
// The last holdout points are excluded from the regression and used to score
// each round. Every round regresses the series on its own lags and on the
// residuals of the previous round, then recomputes the residuals. After
// maxIterations rounds the coefficients with the lowest holdout RMSE are
// kept; ties keep the earlier round.
func EstimateARMA(series []float64, params *Params, holdout, maxIterations int) error {
	rounds, err := estimateRounds(series, params, holdout, maxIterations)
	if err != nil || len(rounds) == 0 {
		return err
	}
	best := rounds[0]
	for _, rd := range rounds[1:] {
		if rd.rmse < best.rmse {
			best = rd
		}
	}
	return params.SetVector(best.beta)
}

// round is the outcome of one regression pass.
type round struct {
	beta []float64
	rmse float64
}

// estimateRounds runs max(maxIterations, 1) regression passes and returns
// the coefficients and holdout RMSE of each. params holds the last pass on
// return. An order without coefficients yields no rounds.
func estimateRounds(series []float64, params *Params, holdout, maxIterations int) ([]round, error) {
	data := append([]float64(nil), series...)
	r := max(params.DegreeAR(), params.DegreeMA()) + 1
	length := len(data) - holdout
	size := length - r
	if length < 2*r {
		return nil, insufficient(fmt.Sprintf("hannan-rissanen for %s", params.order), 2*r+holdout, len(data))
	}

	cols := params.NumAR() + params.NumMA()
	if cols == 0 {
		return nil, nil
	}
	maxIterations = max(maxIterations, 1)

	errs := make([]float64, length)
	x := mat.NewDense(size, cols, nil)
	y := mat.NewVecDense(size, append([]float64(nil), data[r:r+size]...))

	rounds := make([]round, 0, maxIterations)
	for range maxIterations {
		fillDesign(x, params, data, errs, r, size)
		beta, err := solveRegularized(x, y)
		if err != nil {
			return nil, fmt.Errorf("hannan-rissanen for %s: %w", params.order, err)
		}
		if err := params.SetVector(beta); err != nil {
			return nil, err
		}

		fc, err := ForecastARMA(params, data, length, len(data))
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round{beta: beta, rmse: RMSE(data, fc, length, 0, holdout)})

		if err := updateResiduals(params, data, errs, r, size); err != nil {
			return nil, err
		}
	}
	return rounds, nil
}

// fillDesign writes one column per AR lag (lagged observations) followed by
// one column per MA lag (lagged residuals). Row i explains data[r+i].
func fillDesign(x *mat.Dense, params *Params, data, errs []float64, r, size int) {
	col := 0
	for _, lag := range params.ar.offsets {
		for i := range size {
			x.Set(i, col, data[r-lag+i])
		}
		col++
	}
	for _, lag := range params.ma.offsets {
		for i := range size {
			x.Set(i, col, errs[r-lag+i])
		}
		col++
	}
}

func updateResiduals(params *Params, data, errs []float64, r, size int) error {
	fc, err := ForecastARMA(params, data, r, len(data))
	if err != nil {
		return err
	}
	for j := range size {
		errs[j+r] = data[j+r] - fc[j]
	}
	return nil
}

// solveRegularized solves (XᵀX + ridge·I)β = Xᵀy.
func solveRegularized(x *mat.Dense, y *mat.VecDense) ([]float64, error) {
	_, cols := x.Dims()

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for i := range cols {
		xtx.SetSym(i, i, xtx.At(i, i)+ridge)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)
	return solveSymmetric(&xtx, &xty)
}

// solveSymmetric solves aβ = b by Cholesky, falling back to LU when a is not
// positive definite or the Cholesky solution is not finite.
func solveSymmetric(a *mat.SymDense, b *mat.VecDense) ([]float64, error) {
	var beta mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(a) {
		if err := chol.SolveVecTo(&beta, b); tolerable(err) && finite(beta.RawVector().Data) {
			return append([]float64(nil), beta.RawVector().Data...), nil
		}
	}

	var lu mat.LU
	lu.Factorize(a)
	if lu.Det() == 0 {
		return nil, ErrSingularSystem
	}
	if err := lu.SolveVecTo(&beta, false, b); !tolerable(err) {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}
	if !finite(beta.RawVector().Data) {
		return nil, ErrSingularSystem
	}
	return append([]float64(nil), beta.RawVector().Data...), nil
}

// tolerable accepts a nil error or a mere ill-conditioning warning.
func tolerable(err error) bool {
	var cond mat.Condition
	return err == nil || errors.As(err, &cond)
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
