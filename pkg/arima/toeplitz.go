package arima

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Toeplitz returns the symmetric Toeplitz matrix T[i][j] = input[|i-j|].
func Toeplitz(input []float64) *mat.SymDense {
	n := len(input)
	t := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			t.SetSym(i, j, input[j-i])
		}
	}
	return t
}

// ARMAToMA returns the first lagMax psi weights of the infinite MA
// representation of an ARMA model, starting with ψ0 = 1. ar and ma are
// lag-dense: ar[j] is the coefficient of lag j+1.
func ARMAToMA(ar, ma []float64, lagMax int) []float64 {
	if lagMax <= 0 {
		return nil
	}
	p, q := len(ar), len(ma)
	psi := make([]float64, lagMax)
	for i := range lagMax {
		v := 0.0
		if i < q {
			v = ma[i]
		}
		for j := 0; j < min(i+1, p); j++ {
			prev := 1.0
			if i-j-1 >= 0 {
				prev = psi[i-j-1]
			}
			v += ar[j] * prev
		}
		psi[i] = v
	}
	out := make([]float64, lagMax)
	out[0] = 1
	copy(out[1:], psi[:lagMax-1])
	return out
}

// CumulativeSumOfSquares returns sqrt(Σ_{k<=i} coeffs[k]²) for every i.
func CumulativeSumOfSquares(coeffs []float64) []float64 {
	out := make([]float64, len(coeffs))
	var sum float64
	for i, c := range coeffs {
		sum += c * c
		out[i] = math.Sqrt(sum)
	}
	return out
}

// YuleWalker estimates AR(p) coefficients from the sample autocovariance of
// series by solving the Toeplitz system with Cholesky.
func YuleWalker(series []float64, p int) ([]float64, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: yule-walker order %d", ErrInvalidOrder, p)
	}
	n := len(series)
	if n < p+1 {
		return nil, insufficient(fmt.Sprintf("yule-walker AR(%d)", p), p+1, n)
	}

	acov := make([]float64, p+1)
	for lag := 0; lag <= p; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += series[i] * series[i+lag]
		}
		acov[lag] = sum / float64(n)
	}

	var chol mat.Cholesky
	if !chol.Factorize(Toeplitz(acov[:p])) {
		return nil, fmt.Errorf("%w: autocovariance matrix is not positive definite", ErrSingularSystem)
	}
	var phi mat.VecDense
	if err := chol.SolveVecTo(&phi, mat.NewVecDense(p, append([]float64(nil), acov[1:]...))); !tolerable(err) {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}
	return append([]float64(nil), phi.RawVector().Data...), nil
}
