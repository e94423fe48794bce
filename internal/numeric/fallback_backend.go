package numeric

import (
	"math"
)

// zTable holds the one-sided z-scores available without a distribution library
var zTable = map[float64]float64{
	0.90:  1.282,
	0.95:  1.645,
	0.99:  2.326,
	0.999: 3.090,
}

const defaultZ = 1.645

// BasicFallbackBackend uses only the standard library. It has no distribution
// functions and no covariance support, so risk calculations fall back to fixed
// volatility estimates.
type BasicFallbackBackend struct{}

func NewBasicFallbackBackend() *BasicFallbackBackend {
	return &BasicFallbackBackend{}
}

func (b *BasicFallbackBackend) Name() string   { return BackendBasic }
func (b *BasicFallbackBackend) Degraded() bool { return true }

// NormalQuantile looks p up in the z-table and returns 1.645 for unlisted levels
func (b *BasicFallbackBackend) NormalQuantile(p float64) (float64, error) {
	for level, z := range zTable {
		if math.Abs(level-p) < 1e-9 {
			return z, nil
		}
	}
	return defaultZ, nil
}

func (b *BasicFallbackBackend) NormalPDF(x float64) (float64, error) {
	return 0, ErrUnsupported
}

func (b *BasicFallbackBackend) CovarianceMatrix(rows [][]float64) ([][]float64, error) {
	return nil, ErrUnsupported
}

func (b *BasicFallbackBackend) Cholesky(cov [][]float64) ([][]float64, error) {
	return nil, ErrUnsupported
}

// LeastSquares solves the normal equations XᵀX·b = Xᵀy by Gaussian elimination
func (b *BasicFallbackBackend) LeastSquares(x [][]float64, y []float64) ([]float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, Invalid("least_squares", "design matrix has %d rows for %d observations", len(x), len(y))
	}
	k := len(x[0])
	if len(x) < k {
		return nil, Insufficient("least_squares", "%d observations for %d regressors", len(x), k)
	}

	// augmented [XᵀX | Xᵀy]
	a := make([][]float64, k)
	for i := range a {
		a[i] = make([]float64, k+1)
	}
	for r, row := range x {
		if len(row) != k {
			return nil, Invalid("least_squares", "ragged design matrix at row %d", r)
		}
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				a[i][j] += row[i] * row[j]
			}
			a[i][k] += row[i] * y[r]
		}
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, Invalid("least_squares", "design matrix is singular")
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < k; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= k; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	coef := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		s := a[i][k]
		for j := i + 1; j < k; j++ {
			s -= a[i][j] * coef[j]
		}
		coef[i] = s / a[i][i]
	}
	return coef, nil
}

func (b *BasicFallbackBackend) Correlation(a, c []float64) (float64, error) {
	if len(a) != len(c) {
		return 0, Invalid("correlation", "series lengths %d and %d differ", len(a), len(c))
	}
	if len(a) < 2 {
		return 0, Insufficient("correlation", "need at least 2 observations")
	}
	var ma, mc float64
	for i := range a {
		ma += a[i]
		mc += c[i]
	}
	ma /= float64(len(a))
	mc /= float64(len(c))

	var cov, va, vc float64
	for i := range a {
		da, dc := a[i]-ma, c[i]-mc
		cov += da * dc
		va += da * da
		vc += dc * dc
	}
	return SafeDivide(cov, math.Sqrt(va*vc)), nil
}
