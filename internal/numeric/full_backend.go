package numeric

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FullStatsBackend is backed by gonum
type FullStatsBackend struct{}

func NewFullStatsBackend() *FullStatsBackend {
	return &FullStatsBackend{}
}

func (b *FullStatsBackend) Name() string   { return BackendFull }
func (b *FullStatsBackend) Degraded() bool { return false }

func (b *FullStatsBackend) NormalQuantile(p float64) (float64, error) {
	if p <= 0 || p >= 1 {
		return 0, Invalid("normal_quantile", "probability %v out of (0,1)", p)
	}
	return distuv.UnitNormal.Quantile(p), nil
}

func (b *FullStatsBackend) NormalPDF(x float64) (float64, error) {
	return distuv.UnitNormal.Prob(x), nil
}

func (b *FullStatsBackend) CovarianceMatrix(rows [][]float64) ([][]float64, error) {
	data, err := observationMatrix(rows)
	if err != nil {
		return nil, err
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	n := len(rows)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = cov.At(i, j)
		}
	}
	return out, nil
}

func (b *FullStatsBackend) Cholesky(cov [][]float64) ([][]float64, error) {
	n := len(cov)
	if n == 0 {
		return nil, Invalid("cholesky", "empty matrix")
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(cov[i]) != n {
			return nil, Invalid("cholesky", "matrix is not square")
		}
		for j := i; j < n; j++ {
			sym.SetSym(i, j, cov[i][j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("cholesky: matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			out[i][j] = l.At(i, j)
		}
	}
	return out, nil
}

func (b *FullStatsBackend) LeastSquares(x [][]float64, y []float64) ([]float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, Invalid("least_squares", "design matrix has %d rows for %d observations", len(x), len(y))
	}
	k := len(x[0])
	if len(x) < k {
		return nil, Insufficient("least_squares", "%d observations for %d regressors", len(x), k)
	}
	design := mat.NewDense(len(x), k, nil)
	for i, row := range x {
		if len(row) != k {
			return nil, Invalid("least_squares", "ragged design matrix at row %d", i)
		}
		design.SetRow(i, row)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("least squares: %w", err)
		}
	}

	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = coef.AtVec(i)
	}
	return out, nil
}

func (b *FullStatsBackend) Correlation(a, c []float64) (float64, error) {
	if len(a) != len(c) {
		return 0, Invalid("correlation", "series lengths %d and %d differ", len(a), len(c))
	}
	if len(a) < 2 {
		return 0, Insufficient("correlation", "need at least 2 observations")
	}
	return Finite(stat.Correlation(a, c, nil)), nil
}

// observationMatrix lays variables out as columns, one row per observation
func observationMatrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, Invalid("covariance", "no series supplied")
	}
	obs := len(rows[0])
	if obs < 2 {
		return nil, Insufficient("covariance", "need at least 2 observations")
	}
	data := mat.NewDense(obs, len(rows), nil)
	for j, row := range rows {
		if len(row) != obs {
			return nil, Invalid("covariance", "series %d has %d observations, want %d", j, len(row), obs)
		}
		data.SetCol(j, row)
	}
	return data, nil
}
