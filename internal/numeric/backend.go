package numeric

import (
	"fmt"
	"strings"
)

const (
	BackendFull  = "full"
	BackendBasic = "basic"
)

// Backend exposes the statistical capabilities that differ between a full
// numeric stack and the stdlib-only fallback. Callers choose one at construction.
type Backend interface {
	Name() string
	// Degraded is true when results are approximations of the full calculation
	Degraded() bool

	NormalQuantile(p float64) (float64, error)
	NormalPDF(x float64) (float64, error)

	// CovarianceMatrix takes one row per variable and returns the ddof=1 covariance
	CovarianceMatrix(rows [][]float64) ([][]float64, error)
	// Cholesky returns the lower-triangular factor L with L*Lᵀ = cov
	Cholesky(cov [][]float64) ([][]float64, error)
	// LeastSquares solves min ||X·b - y|| for a design matrix with one row per observation
	LeastSquares(x [][]float64, y []float64) ([]float64, error)
	Correlation(a, b []float64) (float64, error)
}

// NewBackend resolves a backend by its configured name
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendFull:
		return NewFullStatsBackend(), nil
	case BackendBasic:
		return NewBasicFallbackBackend(), nil
	default:
		return nil, fmt.Errorf("unknown numeric backend %q", name)
	}
}
