package timeseries

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// KalmanFilter runs a linear Kalman filter with identity transition and
// observation matrices. Each observation row must have StateDim entries.
func (m *Models) KalmanFilter(observations [][]float64, cfg KalmanConfig) (*KalmanResult, error) {
	const op = "kalman_filter"
	start := time.Now()

	if cfg.StateDim <= 0 {
		cfg.StateDim = DefaultKalmanConfig.StateDim
	}
	if cfg.ProcessNoise <= 0 {
		cfg.ProcessNoise = DefaultKalmanConfig.ProcessNoise
	}
	if cfg.ObservationNoise <= 0 {
		cfg.ObservationNoise = DefaultKalmanConfig.ObservationNoise
	}
	if len(observations) == 0 {
		return &KalmanResult{}, numeric.Insufficient(op, "no observations")
	}
	dim := cfg.StateDim
	for i, row := range observations {
		if len(row) != dim {
			return nil, numeric.Invalid(op, "observation %d has %d values, want %d", i, len(row), dim)
		}
	}

	n := len(observations)
	eye := identity(dim)
	q := scaled(eye, cfg.ProcessNoise)
	r := scaled(eye, cfg.ObservationNoise)

	result := &KalmanResult{
		FilteredState:       make([][]float64, n),
		FilteredCovariance:  make([][][]float64, n),
		PredictedState:      make([][]float64, n),
		PredictedCovariance: make([][][]float64, n),
	}

	x := mat.NewVecDense(dim, append([]float64(nil), observations[0]...))
	p := mat.DenseCopyOf(r)
	loglik := 0.0

	for t := 0; t < n; t++ {
		// predict: F = I
		xPred := mat.VecDenseCopyOf(x)
		var pPred mat.Dense
		pPred.Add(p, q)

		// gain: H = I
		var s mat.Dense
		s.Add(&pPred, r)
		var sInv mat.Dense
		if err := sInv.Inverse(&s); err != nil {
			return nil, fmt.Errorf("kalman filter: innovation covariance not invertible at step %d: %w", t, err)
		}
		var k mat.Dense
		k.Mul(&pPred, &sInv)

		obs := mat.NewVecDense(dim, append([]float64(nil), observations[t]...))
		var innov mat.VecDense
		innov.SubVec(obs, xPred)

		var correction mat.VecDense
		correction.MulVec(&k, &innov)
		var xNew mat.VecDense
		xNew.AddVec(xPred, &correction)

		var ik mat.Dense
		ik.Sub(eye, &k)
		var pNew mat.Dense
		pNew.Mul(&ik, &pPred)

		for i := 0; i < dim; i++ {
			sii := s.At(i, i)
			v := innov.AtVec(i)
			loglik += v*v/sii + math.Log(sii)
		}

		result.PredictedState[t] = vecToSlice(xPred)
		result.PredictedCovariance[t] = denseToRows(&pPred)
		result.FilteredState[t] = vecToSlice(&xNew)
		result.FilteredCovariance[t] = denseToRows(&pNew)

		x = &xNew
		p = &pNew
	}

	result.Likelihood = -0.5 * loglik
	result.ComputeTimeMs = elapsedMs(start)
	return result, nil
}

// KalmanFilter1D filters a scalar series
func (m *Models) KalmanFilter1D(observations []float64, processNoise, observationNoise float64) (*KalmanResult, error) {
	rows := make([][]float64, len(observations))
	for i, v := range observations {
		rows[i] = []float64{v}
	}
	return m.KalmanFilter(rows, KalmanConfig{StateDim: 1, ProcessNoise: processNoise, ObservationNoise: observationNoise})
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func scaled(a *mat.Dense, f float64) *mat.Dense {
	var out mat.Dense
	out.Scale(f, a)
	return &out
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func denseToRows(d *mat.Dense) [][]float64 {
	r, c := d.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = d.At(i, j)
		}
	}
	return out
}
