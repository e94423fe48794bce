package timeseries

import (
	"math"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// GARCH11Forecast runs the GARCH(1,1) variance recursion with the given
// parameters over a return series and projects it steps ahead. Parameters are
// taken as given; nothing is fitted.
func (m *Models) GARCH11Forecast(data []float64, params GARCHParams, steps int) (*GARCHResult, error) {
	const op = "garch11_forecast"
	start := time.Now()

	if steps < 1 {
		return nil, numeric.Invalid(op, "steps must be at least 1, got %d", steps)
	}
	if len(data) < 2 {
		return &GARCHResult{}, numeric.Insufficient(op, "need at least 2 returns, got %d", len(data))
	}

	sampleVar := numeric.PopVariance(data)
	omega, alpha, beta := params.Omega, params.Alpha, params.Beta
	if omega <= 0 {
		omega = sampleVar * 0.01
	}
	if alpha <= 0 || beta <= 0 {
		alpha, beta = DefaultGARCHParams.Alpha, DefaultGARCHParams.Beta
	}

	n := len(data)
	h := make([]float64, n)
	h[0] = sampleVar
	for t := 1; t < n; t++ {
		h[t] = omega + alpha*data[t-1]*data[t-1] + beta*h[t-1]
	}

	stationary := alpha+beta < 1
	longRun := numeric.Mean(h)
	if stationary {
		longRun = omega / (1 - alpha - beta)
	}

	forecast := make([]float64, steps)
	last := data[n-1]
	forecast[0] = omega + alpha*last*last + beta*h[n-1]
	for k := 1; k < steps; k++ {
		forecast[k] = omega + beta*forecast[k-1]
	}

	vol := make([]float64, n)
	for i, v := range h {
		vol[i] = math.Sqrt(v)
	}

	return &GARCHResult{
		ConditionalVolatility: vol,
		VarianceForecast:      forecast,
		ForecastVolatility:    math.Sqrt(forecast[steps-1]),
		Omega:                 omega,
		Alpha:                 alpha,
		Beta:                  beta,
		LongRunVariance:       longRun,
		TotalVolatility:       math.Sqrt(longRun),
		Stationary:            stationary,
		ComputeTimeMs:         elapsedMs(start),
	}, nil
}
