package timeseries

import (
	"math"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// ARIMAForecast fits an AR(p) model on the d-times differenced series via
// Levinson-Durbin and forecasts steps ahead with widening confidence bands.
// The MA order only enters the information criteria.
func (m *Models) ARIMAForecast(data []float64, order Order, steps int, confidence float64) (*ARIMAResult, error) {
	const op = "arima_forecast"
	start := time.Now()

	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, numeric.Invalid(op, "order (%d,%d,%d) must be non-negative", order.P, order.D, order.Q)
	}
	if steps < 1 {
		return nil, numeric.Invalid(op, "steps must be at least 1, got %d", steps)
	}
	conf, err := numeric.NormalizeConfidence(confidence)
	if err != nil {
		return nil, err
	}
	if order.D > 0 && order.D >= len(data)-2 {
		order.D = max(len(data)-3, 0)
	}
	if len(data)-order.D < 3 {
		return &ARIMAResult{Order: order}, numeric.Insufficient(op, "need at least %d points, got %d", order.D+3, len(data))
	}

	diffed := append([]float64(nil), data...)
	for i := 0; i < order.D; i++ {
		diffed = numeric.Diff(diffed)
	}
	n := len(diffed)
	if order.P >= n {
		order.P = n - 1
	}

	coeffs := levinsonDurbin(autocorrelation(diffed), order.P)
	p := len(coeffs)

	residuals := append([]float64(nil), diffed...)
	for t := p; t < n; t++ {
		residuals[t] = diffed[t] - arPrediction(coeffs, diffed[:t])
	}
	residualVar := numeric.PopVariance(residuals[p:])

	z, err := m.backend.NormalQuantile((1 + conf) / 2)
	if err != nil {
		return nil, err
	}

	forecast := make([]float64, steps)
	lower := make([]float64, steps)
	upper := make([]float64, steps)
	history := append([]float64(nil), diffed...)
	for h := 0; h < steps; h++ {
		forecast[h] = arPrediction(coeffs, history)
		width := z * math.Sqrt(residualVar*(1+float64(h)*0.1))
		lower[h] = forecast[h] - width
		upper[h] = forecast[h] + width
		history = append(history, forecast[h])
	}

	if order.D > 0 {
		last := data[len(data)-1]
		forecast = integrate(forecast, last)
		lower = integrate(lower, last)
		upper = integrate(upper, last)
	}

	k := float64(order.P + order.Q + 1)
	aic := k*math.Log(residualVar) + 2*k
	bic := k*math.Log(float64(n)) + k*math.Log(2*math.Pi) + k

	return &ARIMAResult{
		Forecast:                forecast,
		ConfidenceIntervalLower: lower,
		ConfidenceIntervalUpper: upper,
		AIC:                     aic,
		BIC:                     bic,
		Order:                   order,
		Residuals:               residuals,
		ARCoefficients:          coeffs,
		ResidualVariance:        residualVar,
		ComputeTimeMs:           elapsedMs(start),
	}, nil
}

// autocorrelation returns the sample autocorrelation of the demeaned series, acf[0] == 1
func autocorrelation(x []float64) []float64 {
	n := len(x)
	mean := numeric.Mean(x)
	centered := make([]float64, n)
	for i, v := range x {
		centered[i] = v - mean
	}

	acf := make([]float64, n)
	for lag := 0; lag < n; lag++ {
		s := 0.0
		for t := lag; t < n; t++ {
			s += centered[t] * centered[t-lag]
		}
		acf[lag] = s
	}
	if acf[0] == 0 {
		acf[0] = 1
		return acf
	}
	c0 := acf[0]
	for i := range acf {
		acf[i] /= c0
	}
	return acf
}

// levinsonDurbin solves the Yule-Walker equations for AR coefficients a[1..order].
// Reflection coefficients with |k| >= 1 are not guarded.
func levinsonDurbin(r []float64, order int) []float64 {
	if order >= len(r) {
		order = len(r) - 1
	}
	if order <= 0 {
		return nil
	}

	a := make([]float64, order+1)
	prev := make([]float64, order+1)
	sigma := r[0]

	for k := 1; k <= order; k++ {
		acc := r[k]
		for j := 1; j < k; j++ {
			acc -= a[j] * r[k-j]
		}
		gamma := numeric.SafeDivide(acc, sigma)

		copy(prev, a)
		a[k] = gamma
		for j := 1; j < k; j++ {
			a[j] = prev[j] - gamma*prev[k-j]
		}
		sigma *= 1 - gamma*gamma
	}
	return a[1:]
}

// arPrediction applies coeffs to the most recent values of history, newest first
func arPrediction(coeffs, history []float64) float64 {
	s := 0.0
	n := len(history)
	for i, c := range coeffs {
		if n-1-i < 0 {
			break
		}
		s += c * history[n-1-i]
	}
	return s
}

func integrate(x []float64, level float64) []float64 {
	out := numeric.CumSum(x)
	for i := range out {
		out[i] += level
	}
	return out
}
