package timeseries

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

func noise(seed int64, n int, scale float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * scale
	}
	return out
}

func ar1(seed int64, n int, phi float64) []float64 {
	e := noise(seed, n, 1)
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = phi*out[i-1] + e[i]
	}
	return out
}

func TestLevinsonDurbin(t *testing.T) {
	t.Run("solves yule-walker for AR(2)", func(t *testing.T) {
		r1 := 0.5 / 0.7
		r2 := 0.5*r1 + 0.3
		coeffs := levinsonDurbin([]float64{1, r1, r2}, 2)
		require.Len(t, coeffs, 2)
		assert.InDelta(t, 0.5, coeffs[0], 1e-9)
		assert.InDelta(t, 0.3, coeffs[1], 1e-9)
	})

	t.Run("clips order", func(t *testing.T) {
		coeffs := levinsonDurbin([]float64{1, 0.5}, 5)
		assert.Len(t, coeffs, 1)
	})

	t.Run("zero order", func(t *testing.T) {
		assert.Nil(t, levinsonDurbin([]float64{1, 0.5}, 0))
	})
}

func TestARIMAForecast(t *testing.T) {
	m := NewModels(numeric.NewFullStatsBackend())

	t.Run("recovers AR(1) coefficient", func(t *testing.T) {
		data := ar1(11, 2000, 0.7)
		res, err := m.ARIMAForecast(data, Order{P: 1, D: 0, Q: 0}, 10, 0.95)
		require.NoError(t, err)
		require.Len(t, res.ARCoefficients, 1)
		assert.InDelta(t, 0.7, res.ARCoefficients[0], 0.08)
		assert.Len(t, res.Forecast, 10)
		assert.Len(t, res.Residuals, len(data))

		for h := 0; h < 10; h++ {
			assert.Less(t, res.ConfidenceIntervalLower[h], res.Forecast[h])
			assert.Greater(t, res.ConfidenceIntervalUpper[h], res.Forecast[h])
		}
		for h := 1; h < 10; h++ {
			prev := res.ConfidenceIntervalUpper[h-1] - res.ConfidenceIntervalLower[h-1]
			cur := res.ConfidenceIntervalUpper[h] - res.ConfidenceIntervalLower[h]
			assert.Greater(t, cur, prev)
		}
	})

	t.Run("integrates differenced forecast", func(t *testing.T) {
		steps := noise(3, 300, 1)
		data := make([]float64, len(steps))
		level := 100.0
		for i, s := range steps {
			level += 0.5 + s
			data[i] = level
		}

		res, err := m.ARIMAForecast(data, Order{P: 1, D: 1, Q: 1}, 5, 95)
		require.NoError(t, err)
		assert.Len(t, res.Forecast, 5)
		assert.Len(t, res.Residuals, len(data)-1)
		// first step stays within a few shocks of the last level
		assert.InDelta(t, data[len(data)-1], res.Forecast[0], 5)
		assert.Less(t, res.ConfidenceIntervalLower[0], res.Forecast[0])
	})

	t.Run("order serializes as tuple", func(t *testing.T) {
		data, err := json.Marshal(Order{P: 1, D: 0, Q: 1})
		require.NoError(t, err)
		assert.Equal(t, "[1,0,1]", string(data))
	})

	t.Run("invalid parameters", func(t *testing.T) {
		_, err := m.ARIMAForecast([]float64{1, 2, 3, 4}, Order{P: -1}, 5, 0.95)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

		_, err = m.ARIMAForecast([]float64{1, 2, 3, 4}, Order{P: 1}, 0, 0.95)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

		_, err = m.ARIMAForecast([]float64{1, 2, 3, 4}, Order{P: 1}, 3, 150)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})

	t.Run("insufficient data returns empty result", func(t *testing.T) {
		res, err := m.ARIMAForecast([]float64{1, 2}, Order{P: 1}, 3, 0.95)
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
		assert.False(t, numeric.IsFatal(err))
		require.NotNil(t, res)
		assert.Empty(t, res.Forecast)
	})
}

func TestGARCH11Forecast(t *testing.T) {
	m := NewModels(nil)
	returns := noise(42, 250, 0.01)

	t.Run("forecast and history shape", func(t *testing.T) {
		res, err := m.GARCH11Forecast(returns, GARCHParams{Omega: 0.0001, Alpha: 0.05, Beta: 0.90}, 5)
		require.NoError(t, err)
		assert.Greater(t, res.ForecastVolatility, 0.0)
		assert.Len(t, res.ConditionalVolatility, len(returns))
		assert.Len(t, res.VarianceForecast, 5)
		assert.True(t, res.Stationary)
		assert.InDelta(t, 0.002, res.LongRunVariance, 1e-12)
		assert.InDelta(t, math.Sqrt(0.002), res.TotalVolatility, 1e-12)

		for k := 1; k < 5; k++ {
			assert.InDelta(t, 0.0001+0.90*res.VarianceForecast[k-1], res.VarianceForecast[k], 1e-15)
		}
		assert.InDelta(t, math.Sqrt(res.VarianceForecast[4]), res.ForecastVolatility, 1e-15)
	})

	t.Run("defaults replace non-positive parameters", func(t *testing.T) {
		res, err := m.GARCH11Forecast(returns, GARCHParams{}, 3)
		require.NoError(t, err)
		assert.Equal(t, 0.05, res.Alpha)
		assert.Equal(t, 0.90, res.Beta)
		assert.InDelta(t, numeric.PopVariance(returns)*0.01, res.Omega, 1e-15)
	})

	t.Run("non-stationary falls back to mean variance", func(t *testing.T) {
		res, err := m.GARCH11Forecast(returns, GARCHParams{Omega: 0.0001, Alpha: 0.5, Beta: 0.6}, 2)
		require.NoError(t, err)
		assert.False(t, res.Stationary)
		sum := 0.0
		for _, v := range res.ConditionalVolatility {
			sum += v * v
		}
		assert.InDelta(t, sum/float64(len(returns)), res.LongRunVariance, 1e-12)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := m.GARCH11Forecast(returns, DefaultGARCHParams, 0)
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

		res, err := m.GARCH11Forecast([]float64{0.01}, DefaultGARCHParams, 1)
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
		assert.NotNil(t, res)
	})
}

func TestKalmanFilter(t *testing.T) {
	m := NewModels(nil)

	t.Run("constant series", func(t *testing.T) {
		res, err := m.KalmanFilter1D([]float64{5, 5, 5, 5}, 0.01, 0.1)
		require.NoError(t, err)
		require.Len(t, res.FilteredState, 4)
		for _, s := range res.FilteredState {
			assert.InDelta(t, 5.0, s[0], 1e-12)
		}
		// P0 = (1 - K) * (R + Q), K = (R + Q) / (R + Q + R)
		assert.InDelta(t, 0.11*0.1/0.21, res.FilteredCovariance[0][0][0], 1e-12)
		assert.InDelta(t, 0.11, res.PredictedCovariance[0][0][0], 1e-12)
		assert.False(t, math.IsNaN(res.Likelihood))
	})

	t.Run("smooths noisy observations", func(t *testing.T) {
		obs := noise(5, 200, 1)
		res, err := m.KalmanFilter1D(obs, 0.01, 1)
		require.NoError(t, err)

		rawVar := numeric.PopVariance(obs)
		filtered := make([]float64, len(obs))
		for i, s := range res.FilteredState {
			filtered[i] = s[0]
		}
		assert.Less(t, numeric.PopVariance(filtered[10:]), rawVar)
	})

	t.Run("multi dimensional", func(t *testing.T) {
		res, err := m.KalmanFilter([][]float64{{1, 10}, {2, 11}, {3, 12}}, KalmanConfig{StateDim: 2})
		require.NoError(t, err)
		require.Len(t, res.FilteredState, 3)
		assert.Len(t, res.FilteredState[0], 2)
		assert.Len(t, res.FilteredCovariance[0], 2)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := m.KalmanFilter([][]float64{{1, 2}}, KalmanConfig{StateDim: 1})
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

		_, err = m.KalmanFilter(nil, DefaultKalmanConfig)
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
	})
}

func TestHalfLife(t *testing.T) {
	m := NewModels(nil)

	t.Run("mean reverting series", func(t *testing.T) {
		res, err := m.HalfLife(ar1(9, 1000, 0.5), 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, res.Phi, 0.1)
		assert.InDelta(t, 1.0, res.HalfLife, 0.3)
		assert.Equal(t, StrongMeanReversion, res.MeanReversionStrength)
		assert.NotNil(t, res.HurstExponent)
	})

	t.Run("explosive series is non mean reverting", func(t *testing.T) {
		data := make([]float64, 100)
		data[0] = 1
		for i := 1; i < len(data); i++ {
			data[i] = data[i-1] * 1.01
		}
		res, err := m.HalfLife(data, 50)
		require.NoError(t, err)
		assert.True(t, math.IsInf(res.HalfLife, 1))
		assert.Equal(t, NonMeanReverting, res.MeanReversionStrength)

		out, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"half_life":null`)
		assert.Contains(t, string(out), `"is_infinite":true`)
	})

	t.Run("strength bands", func(t *testing.T) {
		assert.Equal(t, StrongMeanReversion, reversionStrength(9.9))
		assert.Equal(t, ModerateMeanReversion, reversionStrength(10))
		assert.Equal(t, WeakMeanReversion, reversionStrength(199))
		assert.Equal(t, NonMeanReverting, reversionStrength(200))
		assert.Equal(t, NonMeanReverting, reversionStrength(math.Inf(1)))
	})

	t.Run("insufficient data", func(t *testing.T) {
		res, err := m.HalfLife([]float64{1, 2}, 0)
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
		assert.NotNil(t, res)
	})
}

func TestEstimateHurstExponent(t *testing.T) {
	m := NewModels(nil)

	t.Run("random walk is close to one half", func(t *testing.T) {
		walk := numeric.CumSum(noise(42, 500, 1))
		res, err := m.EstimateHurstExponent(walk, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, res.HurstExponent, 0.15)
		assert.Equal(t, len(res.Scales), len(res.RescaledRanges))
	})

	t.Run("integrated random walk is trending", func(t *testing.T) {
		trend := numeric.CumSum(numeric.CumSum(noise(1, 500, 1)))
		res, err := m.EstimateHurstExponent(trend, 0)
		require.NoError(t, err)
		assert.Equal(t, TrendTrending, res.TrendType)
		assert.Equal(t, "H > 0.5: Persistent, trending behavior", res.Interpretation)
	})

	t.Run("white noise levels are mean reverting", func(t *testing.T) {
		res, err := m.EstimateHurstExponent(noise(2, 500, 1), 0)
		require.NoError(t, err)
		assert.Equal(t, TrendMeanReverting, res.TrendType)
		assert.GreaterOrEqual(t, res.HurstExponent, 0.0)
	})

	t.Run("insufficient data", func(t *testing.T) {
		_, err := m.EstimateHurstExponent([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0)
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
	})

	t.Run("expected rescaled range grows with block size", func(t *testing.T) {
		assert.Less(t, expectedRescaledRange(8), expectedRescaledRange(64))
		assert.Less(t, expectedRescaledRange(300), expectedRescaledRange(400))
	})
}

func TestVolatilityRegimes(t *testing.T) {
	m := NewModels(nil)
	returns := []float64{0.0001, 0.0005, -0.002, 0.003, 0.0004}

	t.Run("default thresholds", func(t *testing.T) {
		res, err := m.VolatilityRegimes(returns, DefaultRegimeThresholds)
		require.NoError(t, err)
		require.Len(t, res.Regimes, 5)

		got := make([]string, len(res.Regimes))
		for i, p := range res.Regimes {
			got[i] = p.Regime
			assert.Equal(t, i, p.Index)
		}
		assert.Equal(t, []string{RegimeLow, RegimeNormal, RegimeHigh, RegimeHigh, RegimeNormal}, got)
		assert.Equal(t, map[string]int{RegimeLow: 1, RegimeNormal: 2, RegimeHigh: 2}, res.Summary)
		assert.Equal(t, RegimeNormal, res.CurrentRegime)

		// |r|·√252·100 rounded to cents
		assert.InDelta(t, 3.17, res.Regimes[2].Volatility, 1e-9)
		assert.InDelta(t, -0.002, res.Regimes[2].Return, 1e-12)
		assert.InDelta(t, math.Sqrt(numeric.PopVariance(returns))*math.Sqrt(252)*100, res.OverallVolatility, 0.005)
	})

	t.Run("custom thresholds", func(t *testing.T) {
		res, err := m.VolatilityRegimes(returns, RegimeThresholds{Low: 1, High: 10})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{RegimeLow: 3, RegimeNormal: 2, RegimeHigh: 0}, res.Summary)
		assert.Equal(t, RegimeLow, res.CurrentRegime)
		assert.Equal(t, RegimeThresholds{Low: 1, High: 10}, res.Thresholds)
	})

	t.Run("summary serializes every regime", func(t *testing.T) {
		res, err := m.VolatilityRegimes([]float64{0.0001}, DefaultRegimeThresholds)
		require.NoError(t, err)
		data, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"summary":{"high":0,"low":1,"normal":0}`)
		assert.Contains(t, string(data), `"current_regime":"low"`)
	})

	t.Run("inverted thresholds", func(t *testing.T) {
		_, err := m.VolatilityRegimes(returns, RegimeThresholds{Low: 2, High: 1})
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})

	t.Run("negative threshold", func(t *testing.T) {
		_, err := m.VolatilityRegimes(returns, RegimeThresholds{Low: -1, High: 1})
		assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
	})

	t.Run("no returns", func(t *testing.T) {
		res, err := m.VolatilityRegimes(nil, DefaultRegimeThresholds)
		assert.ErrorIs(t, err, numeric.ErrInsufficientData)
		require.NotNil(t, res)
		assert.Empty(t, res.Regimes)
		assert.Equal(t, RegimeNormal, res.CurrentRegime)
	})
}
