package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TradingDays is the annualization factor for daily series
const TradingDays = 252

func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// SampleStd is the standard deviation with ddof=1
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// PopVariance is the variance with ddof=0
func PopVariance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return v
}

// PopStd is the standard deviation with ddof=0
func PopStd(x []float64) float64 {
	return math.Sqrt(PopVariance(x))
}

// SampleCovariance is the covariance of two equal-length series with ddof=1
func SampleCovariance(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	return stat.Covariance(a, b, nil)
}

func Sum(x []float64) float64 {
	return floats.Sum(x)
}

func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

func CumSum(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	return floats.CumSum(make([]float64, len(x)), x)
}

// Diff returns the first difference of x
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// SimpleReturns converts prices into period returns; zero previous prices yield a zero return
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = SafeDivide(prices[i]-prices[i-1], prices[i-1])
	}
	return out
}

func ArgMax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MaxIdx(x)
}

func ArgMin(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MinIdx(x)
}

// Percentile returns the p-th quantile (0 <= p <= 1) using linear interpolation
// between closest ranks, h = (n-1)p.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= n {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// TailMean returns the mean of values at or below threshold, or threshold when none are
func TailMean(x []float64, threshold float64) float64 {
	sum, count := 0.0, 0
	for _, v := range x {
		if v <= threshold {
			sum += v
			count++
		}
	}
	if count == 0 {
		return threshold
	}
	return sum / float64(count)
}

// RollingSum returns sums over consecutive windows of the given size
func RollingSum(x []float64, window int) []float64 {
	if window <= 1 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	if len(x) < window {
		return nil
	}
	out := make([]float64, 0, len(x)-window+1)
	acc := floats.Sum(x[:window])
	out = append(out, acc)
	for i := window; i < len(x); i++ {
		acc += x[i] - x[i-window]
		out = append(out, acc)
	}
	return out
}

// LinearFit returns intercept and slope of the OLS line y = a + b*x
func LinearFit(x, y []float64) (alpha, beta float64) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, 0
	}
	return stat.LinearRegression(x, y, nil, false)
}
