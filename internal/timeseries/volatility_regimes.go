package timeseries

import (
	"math"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const (
	RegimeLow    = "low"
	RegimeNormal = "normal"
	RegimeHigh   = "high"
)

// DefaultRegimeThresholds bound the normal regime, in annualized percent
var DefaultRegimeThresholds = RegimeThresholds{Low: 0.5, High: 1.5}

type RegimeThresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type RegimePeriod struct {
	Index      int     `json:"index"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Regime     string  `json:"regime"`
}

type VolatilityRegimeResult struct {
	Regimes           []RegimePeriod   `json:"regimes"`
	Summary           map[string]int   `json:"summary"`
	CurrentRegime     string           `json:"current_regime"`
	Thresholds        RegimeThresholds `json:"thresholds"`
	OverallVolatility float64          `json:"overall_volatility"`
	ComputeTimeMs     float64          `json:"compute_time_ms"`
}

// VolatilityRegimes labels every return by its annualized magnitude
// |r|·√252·100. Values below the low threshold are low, values above the high
// threshold are high and the closed band between them is normal. The current
// regime is the label of the last return.
func (m *Models) VolatilityRegimes(returns []float64, thresholds RegimeThresholds) (*VolatilityRegimeResult, error) {
	const op = "volatility_regimes"
	start := time.Now()

	if thresholds.Low < 0 || thresholds.High < 0 {
		return nil, numeric.Invalid(op, "thresholds must be non-negative, got low=%g high=%g", thresholds.Low, thresholds.High)
	}
	if thresholds.Low > thresholds.High {
		return nil, numeric.Invalid(op, "low threshold %g exceeds high threshold %g", thresholds.Low, thresholds.High)
	}

	result := &VolatilityRegimeResult{
		Regimes:       make([]RegimePeriod, 0, len(returns)),
		Summary:       map[string]int{RegimeLow: 0, RegimeNormal: 0, RegimeHigh: 0},
		CurrentRegime: RegimeNormal,
		Thresholds:    thresholds,
	}
	if len(returns) == 0 {
		return result, numeric.Insufficient(op, "need at least 1 return")
	}

	annual := math.Sqrt(numeric.TradingDays) * 100
	for i, r := range returns {
		vol := math.Abs(r) * annual
		regime := RegimeNormal
		switch {
		case vol < thresholds.Low:
			regime = RegimeLow
		case vol > thresholds.High:
			regime = RegimeHigh
		}
		result.Regimes = append(result.Regimes, RegimePeriod{
			Index:      i,
			Return:     r,
			Volatility: numeric.Round(vol, 2),
			Regime:     regime,
		})
		result.Summary[regime]++
		result.CurrentRegime = regime
	}

	result.OverallVolatility = numeric.Round(math.Sqrt(numeric.PopVariance(returns))*annual, 2)
	result.ComputeTimeMs = elapsedMs(start)
	return result, nil
}
