package timeseries

import (
	"encoding/json"
	"math"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Models implements ARIMA, GARCH(1,1), Kalman filtering and mean-reversion
// estimators over in-memory series. It holds no mutable state.
type Models struct {
	backend numeric.Backend
}

func NewModels(backend numeric.Backend) *Models {
	if backend == nil {
		backend = numeric.NewFullStatsBackend()
	}
	return &Models{backend: backend}
}

// Order is the (p, d, q) order of an ARIMA model
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// MarshalJSON renders the order as [p, d, q]
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{o.P, o.D, o.Q})
}

type ARIMAResult struct {
	Forecast                []float64 `json:"forecast"`
	ConfidenceIntervalLower []float64 `json:"confidence_interval_lower"`
	ConfidenceIntervalUpper []float64 `json:"confidence_interval_upper"`
	AIC                     float64   `json:"aic"`
	BIC                     float64   `json:"bic"`
	Order                   Order     `json:"order"`
	Residuals               []float64 `json:"residuals"`
	ARCoefficients          []float64 `json:"ar_coefficients"`
	ResidualVariance        float64   `json:"residual_variance"`
	ComputeTimeMs           float64   `json:"compute_time_ms"`
}

type GARCHParams struct {
	Omega float64 `json:"omega"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// DefaultGARCHParams are the parameters used when a caller supplies none
var DefaultGARCHParams = GARCHParams{Omega: 0.0001, Alpha: 0.05, Beta: 0.90}

type GARCHResult struct {
	ConditionalVolatility []float64 `json:"conditional_volatility"`
	VarianceForecast      []float64 `json:"variance_forecast"`
	ForecastVolatility    float64   `json:"forecast_volatility"`
	Omega                 float64   `json:"omega"`
	Alpha                 float64   `json:"alpha"`
	Beta                  float64   `json:"beta"`
	LongRunVariance       float64   `json:"long_run_variance"`
	TotalVolatility       float64   `json:"total_volatility"`
	Stationary            bool      `json:"stationary"`
	ComputeTimeMs         float64   `json:"compute_time_ms"`
}

type KalmanConfig struct {
	StateDim         int     `json:"state_dim"`
	ProcessNoise     float64 `json:"process_noise"`
	ObservationNoise float64 `json:"observation_noise"`
}

// DefaultKalmanConfig matches a scalar random-walk-plus-noise model
var DefaultKalmanConfig = KalmanConfig{StateDim: 1, ProcessNoise: 0.01, ObservationNoise: 0.1}

type KalmanResult struct {
	FilteredState       [][]float64   `json:"filtered_state"`
	FilteredCovariance  [][][]float64 `json:"filtered_covariance"`
	PredictedState      [][]float64   `json:"predicted_state"`
	PredictedCovariance [][][]float64 `json:"predicted_covariance"`
	Likelihood          float64       `json:"likelihood"`
	ComputeTimeMs       float64       `json:"compute_time_ms"`
}

// Mean reversion strength labels
const (
	StrongMeanReversion   = "strong_mean_reversion"
	ModerateMeanReversion = "moderate_mean_reversion"
	WeakMeanReversion     = "weak_mean_reversion"
	NonMeanReverting      = "non_mean_reverting"
)

type HalfLifeResult struct {
	HalfLife              float64  `json:"-"`
	Phi                   float64  `json:"phi"`
	HurstExponent         *float64 `json:"hurst_exponent"`
	MeanReversionStrength string   `json:"mean_reversion_strength"`
	ComputeTimeMs         float64  `json:"compute_time_ms"`
}

// MarshalJSON renders an infinite half-life as null with is_infinite set
func (r HalfLifeResult) MarshalJSON() ([]byte, error) {
	type alias HalfLifeResult
	out := struct {
		alias
		HalfLife   *float64 `json:"half_life"`
		IsInfinite bool     `json:"is_infinite"`
	}{alias: alias(r)}

	if math.IsInf(r.HalfLife, 0) || math.IsNaN(r.HalfLife) {
		out.IsInfinite = true
	} else {
		hl := r.HalfLife
		out.HalfLife = &hl
	}
	return json.Marshal(out)
}

// Trend types
const (
	TrendMeanReverting = "mean_reverting"
	TrendRandomWalk    = "random_walk"
	TrendTrending      = "trending"
)

type HurstResult struct {
	HurstExponent  float64   `json:"hurst_exponent"`
	TrendType      string    `json:"trend_type"`
	Interpretation string    `json:"interpretation"`
	Scales         []int     `json:"scales"`
	RescaledRanges []float64 `json:"rescaled_ranges"`
	ComputeTimeMs  float64   `json:"compute_time_ms"`
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
