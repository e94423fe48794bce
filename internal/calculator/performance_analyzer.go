package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const (
	DefaultRiskFreeRate = 0.05

	sharpeExcellent  = 2.0
	sharpeGood       = 1.0
	sharpeAcceptable = 0.5

	minRiskAdjustedObservations = 10
	insufficientInterpretation  = "Insufficient data for analysis"
)

type PeriodReturn struct {
	Label  string  `json:"label"`
	Return float64 `json:"return"`
}

type PerformanceReport struct {
	Symbol              string             `json:"symbol"`
	Period              string             `json:"period,omitempty"`
	TotalReturn         float64            `json:"total_return"`
	AnnualizedReturn    float64            `json:"annualized_return"`
	BestPeriod          PeriodReturn       `json:"best_period"`
	WorstPeriod         PeriodReturn       `json:"worst_period"`
	AverageReturn       float64            `json:"average_return"`
	MonthlyDistribution map[string]float64 `json:"monthly_distribution"`
	PositivePeriods     int                `json:"positive_periods"`
	NegativePeriods     int                `json:"negative_periods"`
	HitRate             *numeric.Percent   `json:"hit_rate"`
	BenchmarkReturn     *float64           `json:"benchmark_return"`
	ExcessReturn        *float64           `json:"excess_return"`
	Interpretation      string             `json:"interpretation"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

type RiskAdjustedReport struct {
	Symbol           string    `json:"symbol,omitempty"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	SortinoRatio     float64   `json:"sortino_ratio"`
	Volatility       float64   `json:"volatility"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	TreynorRatio     *float64  `json:"treynor_ratio"`
	InformationRatio *float64  `json:"information_ratio"`
	Beta             *float64  `json:"beta"`
	Alpha            *float64  `json:"alpha"`
	RSquared         *float64  `json:"r_squared"`
	TrackingError    *float64  `json:"tracking_error"`
	RiskFreeRate     float64   `json:"risk_free_rate"`
	Observations     int       `json:"observations"`
	Interpretation   string    `json:"interpretation"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// PerformanceAnalyzer turns price and return series into performance,
// risk-adjusted and factor reports with plain-language interpretations
type PerformanceAnalyzer struct {
	backend      numeric.Backend
	riskFreeRate float64
	logger       *logrus.Logger
}

func NewPerformanceAnalyzer(backend numeric.Backend, riskFreeRate float64) *PerformanceAnalyzer {
	if backend == nil {
		backend = numeric.NewFullStatsBackend()
	}
	return &PerformanceAnalyzer{
		backend:      backend,
		riskFreeRate: riskFreeRate,
		logger:       logrus.StandardLogger(),
	}
}

// RiskFreeRate is the annual rate used when a call does not supply one
func (pa *PerformanceAnalyzer) RiskFreeRate() float64 {
	return pa.riskFreeRate
}

// AnalyzeReturns summarizes a price series. benchmark may be nil.
func (pa *PerformanceAnalyzer) AnalyzeReturns(prices []float64, symbol string, benchmark []float64, period string) (*PerformanceReport, error) {
	if len(prices) < 2 {
		return &PerformanceReport{
			Symbol:              symbol,
			Period:              period,
			BestPeriod:          PeriodReturn{Label: "N/A"},
			WorstPeriod:         PeriodReturn{Label: "N/A"},
			MonthlyDistribution: map[string]float64{},
			Interpretation:      insufficientInterpretation,
			GeneratedAt:         time.Now().UTC(),
		}, numeric.Insufficient("analyze_returns", "need at least 2 prices, got %d", len(prices))
	}

	returns := numeric.SimpleReturns(prices)
	n := len(returns)
	total := prices[len(prices)-1]/prices[0] - 1
	annualized := annualize(total, len(prices))

	best, worst := numeric.ArgMax(returns), numeric.ArgMin(returns)
	positive, negative := 0, 0
	for _, r := range returns {
		switch {
		case r > 0:
			positive++
		case r < 0:
			negative++
		}
	}
	hitRate := numeric.Percent(numeric.SafeDivide(float64(positive), float64(n)))
	avg := numeric.Mean(returns)

	report := &PerformanceReport{
		Symbol:              symbol,
		Period:              period,
		TotalReturn:         total,
		AnnualizedReturn:    annualized,
		BestPeriod:          PeriodReturn{Label: fmt.Sprintf("Day %d", best), Return: returns[best]},
		WorstPeriod:         PeriodReturn{Label: fmt.Sprintf("Day %d", worst), Return: returns[worst]},
		AverageReturn:       avg,
		MonthlyDistribution: map[string]float64{"data": avg},
		PositivePeriods:     positive,
		NegativePeriods:     negative,
		HitRate:             &hitRate,
		GeneratedAt:         time.Now().UTC(),
	}

	// the benchmark is reported as a total return over its own window
	if len(benchmark) >= 2 {
		benchTotal := benchmark[len(benchmark)-1]/benchmark[0] - 1
		excess := annualized - benchTotal
		report.BenchmarkReturn = &benchTotal
		report.ExcessReturn = &excess
	}

	report.Interpretation = returnInterpretation(symbol, annualized, report.ExcessReturn)
	return report, nil
}

// annualize compounds a total return to a yearly rate, counting one year as
// numeric.TradingDays observations
func annualize(total float64, observations int) float64 {
	if observations <= 0 {
		return 0
	}
	return math.Pow(1+total, float64(numeric.TradingDays)/float64(observations)) - 1
}

func returnInterpretation(symbol string, annualized float64, excess *float64) string {
	s := fmt.Sprintf("%s returned %.1f%% annualized", symbol, annualized*100)
	if excess != nil {
		if *excess > 0 {
			s += fmt.Sprintf(", outperforming benchmark by %.1f%%", *excess*100)
		} else {
			s += fmt.Sprintf(", underperforming benchmark by %.1f%%", math.Abs(*excess)*100)
		}
	}

	switch {
	case annualized > 0.20:
		s += " - Excellent performance"
	case annualized > 0.10:
		s += " - Strong performance"
	case annualized > 0:
		s += " - Positive but modest returns"
	default:
		s += " - Negative returns"
	}
	return s
}

// AnalyzeRiskAdjusted computes Sharpe, Sortino and drawdown for a daily return
// series and, when benchmark has the same length, the CAPM statistics against
// it. A nil riskFreeRate uses the analyzer's default.
func (pa *PerformanceAnalyzer) AnalyzeRiskAdjusted(returns []float64, benchmark []float64, riskFreeRate *float64) (*RiskAdjustedReport, error) {
	rf := pa.riskFreeRate
	if riskFreeRate != nil {
		rf = *riskFreeRate
	}

	if len(returns) < minRiskAdjustedObservations {
		return &RiskAdjustedReport{
			RiskFreeRate:   rf,
			Observations:   len(returns),
			Interpretation: insufficientInterpretation,
			GeneratedAt:    time.Now().UTC(),
		}, numeric.Insufficient("analyze_risk_adjusted", "need at least %d returns, got %d", minRiskAdjustedObservations, len(returns))
	}

	annualFactor := math.Sqrt(numeric.TradingDays)
	dailyRF := rf / numeric.TradingDays
	meanExcess := numeric.Mean(returns) - dailyRF
	std := numeric.SampleStd(returns)

	report := &RiskAdjustedReport{
		Volatility:   std * annualFactor,
		MaxDrawdown:  maxDrawdown(returns),
		RiskFreeRate: rf,
		Observations: len(returns),
		GeneratedAt:  time.Now().UTC(),
	}
	if std > 0 {
		report.SharpeRatio = meanExcess / std * annualFactor
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) >= 2 {
		if dd := numeric.SampleStd(downside); dd > 0 {
			report.SortinoRatio = meanExcess / dd * annualFactor
		}
	}

	switch {
	case benchmark == nil:
	case len(benchmark) != len(returns):
		pa.logger.WithFields(logrus.Fields{
			"component": "performance_analyzer",
			"returns":   len(returns),
			"benchmark": len(benchmark),
		}).Debug("benchmark length differs from returns, ignoring benchmark")
	default:
		pa.benchmarkStats(report, returns, benchmark, meanExcess, dailyRF, std)
	}

	report.Interpretation = sharpeInterpretation(report.SharpeRatio, report.Beta, report.Alpha)
	return report, nil
}

func (pa *PerformanceAnalyzer) benchmarkStats(report *RiskAdjustedReport, returns, benchmark []float64, meanExcess, dailyRF, std float64) {
	cov := numeric.SampleCovariance(returns, benchmark)
	benchVar := numeric.PopVariance(benchmark)

	if benchVar > 0 {
		beta := cov / benchVar
		report.Beta = &beta

		if beta > 0 {
			treynor := meanExcess / beta * numeric.TradingDays
			report.TreynorRatio = &treynor
		}

		expected := dailyRF + beta*(numeric.Mean(benchmark)-dailyRF)
		// daily alpha
		alpha := meanExcess - expected
		report.Alpha = &alpha

		r2 := 0.0
		if std > 0 {
			r2 = cov * cov / (std * std * benchVar)
		}
		report.RSquared = &r2
	}

	diff := make([]float64, len(returns))
	for i := range returns {
		diff[i] = returns[i] - benchmark[i]
	}
	te := numeric.SampleStd(diff)
	report.TrackingError = &te
	if te > 0 {
		ir := meanExcess / te * math.Sqrt(numeric.TradingDays)
		report.InformationRatio = &ir
	}
}

// maxDrawdown is the largest peak-to-trough fall of the compounded equity
// curve, as a positive fraction
func maxDrawdown(returns []float64) float64 {
	equity, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := numeric.SafeDivide(peak-equity, peak); dd > worst {
			worst = dd
		}
	}
	return worst
}

func sharpeInterpretation(sharpe float64, beta, alpha *float64) string {
	var s string
	switch {
	case sharpe >= sharpeExcellent:
		s = fmt.Sprintf("Sharpe of %.2f indicates excellent risk-adjusted performance", sharpe)
	case sharpe >= sharpeGood:
		s = fmt.Sprintf("Sharpe of %.2f indicates good risk-adjusted performance", sharpe)
	case sharpe >= sharpeAcceptable:
		s = fmt.Sprintf("Sharpe of %.2f is acceptable but has room for improvement", sharpe)
	default:
		s = fmt.Sprintf("Sharpe of %.2f suggests poor risk-adjusted returns", sharpe)
	}

	if beta != nil {
		switch {
		case *beta > 1.2:
			s += fmt.Sprintf(", with high market beta (%.2f)", *beta)
		case *beta < 0.8:
			s += fmt.Sprintf(", with defensive beta (%.2f)", *beta)
		}
	}

	if alpha != nil {
		switch {
		case *alpha > 0:
			s += fmt.Sprintf(", generating %.2f%% alpha", *alpha*100)
		case *alpha < 0:
			s += fmt.Sprintf(", underperforming by %.2f%% alpha", math.Abs(*alpha)*100)
		}
	}
	return s
}
