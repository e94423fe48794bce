package calculator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// DefaultFactorNames is the factor order used for positional factor data
var DefaultFactorNames = []string{"market", "size", "value", "momentum"}

const (
	minExtraFactorRows     = 5
	factorBetaThreshold    = 0.1
	factorAlphaThreshold   = 0.001
	contributorCount       = 3
	insufficientFactorText = "Insufficient data for factor analysis"
)

type FactorContribution struct {
	Factor       string  `json:"factor"`
	Contribution float64 `json:"contribution"`
}

type FactorReport struct {
	Symbol              string               `json:"symbol,omitempty"`
	FactorBetas         map[string]float64   `json:"factor_betas"`
	FactorContributions map[string]float64   `json:"factor_returns"`
	Alpha               float64              `json:"alpha"`
	RSquared            float64              `json:"r_squared"`
	TopFactors          []FactorContribution `json:"top_factors"`
	BottomFactors       []FactorContribution `json:"bottom_factors"`
	Observations        int                  `json:"observations"`
	Interpretation      string               `json:"interpretation"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

func emptyFactorReport(observations int) *FactorReport {
	return &FactorReport{
		FactorBetas:         map[string]float64{},
		FactorContributions: map[string]float64{},
		TopFactors:          []FactorContribution{},
		BottomFactors:       []FactorContribution{},
		Observations:        observations,
		Interpretation:      insufficientFactorText,
		GeneratedAt:         time.Now().UTC(),
	}
}

// AnalyzeFactorExposures regresses returns on the named factor series with an
// intercept. Rows with NaN in any series are dropped before fitting.
func (pa *PerformanceAnalyzer) AnalyzeFactorExposures(returns []float64, factors map[string][]float64) (*FactorReport, error) {
	const op = "analyze_factor_exposures"

	names := factorOrder(factors)
	for _, name := range names {
		if len(factors[name]) != len(returns) {
			return nil, numeric.Invalid(op, "factor %s has %d observations, returns have %d", name, len(factors[name]), len(returns))
		}
	}

	k := len(names)
	if k == 0 || len(returns) < k+minExtraFactorRows {
		return emptyFactorReport(len(returns)), numeric.Insufficient(op, "need at least %d observations for %d factors, got %d", k+minExtraFactorRows, k, len(returns))
	}

	var design [][]float64
	var y []float64
	for t, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		row := make([]float64, 1, k+1)
		row[0] = 1
		skip := false
		for _, name := range names {
			v := factors[name][t]
			if math.IsNaN(v) {
				skip = true
				break
			}
			row = append(row, v)
		}
		if skip {
			continue
		}
		design = append(design, row)
		y = append(y, r)
	}

	if len(y) < k+minExtraFactorRows {
		return emptyFactorReport(len(y)), numeric.Insufficient(op, "only %d complete rows for %d factors", len(y), k)
	}

	coef, err := pa.backend.LeastSquares(design, y)
	if err != nil {
		return nil, fmt.Errorf("factor regression failed: %w", err)
	}
	alpha := coef[0]

	meanY := numeric.Mean(y)
	ssRes, ssTot := 0.0, 0.0
	for i, row := range design {
		resid := y[i] - numeric.Dot(row, coef)
		ssRes += resid * resid
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	betas := make(map[string]float64, k)
	contributions := make(map[string]float64, k)
	ranked := make([]FactorContribution, k)
	for i, name := range names {
		beta := coef[i+1]
		sum := 0.0
		for _, row := range design {
			sum += row[i+1] * beta
		}
		c := sum / float64(len(design))
		betas[name] = beta
		contributions[name] = c
		ranked[i] = FactorContribution{Factor: name, Contribution: c}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Contribution > ranked[j].Contribution
	})

	top := ranked[:min(contributorCount, k)]
	bottom := ranked[max(0, k-contributorCount):]

	return &FactorReport{
		FactorBetas:         betas,
		FactorContributions: contributions,
		Alpha:               alpha,
		RSquared:            r2,
		TopFactors:          append([]FactorContribution(nil), top...),
		BottomFactors:       append([]FactorContribution(nil), bottom...),
		Observations:        len(y),
		Interpretation:      factorInterpretation(names, betas, alpha, r2),
		GeneratedAt:         time.Now().UTC(),
	}, nil
}

// factorOrder lists the default factors present first, then any others by name
func factorOrder(factors map[string][]float64) []string {
	var names []string
	seen := make(map[string]bool, len(factors))
	for _, name := range DefaultFactorNames {
		if _, ok := factors[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range factors {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func factorInterpretation(names []string, betas map[string]float64, alpha, r2 float64) string {
	var phrases []string
	for _, name := range names {
		beta := betas[name]
		if math.Abs(beta) <= factorBetaThreshold {
			continue
		}
		var label string
		switch name {
		case "market":
			label = pick(beta > 1, "high market sensitivity", "low market sensitivity")
		case "size":
			label = pick(beta > 0, "small-cap tilt", "large-cap tilt")
		case "value":
			label = pick(beta > 0, "value tilt", "growth tilt")
		case "momentum":
			label = pick(beta > 0, "momentum exposure", "contrarian exposure")
		default:
			label = name + " exposure"
		}
		phrases = append(phrases, fmt.Sprintf("%s (%.2f)", label, beta))
	}

	s := fmt.Sprintf("Factor analysis (R²=%.2f): ", r2)
	if len(phrases) > 0 {
		s += strings.Join(phrases, ", ")
	} else {
		s += "market-neutral positioning"
	}
	if alpha > factorAlphaThreshold {
		s += fmt.Sprintf(", %.2f%% alpha generation", alpha*100)
	}
	return s
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
