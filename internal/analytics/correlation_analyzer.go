package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const (
	CorrelationStrong   = "strong"
	CorrelationModerate = "moderate"
	CorrelationWeak     = "weak"

	strongCorrelation     = 0.7
	moderateCorrelation   = 0.4
	highCorrelationCutoff = 0.8
)

type CorrelationAnalyzer struct {
	backend numeric.Backend
}

func NewCorrelationAnalyzer(backend numeric.Backend) *CorrelationAnalyzer {
	if backend == nil {
		backend = numeric.NewFullStatsBackend()
	}
	return &CorrelationAnalyzer{backend: backend}
}

type CorrelationMatrix struct {
	Symbols              []string                      `json:"symbols"`
	Matrix               [][]float64                   `json:"matrix"`
	Heatmap              map[string]map[string]float64 `json:"heatmap"`
	Pairs                []CorrelationPair             `json:"pairs"`
	HighCorrelationPairs []CorrelationPair             `json:"high_correlation_pairs"`
	Summary              CorrelationSummary            `json:"summary"`
	Observations         int                           `json:"observations"`
	LastUpdated          time.Time                     `json:"last_updated"`
}

type CorrelationSummary struct {
	AverageCorrelation float64 `json:"average_correlation"`
	MaxCorrelation     float64 `json:"max_correlation"`
	MinCorrelation     float64 `json:"min_correlation"`
}

type CorrelationPair struct {
	Symbol1     string  `json:"symbol1"`
	Symbol2     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
	Strength    string  `json:"strength"`
}

// CorrelationMatrix correlates the simple returns of every position that has
// at least three closes. Series are aligned on their most recent observations.
func (ca *CorrelationAnalyzer) CorrelationMatrix(ctx context.Context, positions []models.Position) (*CorrelationMatrix, error) {
	const op = "correlation_matrix"

	var symbols []string
	var series [][]float64
	for _, p := range positions {
		if err := p.ValidateHistory(); err != nil {
			return nil, err
		}
		closes := p.Closes()
		if len(closes) < 3 {
			continue
		}
		symbols = append(symbols, p.Symbol)
		series = append(series, numeric.SimpleReturns(closes))
	}

	if len(symbols) < 2 {
		return emptyCorrelationMatrix(symbols), numeric.Insufficient(op, "need at least 2 positions with price history, got %d", len(symbols))
	}

	// Align on the shortest series
	obs := len(series[0])
	for _, s := range series {
		obs = min(obs, len(s))
	}
	for i, s := range series {
		series[i] = s[len(s)-obs:]
	}

	n := len(symbols)
	matrix := make([][]float64, n)
	heatmap := make(map[string]map[string]float64, n)
	for i := range symbols {
		matrix[i] = make([]float64, n)
		heatmap[symbols[i]] = make(map[string]float64, n)
	}

	pairs := make([]CorrelationPair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matrix[i][i] = 1
		heatmap[symbols[i]][symbols[i]] = 1
		for j := i + 1; j < n; j++ {
			rho, err := ca.backend.Correlation(series[i], series[j])
			if err != nil {
				if numeric.IsFatal(err) {
					return nil, err
				}
				rho = 0
			}
			rho = numeric.Round(rho, 4)

			// Symmetric
			matrix[i][j], matrix[j][i] = rho, rho
			heatmap[symbols[i]][symbols[j]] = rho
			heatmap[symbols[j]][symbols[i]] = rho

			pairs = append(pairs, CorrelationPair{
				Symbol1:     symbols[i],
				Symbol2:     symbols[j],
				Correlation: rho,
				Strength:    correlationStrength(rho),
			})
		}
	}

	high := []CorrelationPair{}
	for _, p := range pairs {
		if p.Correlation >= highCorrelationCutoff {
			high = append(high, p)
		}
	}
	sort.SliceStable(high, func(i, j int) bool {
		return high[i].Correlation > high[j].Correlation
	})

	return &CorrelationMatrix{
		Symbols:              symbols,
		Matrix:               matrix,
		Heatmap:              heatmap,
		Pairs:                pairs,
		HighCorrelationPairs: high,
		Summary:              summarizeCorrelations(pairs),
		Observations:         obs,
		LastUpdated:          time.Now().UTC(),
	}, nil
}

func emptyCorrelationMatrix(symbols []string) *CorrelationMatrix {
	if symbols == nil {
		symbols = []string{}
	}
	return &CorrelationMatrix{
		Symbols:              symbols,
		Matrix:               [][]float64{},
		Heatmap:              map[string]map[string]float64{},
		Pairs:                []CorrelationPair{},
		HighCorrelationPairs: []CorrelationPair{},
		LastUpdated:          time.Now().UTC(),
	}
}

func correlationStrength(rho float64) string {
	switch a := abs(rho); {
	case a >= strongCorrelation:
		return CorrelationStrong
	case a >= moderateCorrelation:
		return CorrelationModerate
	default:
		return CorrelationWeak
	}
}

func summarizeCorrelations(pairs []CorrelationPair) CorrelationSummary {
	var summary CorrelationSummary
	if len(pairs) == 0 {
		return summary
	}

	summary.MinCorrelation = pairs[0].Correlation
	summary.MaxCorrelation = pairs[0].Correlation
	sum := 0.0
	for _, p := range pairs {
		sum += p.Correlation
		summary.MinCorrelation = min(summary.MinCorrelation, p.Correlation)
		summary.MaxCorrelation = max(summary.MaxCorrelation, p.Correlation)
	}
	summary.AverageCorrelation = numeric.Round(sum/float64(len(pairs)), 4)
	return summary
}
