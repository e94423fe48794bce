package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Fuuurma/FinanceHub-sub001/internal/timeseries"
)

const (
	defaultWidth  = 900
	defaultHeight = 400
)

// RenderForecast renders the input series followed by the ARIMA forecast and
// its confidence band as a PNG line chart. Returns raw PNG bytes.
func RenderForecast(history []float64, result *timeseries.ARIMAResult) ([]byte, error) {
	if result == nil || len(result.Forecast) == 0 {
		return nil, fmt.Errorf("forecast is empty")
	}
	if len(history)+len(result.Forecast) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(history)+len(result.Forecast))
	}

	histX := make([]float64, len(history))
	for i := range history {
		histX[i] = float64(i)
	}

	// the forecast line starts at the last observation so the two series join
	offset := len(history)
	fcX := make([]float64, 0, len(result.Forecast)+1)
	fcY := make([]float64, 0, len(result.Forecast)+1)
	if offset > 0 {
		fcX = append(fcX, float64(offset-1))
		fcY = append(fcY, history[offset-1])
	}
	bandX := make([]float64, len(result.Forecast))
	for i, v := range result.Forecast {
		fcX = append(fcX, float64(offset+i))
		fcY = append(fcY, v)
		bandX[i] = float64(offset + i)
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name: "History",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"),
				StrokeWidth: 2,
			},
			XValues: histX,
			YValues: history,
		},
		chart.ContinuousSeries{
			Name: "Forecast",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("16a34a"),
				StrokeWidth: 2.5,
			},
			XValues: fcX,
			YValues: fcY,
		},
	}

	band := chart.Style{
		StrokeColor:     drawing.ColorFromHex("9ca3af"),
		StrokeWidth:     1.5,
		StrokeDashArray: []float64{5.0, 3.0},
	}
	if len(result.ConfidenceIntervalLower) == len(result.Forecast) {
		series = append(series, chart.ContinuousSeries{Name: "Lower bound", Style: band, XValues: bandX, YValues: result.ConfidenceIntervalLower})
	}
	if len(result.ConfidenceIntervalUpper) == len(result.Forecast) {
		series = append(series, chart.ContinuousSeries{Name: "Upper bound", Style: band, XValues: bandX, YValues: result.ConfidenceIntervalUpper})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("ARIMA(%d,%d,%d) forecast", result.Order.P, result.Order.D, result.Order.Q),
		Width:  defaultWidth,
		Height: defaultHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
