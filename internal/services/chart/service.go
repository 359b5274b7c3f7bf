// Package chart renders PNG price and financials charts for resolved symbols.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
	"github.com/rj880209/scriplens/internal/models"
)

const (
	chartWidth  = 900
	chartHeight = 400

	shortWindow = 50
	longWindow  = 200
)

// Service renders charts from market data fetched on demand.
type Service struct {
	market interfaces.MarketDataClient
	logger *common.Logger
}

// NewService creates a chart service backed by the given market data client.
func NewService(market interfaces.MarketDataClient, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewDefaultLogger()
	}
	return &Service{
		market: market,
		logger: logger,
	}
}

// RenderPriceChart renders a close-price line with MA50/MA200 overlays as PNG.
// Overlays appear only when the series is long enough to chart them.
// Returns models.ErrNoChartData when the symbol has too little history to plot.
func (s *Service) RenderPriceChart(ctx context.Context, symbol string, rng models.HistoryRange) ([]byte, error) {
	var opts []interfaces.HistoryOption
	if rng != "" {
		opts = append(opts, interfaces.WithRange(rng))
	}

	bars, err := s.market.GetHistory(ctx, symbol, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if len(bars) < 2 {
		return nil, models.ErrNoChartData
	}

	xValues := make([]time.Time, len(bars))
	closeY := make([]float64, len(bars))
	for i, b := range bars {
		xValues[i] = b.Date
		closeY[i] = b.Close
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Close Price",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
				StrokeWidth: 2.0,
			},
			XValues: xValues,
			YValues: closeY,
		},
	}

	// Rolling means start at index window-1, so their x range is shifted
	if ma := rollingMean(closeY, shortWindow); len(ma) >= 2 {
		series = append(series, chart.TimeSeries{
			Name: "MA50",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("f59e0b"), // amber-500
				StrokeWidth: 1.5,
			},
			XValues: xValues[shortWindow-1:],
			YValues: ma,
		})
	}
	if ma := rollingMean(closeY, longWindow); len(ma) >= 2 {
		series = append(series, chart.TimeSeries{
			Name: "MA200",
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9333ea"), // purple-600
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			XValues: xValues[longWindow-1:],
			YValues: ma,
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Price", symbol),
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
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

	s.logger.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Int("series", len(series)).
		Msg("Price chart rendered")

	return buf.Bytes(), nil
}

// RenderFinancialsChart renders yearly revenue, net income and equity lines as PNG.
// Returns models.ErrNoChartData when the symbol has under two years of statements.
func (s *Service) RenderFinancialsChart(ctx context.Context, symbol string) ([]byte, error) {
	years, err := s.market.GetFinancials(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch financials for %s: %w", symbol, err)
	}
	if len(years) < 2 {
		return nil, models.ErrNoChartData
	}

	xValues := make([]float64, len(years))
	revenueY := make([]float64, len(years))
	incomeY := make([]float64, len(years))
	equityY := make([]float64, len(years))

	for i, y := range years {
		xValues[i] = float64(y.Year)
		revenueY[i] = y.Revenue
		incomeY[i] = y.NetIncome
		equityY[i] = y.Equity
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Annual Financials", symbol),
		Width:  chartWidth,
		Height: chartHeight,
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
			ValueFormatter: humanizeMoney,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Revenue",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
					StrokeWidth: 2.0,
					DotWidth:    4.0,
				},
				XValues: xValues,
				YValues: revenueY,
			},
			chart.ContinuousSeries{
				Name: "Net Income",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("16a34a"), // green-600
					StrokeWidth: 2.0,
					DotWidth:    4.0,
				},
				XValues: xValues,
				YValues: incomeY,
			},
			chart.ContinuousSeries{
				Name: "Equity",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("6b7280"), // gray-500
					StrokeWidth: 2.0,
					DotWidth:    4.0,
				},
				XValues: xValues,
				YValues: equityY,
			},
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Int("years", len(years)).
		Msg("Financials chart rendered")

	return buf.Bytes(), nil
}

// rollingMean computes the trailing window mean of values. The first output
// corresponds to input index window-1; inputs shorter than the window yield nil.
func rollingMean(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nil
	}

	out := make([]float64, 0, len(values)-window+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// humanizeMoney shortens large currency magnitudes for axis labels.
func humanizeMoney(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}

	abs := math.Abs(f)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.1fT", f/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", f/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.0fM", f/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.0fK", f/1e3)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

var _ interfaces.ChartService = (*Service)(nil)
