package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rj880209/scriplens/internal/app"
	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/models"
)

// --- Mocks ---

type mockResolver struct {
	quote *models.NormalizedQuote
	err   error
	calls []string
}

func (m *mockResolver) Resolve(ctx context.Context, rawTicker string) (*models.NormalizedQuote, error) {
	m.calls = append(m.calls, rawTicker)
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

func (m *mockResolver) PurgeCache() int { return 0 }

type mockChart struct {
	png    []byte
	err    error
	symbol string
	rng    models.HistoryRange
}

func (m *mockChart) RenderPriceChart(ctx context.Context, symbol string, rng models.HistoryRange) ([]byte, error) {
	m.symbol = symbol
	m.rng = rng
	if m.err != nil {
		return nil, m.err
	}
	return m.png, nil
}

func (m *mockChart) RenderFinancialsChart(ctx context.Context, symbol string) ([]byte, error) {
	m.symbol = symbol
	if m.err != nil {
		return nil, m.err
	}
	return m.png, nil
}

type mockAnalysis struct {
	narrative string
	err       error
}

func (m *mockAnalysis) AnalyzeStock(ctx context.Context, quote *models.NormalizedQuote) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.narrative, nil
}

func (m *mockAnalysis) BuildReport(ctx context.Context, rawTicker string) (*models.StockReport, error) {
	return nil, errors.New("not used by the CLI")
}

func sampleQuote() *models.NormalizedQuote {
	return &models.NormalizedQuote{
		Ticker:       "TCS",
		Symbol:       "TCS.NS",
		Exchange:     "NSE",
		CurrentPrice: 2847.50,
		High52Week:   3400.10,
		Low52Week:    2250.00,
		PERatio:      24.5,
		PBRatio:      3.2,
		ROE:          0.1425,
		DERatio:      38.0,
		DivYield:     0.0125,
		BookValue:    410.5,
		FaceValue:    "1:5",
		EPSTTM:       52.3,
		MarketCap:    1.5e12,
		Volume:       2400000,
		Currency:     "INR",
		FetchedAt:    time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC),
	}
}

func newTestApp(resolver *mockResolver, chart *mockChart, analysis *mockAnalysis) *app.App {
	return &app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          common.NewSilentLogger(),
		Resolver:        resolver,
		ChartService:    chart,
		AnalysisService: analysis,
	}
}

// execute runs the CLI with the given args and returns everything written to
// the command's output streams.
func execute(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(a)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// --- quote ---

func TestQuoteCommand_PrintsNormalizedQuote(t *testing.T) {
	resolver := &mockResolver{quote: sampleQuote()}
	a := newTestApp(resolver, &mockChart{}, &mockAnalysis{})

	out, err := execute(t, a, "quote", "tcs")
	require.NoError(t, err)

	assert.Contains(t, out, "TCS (TCS.NS on NSE)")
	assert.Contains(t, out, "Current Price:   2847.50 INR")
	assert.Contains(t, out, "52 Week High:    3400.10")
	assert.Contains(t, out, "Face Value:      1:5")
	assert.Contains(t, out, "Market Cap:      1.50T")
	assert.Contains(t, out, "Volume:          2400000")

	// The raw query reaches the resolver untouched; casing is its concern.
	assert.Equal(t, []string{"tcs"}, resolver.calls)
}

func TestQuoteCommand_ListsMissingFields(t *testing.T) {
	quote := sampleQuote()
	quote.MissingFields = []string{"trailingPE", "bookValue"}
	a := newTestApp(&mockResolver{quote: quote}, &mockChart{}, &mockAnalysis{})

	out, err := execute(t, a, "quote", "tcs")
	require.NoError(t, err)
	assert.Contains(t, out, "Not supplied by provider: trailingPE, bookValue")
}

func TestQuoteCommand_JSON(t *testing.T) {
	a := newTestApp(&mockResolver{quote: sampleQuote()}, &mockChart{}, &mockAnalysis{})

	out, err := execute(t, a, "quote", "TCS", "--json")
	require.NoError(t, err)

	var got models.NormalizedQuote
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "TCS.NS", got.Symbol)
	assert.Equal(t, 2847.50, got.CurrentPrice)
}

func TestQuoteCommand_ResolutionFailure(t *testing.T) {
	resolver := &mockResolver{err: &models.ResolutionError{Ticker: "ZZZZ"}}
	a := newTestApp(resolver, &mockChart{}, &mockAnalysis{})

	out, err := execute(t, a, "quote", "zzzz")
	require.Error(t, err)
	assert.Contains(t, out, "could not fetch data for ZZZZ")
}

// --- chart ---

func TestChartCommand_WritesPNG(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}
	chart := &mockChart{png: png}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, chart, &mockAnalysis{})

	outPath := filepath.Join(t.TempDir(), "tcs.png")
	out, err := execute(t, a, "chart", "tcs", "-o", outPath, "--period", "1y")
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, png, written)

	// The chart renders for the matched provider symbol, not the raw query.
	assert.Equal(t, "TCS.NS", chart.symbol)
	assert.Equal(t, models.Range1Year, chart.rng)
	assert.Contains(t, out, outPath)
}

func TestChartCommand_DefaultPeriod(t *testing.T) {
	chart := &mockChart{png: []byte{0x89}}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, chart, &mockAnalysis{})

	outPath := filepath.Join(t.TempDir(), "tcs.png")
	_, err := execute(t, a, "chart", "tcs", "-o", outPath)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultHistoryRange, chart.rng)
}

func TestChartCommand_DefaultFilename(t *testing.T) {
	t.Chdir(t.TempDir())
	a := newTestApp(&mockResolver{quote: sampleQuote()}, &mockChart{png: []byte{0x89}}, &mockAnalysis{})

	_, err := execute(t, a, "chart", "tcs")
	require.NoError(t, err)

	_, err = os.Stat("TCS_price.png")
	require.NoError(t, err, "default output file should be named after the uppercased ticker")
}

func TestChartCommand_InvalidPeriod(t *testing.T) {
	resolver := &mockResolver{quote: sampleQuote()}
	a := newTestApp(resolver, &mockChart{}, &mockAnalysis{})

	out, err := execute(t, a, "chart", "tcs", "--period", "fortnight")
	require.Error(t, err)
	assert.Contains(t, out, `Invalid period "fortnight"`)
	assert.Empty(t, resolver.calls, "invalid period should be rejected before resolving")
}

func TestChartCommand_NoData(t *testing.T) {
	chart := &mockChart{err: models.ErrNoChartData}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, chart, &mockAnalysis{})

	out, err := execute(t, a, "chart", "tcs", "-o", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
	assert.Contains(t, out, "No historical data available for TCS")
}

// --- financials ---

func TestFinancialsCommand_WritesPNG(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47}
	chart := &mockChart{png: png}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, chart, &mockAnalysis{})

	outPath := filepath.Join(t.TempDir(), "fin.png")
	out, err := execute(t, a, "financials", "tcs", "-o", outPath)
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, png, written)
	assert.Equal(t, "TCS.NS", chart.symbol)
	assert.Contains(t, out, outPath)
}

func TestFinancialsCommand_NoData(t *testing.T) {
	chart := &mockChart{err: models.ErrNoChartData}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, chart, &mockAnalysis{})

	out, err := execute(t, a, "financials", "tcs", "-o", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
	assert.Contains(t, out, "No financial statements available for TCS")
}

// --- analyze ---

func TestAnalyzeCommand_PrintsNarrative(t *testing.T) {
	analysis := &mockAnalysis{narrative: "TCS shows steady growth. Recommendation: Buy."}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, &mockChart{}, analysis)

	out, err := execute(t, a, "analyze", "tcs")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis for TCS (TCS.NS on NSE)")
	assert.Contains(t, out, "Recommendation: Buy.")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	analysis := &mockAnalysis{narrative: "Hold."}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, &mockChart{}, analysis)

	out, err := execute(t, a, "analyze", "tcs", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "TCS", got["ticker"])
	assert.Equal(t, "Hold.", got["analysis"])
}

func TestAnalyzeCommand_NotConfigured(t *testing.T) {
	analysis := &mockAnalysis{err: models.ErrAnalysisUnavailable}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, &mockChart{}, analysis)

	out, err := execute(t, a, "analyze", "tcs")
	require.Error(t, err)
	assert.Contains(t, out, "GEMINI_API_KEY")
}

func TestAnalyzeCommand_GeminiFailure(t *testing.T) {
	analysis := &mockAnalysis{err: errors.New("quota exceeded")}
	a := newTestApp(&mockResolver{quote: sampleQuote()}, &mockChart{}, analysis)

	out, err := execute(t, a, "analyze", "tcs")
	require.Error(t, err)
	assert.Contains(t, out, "Analysis failed: quota exceeded")
}

func TestAnalyzeCommand_UnknownTicker(t *testing.T) {
	resolver := &mockResolver{err: &models.ResolutionError{Ticker: "ZZZZ"}}
	a := newTestApp(resolver, &mockChart{}, &mockAnalysis{narrative: "unused"})

	out, err := execute(t, a, "analyze", "zzzz")
	require.Error(t, err)
	assert.Contains(t, out, "could not fetch data for ZZZZ")
}
