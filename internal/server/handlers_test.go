package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rj880209/scriplens/internal/app"
	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
	"github.com/rj880209/scriplens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockResolverService implements interfaces.ResolverService for testing.
type mockResolverService struct {
	resolve func(ctx context.Context, rawTicker string) (*models.NormalizedQuote, error)
	purge   func() int
	calls   []string
}

func (m *mockResolverService) Resolve(ctx context.Context, rawTicker string) (*models.NormalizedQuote, error) {
	m.calls = append(m.calls, rawTicker)
	if m.resolve != nil {
		return m.resolve(ctx, rawTicker)
	}
	return nil, &models.ResolutionError{Ticker: strings.ToUpper(rawTicker)}
}

func (m *mockResolverService) PurgeCache() int {
	if m.purge != nil {
		return m.purge()
	}
	return 0
}

// mockChartService implements interfaces.ChartService for testing.
type mockChartService struct {
	renderPrice      func(ctx context.Context, symbol string, rng models.HistoryRange) ([]byte, error)
	renderFinancials func(ctx context.Context, symbol string) ([]byte, error)
	priceSymbol      string
	priceRange       models.HistoryRange
}

func (m *mockChartService) RenderPriceChart(ctx context.Context, symbol string, rng models.HistoryRange) ([]byte, error) {
	m.priceSymbol = symbol
	m.priceRange = rng
	if m.renderPrice != nil {
		return m.renderPrice(ctx, symbol, rng)
	}
	return nil, models.ErrNoChartData
}

func (m *mockChartService) RenderFinancialsChart(ctx context.Context, symbol string) ([]byte, error) {
	if m.renderFinancials != nil {
		return m.renderFinancials(ctx, symbol)
	}
	return nil, models.ErrNoChartData
}

// mockAnalysisService implements interfaces.AnalysisService for testing.
type mockAnalysisService struct {
	analyze     func(ctx context.Context, quote *models.NormalizedQuote) (string, error)
	buildReport func(ctx context.Context, rawTicker string) (*models.StockReport, error)
}

func (m *mockAnalysisService) AnalyzeStock(ctx context.Context, quote *models.NormalizedQuote) (string, error) {
	if m.analyze != nil {
		return m.analyze(ctx, quote)
	}
	return "", models.ErrAnalysisUnavailable
}

func (m *mockAnalysisService) BuildReport(ctx context.Context, rawTicker string) (*models.StockReport, error) {
	if m.buildReport != nil {
		return m.buildReport(ctx, rawTicker)
	}
	return nil, &models.ResolutionError{Ticker: strings.ToUpper(rawTicker)}
}

func resolvedQuote() *models.NormalizedQuote {
	return &models.NormalizedQuote{
		Ticker:       "TCS",
		Symbol:       "TCS.NS",
		Exchange:     "NSE",
		CurrentPrice: 2847.50,
		Currency:     "INR",
		FetchedAt:    time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC),
	}
}

func newTestServer(resolver interfaces.ResolverService, charts interfaces.ChartService, analyses interfaces.AnalysisService) *Server {
	logger := common.NewSilentLogger()
	a := &app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          logger,
		Resolver:        resolver,
		ChartService:    charts,
		AnalysisService: analyses,
		StartupTime:     time.Now(),
	}
	return NewServer(a)
}

func doRequest(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

// --- Stock quote ---

func TestHandleStockGet_ReturnsQuote(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}

	srv := newTestServer(resolver, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got models.NormalizedQuote
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "TCS.NS", got.Symbol)
	assert.Equal(t, "NSE", got.Exchange)
	assert.Equal(t, []string{"TCS"}, resolver.calls, "raw path ticker should reach the resolver")
}

func TestHandleStockGet_UnknownTicker(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/ZZZZ")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "could not fetch data for ZZZZ")
}

func TestHandleStockGet_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodPost, "/api/stocks/TCS")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouteStocks_EmptyTicker(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteStocks_UnknownSubpath(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/forecast")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Price chart ---

func TestHandleStockChart_ReturnsPNG(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}
	charts := &mockChartService{
		renderPrice: func(_ context.Context, _ string, _ models.HistoryRange) ([]byte, error) {
			return png, nil
		},
	}

	srv := newTestServer(resolver, charts, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/chart?period=1y")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.Equal(rec.Body.Bytes(), png), "body should be the rendered PNG bytes")
	// Chart renders for the matched provider symbol, not the raw query
	assert.Equal(t, "TCS.NS", charts.priceSymbol)
	assert.Equal(t, models.Range1Year, charts.priceRange)
}

func TestHandleStockChart_DefaultPeriod(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}
	charts := &mockChartService{
		renderPrice: func(_ context.Context, _ string, _ models.HistoryRange) ([]byte, error) {
			return []byte{0x89}, nil
		},
	}

	srv := newTestServer(resolver, charts, &mockAnalysisService{})
	doRequest(srv, http.MethodGet, "/api/stocks/TCS/chart")

	assert.Equal(t, models.DefaultHistoryRange, charts.priceRange)
}

func TestHandleStockChart_InvalidPeriod(t *testing.T) {
	resolver := &mockResolverService{}
	srv := newTestServer(resolver, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/chart?period=fortnight")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, resolver.calls, "invalid period must be rejected before resolving")
}

func TestHandleStockChart_NoData(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}

	srv := newTestServer(resolver, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/chart")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "no historical data available")
}

func TestHandleStockChart_RenderFailure(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}
	charts := &mockChartService{
		renderPrice: func(_ context.Context, _ string, _ models.HistoryRange) ([]byte, error) {
			return nil, errors.New("upstream down")
		},
	}

	srv := newTestServer(resolver, charts, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/chart")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// --- Financials chart ---

func TestHandleStockFinancials_NoData(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}

	srv := newTestServer(resolver, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/financials")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "no financial statements available")
}

func TestHandleStockFinancials_ReturnsPNG(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47}
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}
	charts := &mockChartService{
		renderFinancials: func(_ context.Context, symbol string) ([]byte, error) {
			assert.Equal(t, "TCS.NS", symbol)
			return png, nil
		},
	}

	srv := newTestServer(resolver, charts, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/financials")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.Equal(rec.Body.Bytes(), png), "body should be the rendered PNG bytes")
}

// --- Analysis ---

func TestHandleStockAnalysis_ReturnsNarrative(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}
	analyses := &mockAnalysisService{
		analyze: func(_ context.Context, quote *models.NormalizedQuote) (string, error) {
			assert.Equal(t, "TCS.NS", quote.Symbol)
			return "Recommendation: Hold.", nil
		},
	}

	srv := newTestServer(resolver, &mockChartService{}, analyses)
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/analysis")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "TCS", got["ticker"])
	assert.Equal(t, "Recommendation: Hold.", got["analysis"])
}

func TestHandleStockAnalysis_NotConfigured(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}

	srv := newTestServer(resolver, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/analysis")

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandleStockAnalysis_GeminiFailure(t *testing.T) {
	resolver := &mockResolverService{
		resolve: func(_ context.Context, _ string) (*models.NormalizedQuote, error) {
			return resolvedQuote(), nil
		},
	}
	analyses := &mockAnalysisService{
		analyze: func(_ context.Context, _ *models.NormalizedQuote) (string, error) {
			return "", errors.New("model overloaded")
		},
	}

	srv := newTestServer(resolver, &mockChartService{}, analyses)
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/analysis")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "model overloaded")
}

func TestHandleStockAnalysis_UnknownTicker(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/ZZZZ/analysis")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Report ---

func TestHandleStockReport_DegradedAnalysis(t *testing.T) {
	analyses := &mockAnalysisService{
		buildReport: func(_ context.Context, _ string) (*models.StockReport, error) {
			return &models.StockReport{
				Ticker:        "TCS",
				Quote:         resolvedQuote(),
				AnalysisError: "Gemini analysis failed: quota exceeded",
			}, nil
		},
	}

	srv := newTestServer(&mockResolverService{}, &mockChartService{}, analyses)
	rec := doRequest(srv, http.MethodGet, "/api/stocks/TCS/report")

	require.Equal(t, http.StatusOK, rec.Code, "degraded analysis must still be a 200")

	var got models.StockReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.NotNil(t, got.Quote, "quote section must be populated")
	assert.Contains(t, got.AnalysisError, "quota exceeded")
}

func TestHandleStockReport_UnknownTicker(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/stocks/ZZZZ/report")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Cache purge ---

func TestHandleCachePurge(t *testing.T) {
	resolver := &mockResolverService{
		purge: func() int { return 3 },
	}

	srv := newTestServer(resolver, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodPost, "/api/admin/cache/purge")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 3, got["purged"])
}

func TestHandleCachePurge_RequiresPost(t *testing.T) {
	srv := newTestServer(&mockResolverService{}, &mockChartService{}, &mockAnalysisService{})
	rec := doRequest(srv, http.MethodGet, "/api/admin/cache/purge")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
