// Package interfaces defines service contracts for ScripLens
package interfaces

import (
	"context"

	"github.com/rj880209/scriplens/internal/models"
)

// ResolverService maps raw user-entered tickers to normalized quotes
type ResolverService interface {
	// Resolve probes the exchange candidates in priority order and returns
	// the first usable quote. Identical raw queries are served from cache.
	Resolve(ctx context.Context, rawTicker string) (*models.NormalizedQuote, error)

	// PurgeCache drops every memoized resolution and reports how many
	// entries were removed.
	PurgeCache() int
}

// ChartService renders PNG figures from provider data
type ChartService interface {
	// RenderPriceChart draws close price with 50- and 200-day moving
	// averages over the requested window.
	RenderPriceChart(ctx context.Context, symbol string, rng models.HistoryRange) ([]byte, error)

	// RenderFinancialsChart draws yearly revenue, net income and equity.
	RenderFinancialsChart(ctx context.Context, symbol string) ([]byte, error)
}

// AnalysisService produces AI-generated narrative for resolved stocks
type AnalysisService interface {
	// AnalyzeStock interpolates the quote into the analyst prompt and
	// returns the model's narrative verbatim.
	AnalyzeStock(ctx context.Context, quote *models.NormalizedQuote) (string, error)

	// BuildReport resolves a raw ticker and assembles the full dashboard
	// payload. Analysis failure degrades to an inline error message rather
	// than failing the report.
	BuildReport(ctx context.Context, rawTicker string) (*models.StockReport, error)
}
