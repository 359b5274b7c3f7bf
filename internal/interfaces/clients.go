// Package interfaces defines service contracts for ScripLens
package interfaces

import (
	"context"

	"github.com/rj880209/scriplens/internal/models"
)

// MarketDataClient provides access to the market-data provider
type MarketDataClient interface {
	// GetInfo retrieves the fundamentals payload for a provider symbol
	GetInfo(ctx context.Context, symbol string) (models.InfoMap, error)

	// GetHistory retrieves daily price bars, oldest first
	GetHistory(ctx context.Context, symbol string, opts ...HistoryOption) ([]models.PriceBar, error)

	// GetFinancials retrieves yearly statement figures, oldest first
	GetFinancials(ctx context.Context, symbol string) ([]models.FinancialsYear, error)
}

// HistoryOption configures historical price requests
type HistoryOption func(*HistoryParams)

// HistoryParams holds history query parameters
type HistoryParams struct {
	Range    models.HistoryRange
	Interval string // 1d, 1wk, 1mo
}

// WithRange sets the lookback window for a history query
func WithRange(r models.HistoryRange) HistoryOption {
	return func(p *HistoryParams) {
		p.Range = r
	}
}

// WithInterval sets the bar interval for a history query
func WithInterval(interval string) HistoryOption {
	return func(p *HistoryParams) {
		p.Interval = interval
	}
}

// GeminiClient provides access to Gemini API
type GeminiClient interface {
	// GenerateContent generates AI content from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
