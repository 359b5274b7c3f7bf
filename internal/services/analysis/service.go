// Package analysis turns resolved quotes into AI-generated research notes.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
	"github.com/rj880209/scriplens/internal/models"
)

// Service builds stock reports and generates narrative analysis via Gemini.
// The gemini client is optional: without one, analysis degrades to an inline
// notice and the rest of the report is still served.
type Service struct {
	resolver interfaces.ResolverService
	gemini   interfaces.GeminiClient
	logger   *common.Logger
	now      func() time.Time
}

// NewService creates an analysis service. gemini may be nil when no API key
// is configured.
func NewService(resolver interfaces.ResolverService, gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewDefaultLogger()
	}
	return &Service{
		resolver: resolver,
		gemini:   gemini,
		logger:   logger,
		now:      time.Now,
	}
}

// AnalyzeStock interpolates the quote into the analyst prompt and returns the
// model's free-text response. Returns models.ErrAnalysisUnavailable when no
// Gemini client is configured.
func (s *Service) AnalyzeStock(ctx context.Context, quote *models.NormalizedQuote) (string, error) {
	if quote == nil {
		return "", errors.New("nil quote")
	}
	if s.gemini == nil {
		return "", models.ErrAnalysisUnavailable
	}

	prompt := buildAnalystPrompt(quote)

	s.logger.Debug().
		Str("ticker", quote.Ticker).
		Int("prompt_chars", len(prompt)).
		Msg("Requesting stock analysis")

	text, err := s.gemini.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate analysis for %s: %w", quote.Ticker, err)
	}
	return text, nil
}

// BuildReport assembles the full dashboard payload for a raw ticker query.
// Resolution failure fails the report; an analysis failure does not — it is
// folded into the report as an inline message so the quote section still
// renders.
func (s *Service) BuildReport(ctx context.Context, rawTicker string) (*models.StockReport, error) {
	quote, err := s.resolver.Resolve(ctx, rawTicker)
	if err != nil {
		return nil, err
	}

	report := &models.StockReport{
		Ticker:      quote.Ticker,
		Quote:       quote,
		GeneratedAt: s.now().UTC(),
	}

	base := "/api/stocks/" + url.PathEscape(quote.Ticker)
	report.PriceChartURL = base + "/chart"
	report.FinancialsChartURL = base + "/financials"

	text, err := s.AnalyzeStock(ctx, quote)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("ticker", quote.Ticker).
			Msg("Analysis section degraded")
		report.AnalysisError = analysisErrorMessage(err)
		return report, nil
	}
	report.Analysis = text

	return report, nil
}

// buildAnalystPrompt renders the fixed multi-section analyst prompt from a
// normalized quote.
func buildAnalystPrompt(quote *models.NormalizedQuote) string {
	prompt := fmt.Sprintf(`You are a professional stock analyst. Analyze %s (%s on %s) using the following data:

- Current Price: %.2f
- 52 Week High: %.2f
- 52 Week Low: %.2f
- P/E Ratio: %.2f
- P/B Ratio: %.2f
- ROE: %.4f
- Debt/Equity: %.2f
- Dividend Yield: %.4f
- Book Value: %.2f
- Face Value: %s
- EPS (TTM): %.2f
- Market Cap: %.0f
- Volume: %d
- Currency: %s
`,
		quote.Ticker,
		quote.Symbol,
		quote.Exchange,
		quote.CurrentPrice,
		quote.High52Week,
		quote.Low52Week,
		quote.PERatio,
		quote.PBRatio,
		quote.ROE,
		quote.DERatio,
		quote.DivYield,
		quote.BookValue,
		quote.FaceValue,
		quote.EPSTTM,
		quote.MarketCap,
		quote.Volume,
		quote.Currency,
	)

	if len(quote.MissingFields) > 0 {
		prompt += fmt.Sprintf("\nFields unavailable from the data provider (shown as defaults above): %s\n",
			strings.Join(quote.MissingFields, ", "))
	}

	prompt += `
Provide:
1. A short, beginner-friendly summary of this stock.
2. Key opportunities and risks.
3. A clear recommendation (Buy, Hold, or Sell) with reasoning.
4. Long-term vs. short-term outlook.
`

	return prompt
}

// analysisErrorMessage converts an analysis failure into the inline text shown
// in place of the analysis section.
func analysisErrorMessage(err error) string {
	if errors.Is(err, models.ErrAnalysisUnavailable) {
		return "Gemini analysis unavailable: no API key configured"
	}
	return fmt.Sprintf("Gemini analysis failed: %v", err)
}

var _ interfaces.AnalysisService = (*Service)(nil)
