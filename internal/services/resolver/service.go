// Package resolver maps raw user-entered tickers to exchange-qualified,
// normalized quotes
package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
	"github.com/rj880209/scriplens/internal/models"
)

// exchangeCandidates is the fixed probe order: NSE first, then BSE, then
// the unsuffixed international form. The first exchange that recognizes
// the symbol wins; nothing merges data across exchanges.
var exchangeCandidates = []models.ExchangeCandidate{
	{Suffix: ".NS", Exchange: "NSE"},
	{Suffix: ".BO", Exchange: "BSE"},
	{Suffix: "", Exchange: "INTL"},
}

// Candidates returns a copy of the probe order.
func Candidates() []models.ExchangeCandidate {
	out := make([]models.ExchangeCandidate, len(exchangeCandidates))
	copy(out, exchangeCandidates)
	return out
}

// cacheEntry memoizes a finished resolution. Failures memoize too: the
// provider treated the ticker as unknown on every exchange, and re-probing
// on each submit would just repeat the same three misses.
type cacheEntry struct {
	quote *models.NormalizedQuote
	err   error
}

// Service implements ResolverService with sequential candidate probing and
// a process-lifetime memo cache keyed by the raw query.
type Service struct {
	market interfaces.MarketDataClient
	logger *common.Logger
	now    func() time.Time // injectable clock for testing

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewService creates a new resolver service.
func NewService(market interfaces.MarketDataClient, logger *common.Logger) *Service {
	return &Service{
		market: market,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve probes the exchange candidates in priority order and returns the
// first usable quote, or a ResolutionError when every candidate misses.
// Identical raw queries are served from cache without touching the network.
func (s *Service) Resolve(ctx context.Context, rawTicker string) (*models.NormalizedQuote, error) {
	if strings.TrimSpace(rawTicker) == "" {
		return nil, errors.New("ticker is empty")
	}

	s.mu.RLock()
	entry, ok := s.cache[rawTicker]
	s.mu.RUnlock()
	if ok {
		return entry.quote, entry.err
	}

	quote, err := s.resolve(ctx, rawTicker)

	// A canceled resolution is aborted, not exhausted; don't memoize it.
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	s.mu.Lock()
	if prior, ok := s.cache[rawTicker]; ok {
		// A concurrent resolution finished first; keep its result.
		s.mu.Unlock()
		return prior.quote, prior.err
	}
	s.cache[rawTicker] = cacheEntry{quote: quote, err: err}
	s.mu.Unlock()

	return quote, err
}

func (s *Service) resolve(ctx context.Context, rawTicker string) (*models.NormalizedQuote, error) {
	// Uppercase before anything else so every downstream view of the query
	// is case-insensitive.
	ticker := strings.ToUpper(strings.TrimSpace(rawTicker))

	for _, candidate := range exchangeCandidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		symbol := ticker + candidate.Suffix
		info, err := s.market.GetInfo(ctx, symbol)
		if err != nil {
			// Best effort: a miss on one exchange must not block the next.
			s.logger.Debug().
				Err(err).
				Str("symbol", symbol).
				Str("exchange", candidate.Exchange).
				Msg("Exchange candidate miss")
			continue
		}
		if _, ok := info.Float("currentPrice"); !ok {
			s.logger.Debug().
				Str("symbol", symbol).
				Str("exchange", candidate.Exchange).
				Msg("Exchange candidate has no usable price")
			continue
		}

		quote := s.normalize(ticker, symbol, candidate.Exchange, info)
		s.logger.Info().
			Str("ticker", ticker).
			Str("symbol", symbol).
			Str("exchange", candidate.Exchange).
			Float64("price", quote.CurrentPrice).
			Msg("Ticker resolved")
		return quote, nil
	}

	s.logger.Warn().Str("ticker", ticker).Msg("All exchange candidates exhausted")
	return nil, &models.ResolutionError{Ticker: ticker}
}

// normalize coerces the provider payload into the fixed quote schema.
// Numeric fields default to zero and string fields to "N/A"; every provider
// key that was absent or unusable lands in MissingFields.
func (s *Service) normalize(ticker, symbol, exchange string, info models.InfoMap) *models.NormalizedQuote {
	quote := &models.NormalizedQuote{
		Ticker:    ticker,
		Symbol:    symbol,
		Exchange:  exchange,
		FetchedAt: s.now().UTC(),
	}

	var missing []string
	num := func(key string, dst *float64) {
		v, ok := info.Float(key)
		if !ok {
			missing = append(missing, key)
			return
		}
		*dst = v
	}
	str := func(key string, dst *string) {
		v, ok := info.String(key)
		if !ok {
			missing = append(missing, key)
			*dst = "N/A"
			return
		}
		*dst = v
	}

	num("currentPrice", &quote.CurrentPrice)
	num("fiftyTwoWeekHigh", &quote.High52Week)
	num("fiftyTwoWeekLow", &quote.Low52Week)
	num("trailingPE", &quote.PERatio)
	num("priceToBook", &quote.PBRatio)
	num("returnOnEquity", &quote.ROE)
	num("debtToEquity", &quote.DERatio)
	num("dividendYield", &quote.DivYield)
	num("bookValue", &quote.BookValue)
	str("lastSplitFactor", &quote.FaceValue)
	num("trailingEps", &quote.EPSTTM)
	num("marketCap", &quote.MarketCap)
	if v, ok := info.Float("volume"); ok {
		quote.Volume = int64(v)
	} else {
		missing = append(missing, "volume")
	}
	str("currency", &quote.Currency)

	quote.MissingFields = missing
	return quote
}

// PurgeCache drops every memoized resolution and reports how many entries
// were removed.
func (s *Service) PurgeCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.cache)
	s.cache = make(map[string]cacheEntry)
	if n > 0 {
		s.logger.Info().Int("entries", n).Msg("Resolution cache purged")
	}
	return n
}

// Ensure Service implements ResolverService
var _ interfaces.ResolverService = (*Service)(nil)
