package app

import (
	"context"
	"os"
	"time"

	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
)

// warmCache pre-resolves the configured watchlist on startup so the first user
// queries hit the memo cache.
func warmCache(ctx context.Context, resolver interfaces.ResolverService, watchlist []string, logger *common.Logger) {
	// Check env var override
	if os.Getenv("SCRIPLENS_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via SCRIPLENS_WARM_CACHE=off")
		return
	}

	if len(watchlist) == 0 {
		logger.Info().Msg("Warm cache: no watchlist configured, skipping")
		return
	}

	start := time.Now()
	logger.Info().Int("tickers", len(watchlist)).Msg("Warm cache: starting")

	resolved := 0
	for _, ticker := range watchlist {
		if ctx.Err() != nil {
			logger.Info().Msg("Warm cache: canceled")
			return
		}

		// Misses memoize too, so a bad watchlist entry costs one probe sweep
		if _, err := resolver.Resolve(ctx, ticker); err != nil {
			logger.Warn().Err(err).Str("ticker", ticker).Msg("Warm cache: resolve failed")
			continue
		}
		resolved++
	}

	logger.Info().
		Int("resolved", resolved).
		Int("tickers", len(watchlist)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
