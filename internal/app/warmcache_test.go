package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/models"
)

type mockResolver struct {
	errs  map[string]error
	calls []string
}

func (m *mockResolver) Resolve(_ context.Context, rawTicker string) (*models.NormalizedQuote, error) {
	m.calls = append(m.calls, rawTicker)
	if err, ok := m.errs[rawTicker]; ok {
		return nil, err
	}
	return &models.NormalizedQuote{Ticker: rawTicker}, nil
}

func (m *mockResolver) PurgeCache() int { return 0 }

func TestWarmCache_ResolvesWatchlist(t *testing.T) {
	resolver := &mockResolver{}
	warmCache(context.Background(), resolver, []string{"RELIANCE", "TCS", "INFY"}, common.NewSilentLogger())

	if len(resolver.calls) != 3 {
		t.Errorf("calls = %v, want all watchlist tickers resolved", resolver.calls)
	}
}

func TestWarmCache_ContinuesPastFailures(t *testing.T) {
	resolver := &mockResolver{
		errs: map[string]error{"BOGUS": errors.New("could not fetch")},
	}
	warmCache(context.Background(), resolver, []string{"BOGUS", "TCS"}, common.NewSilentLogger())

	if len(resolver.calls) != 2 {
		t.Errorf("calls = %v, want failure skipped and next ticker resolved", resolver.calls)
	}
}

func TestWarmCache_EmptyWatchlist(t *testing.T) {
	resolver := &mockResolver{}
	warmCache(context.Background(), resolver, nil, common.NewSilentLogger())

	if len(resolver.calls) != 0 {
		t.Errorf("calls = %v, want none without a watchlist", resolver.calls)
	}
}

func TestWarmCache_DisabledByEnv(t *testing.T) {
	t.Setenv("SCRIPLENS_WARM_CACHE", "off")

	resolver := &mockResolver{}
	warmCache(context.Background(), resolver, []string{"TCS"}, common.NewSilentLogger())

	if len(resolver.calls) != 0 {
		t.Errorf("calls = %v, want none when disabled", resolver.calls)
	}
}

func TestWarmCache_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &mockResolver{}
	warmCache(ctx, resolver, []string{"RELIANCE", "TCS"}, common.NewSilentLogger())

	if len(resolver.calls) != 0 {
		t.Errorf("calls = %v, want none after cancel", resolver.calls)
	}
}
