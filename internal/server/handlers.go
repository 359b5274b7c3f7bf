package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rj880209/scriplens/internal/models"
)

// writeResolveError maps a resolver failure to an HTTP response. A ticker that
// matched no exchange candidate is a 404; anything else is a server fault.
func writeResolveError(w http.ResponseWriter, err error) {
	var resErr *models.ResolutionError
	if errors.As(err, &resErr) {
		WriteError(w, http.StatusNotFound, resErr.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Resolve error: %v", err))
}

// handleStockGet handles GET /api/stocks/{ticker} — resolve and return the
// normalized quote.
func (s *Server) handleStockGet(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	quote, err := s.app.Resolver.Resolve(r.Context(), ticker)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}

// handleStockChart handles GET /api/stocks/{ticker}/chart?period= — resolve,
// then render the price chart for the matched symbol.
func (s *Server) handleStockChart(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rng := models.DefaultHistoryRange
	if p := r.URL.Query().Get("period"); p != "" {
		rng = models.HistoryRange(p)
		if !rng.Valid() {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid period %q", p))
			return
		}
	}

	quote, err := s.app.Resolver.Resolve(r.Context(), ticker)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	png, err := s.app.ChartService.RenderPriceChart(r.Context(), quote.Symbol, rng)
	if err != nil {
		if errors.Is(err, models.ErrNoChartData) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no historical data available for %s", quote.Ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Chart error: %v", err))
		return
	}

	WritePNG(w, png)
}

// handleStockFinancials handles GET /api/stocks/{ticker}/financials — resolve,
// then render the yearly financials chart.
func (s *Server) handleStockFinancials(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	quote, err := s.app.Resolver.Resolve(r.Context(), ticker)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	png, err := s.app.ChartService.RenderFinancialsChart(r.Context(), quote.Symbol)
	if err != nil {
		if errors.Is(err, models.ErrNoChartData) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no financial statements available for %s", quote.Ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Chart error: %v", err))
		return
	}

	WritePNG(w, png)
}

// handleStockAnalysis handles GET /api/stocks/{ticker}/analysis — resolve, then
// return the Gemini narrative for the quote.
func (s *Server) handleStockAnalysis(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	quote, err := s.app.Resolver.Resolve(r.Context(), ticker)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	text, err := s.app.AnalysisService.AnalyzeStock(r.Context(), quote)
	if err != nil {
		if errors.Is(err, models.ErrAnalysisUnavailable) {
			WriteError(w, http.StatusNotImplemented, "analysis not configured: set a Gemini API key")
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"ticker":   quote.Ticker,
		"analysis": text,
	})
}

// handleStockReport handles GET /api/stocks/{ticker}/report — the combined
// dashboard payload. Analysis failures degrade inside the report; only a
// resolution failure fails the request.
func (s *Server) handleStockReport(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := s.app.AnalysisService.BuildReport(r.Context(), ticker)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// handleCachePurge handles POST /api/admin/cache/purge — clear the resolver
// memo cache.
func (s *Server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	purged := s.app.Resolver.PurgeCache()
	s.logger.Info().Int("purged", purged).Msg("Resolver cache purged via API")

	WriteJSON(w, http.StatusOK, map[string]int{"purged": purged})
}
