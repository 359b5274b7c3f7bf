package server

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/rj880209/scriplens/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)
	mux.HandleFunc("/debug/memstats", s.handleMemstats)

	// Stocks
	mux.HandleFunc("/api/stocks/", s.routeStocks)

	// Admin
	mux.HandleFunc("/api/admin/cache/purge", s.handleCachePurge)
}

// routeStocks dispatches /api/stocks/{ticker}/* to the appropriate handler.
func (s *Server) routeStocks(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/stocks/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}

	// Split into ticker and sub-path
	parts := strings.SplitN(path, "/", 2)
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	ticker, errMsg := validateTicker(parts[0])
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	switch subpath {
	case "":
		s.handleStockGet(w, r, ticker)
	case "chart":
		s.handleStockChart(w, r, ticker)
	case "financials":
		s.handleStockFinancials(w, r, ticker)
	case "analysis":
		s.handleStockAnalysis(w, r, ticker)
	case "report":
		s.handleStockReport(w, r, ticker)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// validateTicker rejects empty, oversized, and injection-prone tickers before
// they reach the resolver. Case is preserved: the resolver memoizes on the raw
// query string. Ampersand and caret are legitimate in listed symbols (M&M.NS,
// index tickers like ^NSEI).
func validateTicker(raw string) (string, string) {
	ticker := strings.TrimSpace(raw)
	if ticker == "" {
		return "", "ticker is required"
	}
	if len(ticker) > 32 {
		return "", "ticker too long"
	}
	for _, r := range ticker {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_' || r == '&' || r == '^':
		default:
			return "", fmt.Sprintf("invalid character %q in ticker", r)
		}
	}
	if strings.Contains(ticker, "..") {
		return "", "invalid ticker"
	}
	return ticker, ""
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":       cfg.Environment,
		"server_host":       cfg.Server.Host,
		"server_port":       cfg.Server.Port,
		"yahoo_base_url":    cfg.Clients.Yahoo.BaseURL,
		"yahoo_rate_limit":  cfg.Clients.Yahoo.RateLimit,
		"gemini_model":      cfg.Clients.Gemini.Model,
		"gemini_api_key":    maskSecret(cfg.Clients.Gemini.APIKey),
		"gemini_configured": s.app.GeminiClient != nil,
		"watchlist":         cfg.Watchlist,
		"logging_level":     cfg.Logging.Level,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"commit":     common.GetGitCommit(),
		"uptime":     uptime.String(),
		"started_at": s.app.StartupTime,
	})
}

func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb": float64(m.HeapInuse) / 1024 / 1024,
		"sys_mb":        float64(m.Sys) / 1024 / 1024,
		"num_gc":        m.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	})
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
