// Package app wires configuration, clients, and services into the shared core
// used by cmd/scriplens-server and cmd/scriplens-cli.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rj880209/scriplens/internal/clients/gemini"
	"github.com/rj880209/scriplens/internal/clients/yahoo"
	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
	"github.com/rj880209/scriplens/internal/services/analysis"
	"github.com/rj880209/scriplens/internal/services/chart"
	"github.com/rj880209/scriplens/internal/services/resolver"
)

// App holds all initialized clients and services.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	YahooClient     interfaces.MarketDataClient
	GeminiClient    interfaces.GeminiClient // nil when no API key is configured
	Resolver        interfaces.ResolverService
	ChartService    interfaces.ChartService
	AnalysisService interfaces.AnalysisService
	StartupTime     time.Time

	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes all clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Get binary directory for self-contained operation
	binDir := getBinaryDir()

	// Load configuration - check provided path, SCRIPLENS_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("SCRIPLENS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "scriplens.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/scriplens.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// The Gemini key comes from environment or config file only, never source
	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI analysis will be unavailable")
	}

	// Initialize API clients
	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	var geminiClient interfaces.GeminiClient
	if geminiKey != "" {
		gc, err := gemini.NewClient(context.Background(), geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithTimeout(config.Clients.Gemini.GetTimeout()),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			geminiClient = gc
		}
	}

	// Initialize services
	resolverService := resolver.NewService(yahooClient, logger)
	chartService := chart.NewService(yahooClient, logger)
	analysisService := analysis.NewService(resolverService, geminiClient, logger)

	a := &App{
		Config:          config,
		Logger:          logger,
		YahooClient:     yahooClient,
		GeminiClient:    geminiClient,
		Resolver:        resolverService,
		ChartService:    chartService,
		AnalysisService: analysisService,
		StartupTime:     startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.Resolver, a.Config.Watchlist, a.Logger)
	}()
}
