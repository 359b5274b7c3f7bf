package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rj880209/scriplens/internal/app"
	"github.com/rj880209/scriplens/internal/models"
)

// addStockCommands adds the ticker-facing commands.
func addStockCommands(rootCmd *cobra.Command, a *app.App) {
	rootCmd.AddCommand(newQuoteCmd(a))
	rootCmd.AddCommand(newChartCmd(a))
	rootCmd.AddCommand(newFinancialsCmd(a))
	rootCmd.AddCommand(newAnalyzeCmd(a))
}

func newQuoteCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <ticker>",
		Short: "Resolve a ticker and print its normalized quote",
		Long: `Resolve a raw ticker against NSE, then BSE, then international
listings, and print the first match as a normalized quote. Fields the
provider does not supply show their defaults and are listed separately.`,
		Example: `  scriplens quote tcs
  scriplens quote RELIANCE --json
  scriplens quote AAPL`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			quote, err := a.Resolver.Resolve(ctx, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(quote)
			}
			displayQuote(output, quote)
			return nil
		},
	}
}

func displayQuote(output *Output, q *models.NormalizedQuote) {
	output.Bold("%s (%s on %s)", q.Ticker, q.Symbol, q.Exchange)
	output.Println()
	output.Printf("  Current Price:   %.2f %s\n", q.CurrentPrice, q.Currency)
	output.Printf("  52 Week High:    %.2f\n", q.High52Week)
	output.Printf("  52 Week Low:     %.2f\n", q.Low52Week)
	output.Printf("  P/E Ratio:       %.2f\n", q.PERatio)
	output.Printf("  P/B Ratio:       %.2f\n", q.PBRatio)
	output.Printf("  ROE:             %.4f\n", q.ROE)
	output.Printf("  Debt to Equity:  %.2f\n", q.DERatio)
	output.Printf("  Dividend Yield:  %.4f\n", q.DivYield)
	output.Printf("  Book Value:      %.2f\n", q.BookValue)
	output.Printf("  Face Value:      %s\n", q.FaceValue)
	output.Printf("  EPS (TTM):       %.2f\n", q.EPSTTM)
	output.Printf("  Market Cap:      %s\n", formatCompact(q.MarketCap))
	output.Printf("  Volume:          %d\n", q.Volume)
	if len(q.MissingFields) > 0 {
		output.Println()
		output.Dim("  Not supplied by provider: %s", strings.Join(q.MissingFields, ", "))
	}
	output.Println()
	output.Dim("  Fetched: %s", q.FetchedAt.Format(time.RFC3339))
}

func newChartCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart <ticker>",
		Short: "Render a price chart PNG with 50- and 200-day moving averages",
		Example: `  scriplens chart tcs
  scriplens chart INFY --period 1y -o infy.png
  scriplens chart AAPL --period max`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			period, _ := cmd.Flags().GetString("period")
			rng := models.HistoryRange(period)
			if !rng.Valid() {
				output.Error("Invalid period %q", period)
				return fmt.Errorf("invalid period %q", period)
			}

			quote, err := a.Resolver.Resolve(ctx, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			png, err := a.ChartService.RenderPriceChart(ctx, quote.Symbol, rng)
			if err != nil {
				if errors.Is(err, models.ErrNoChartData) {
					output.Error("No historical data available for %s", quote.Ticker)
				} else {
					output.Error("Chart render failed: %v", err)
				}
				return err
			}

			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = fmt.Sprintf("%s_price.png", quote.Ticker)
			}
			if err := os.WriteFile(outPath, png, 0644); err != nil {
				output.Error("Write %s: %v", outPath, err)
				return err
			}
			output.Success("Price chart for %s written to %s", quote.Symbol, outPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "output PNG path (default <TICKER>_price.png)")
	cmd.Flags().StringP("period", "p", string(models.DefaultHistoryRange),
		"history window (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, ytd, max)")

	return cmd
}

func newFinancialsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "financials <ticker>",
		Short: "Render a yearly revenue, net income, and equity chart PNG",
		Example: `  scriplens financials tcs
  scriplens financials RELIANCE -o reliance_fin.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			quote, err := a.Resolver.Resolve(ctx, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			png, err := a.ChartService.RenderFinancialsChart(ctx, quote.Symbol)
			if err != nil {
				if errors.Is(err, models.ErrNoChartData) {
					output.Error("No financial statements available for %s", quote.Ticker)
				} else {
					output.Error("Chart render failed: %v", err)
				}
				return err
			}

			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = fmt.Sprintf("%s_financials.png", quote.Ticker)
			}
			if err := os.WriteFile(outPath, png, 0644); err != nil {
				output.Error("Write %s: %v", outPath, err)
				return err
			}
			output.Success("Financials chart for %s written to %s", quote.Symbol, outPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "output PNG path (default <TICKER>_financials.png)")

	return cmd
}

func newAnalyzeCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <ticker>",
		Short: "Generate an AI analyst note for a ticker",
		Long: `Resolve a ticker and ask the configured Gemini model for a
beginner-friendly summary, opportunities and risks, a buy/hold/sell
recommendation, and the long- versus short-term outlook.`,
		Example: `  scriplens analyze tcs
  scriplens analyze INFY --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 120*time.Second)
			defer cancel()

			quote, err := a.Resolver.Resolve(ctx, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			analysis, err := a.AnalysisService.AnalyzeStock(ctx, quote)
			if err != nil {
				if errors.Is(err, models.ErrAnalysisUnavailable) {
					output.Error("Gemini analysis unavailable: set GEMINI_API_KEY or clients.gemini.api_key")
				} else {
					output.Error("Analysis failed: %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"ticker":   quote.Ticker,
					"analysis": analysis,
				})
			}

			output.Bold("Analysis for %s (%s on %s)", quote.Ticker, quote.Symbol, quote.Exchange)
			output.Println()
			output.Println(analysis)
			return nil
		},
	}
}
