package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rj880209/scriplens/internal/app"
	"github.com/rj880209/scriplens/internal/common"
)

// NewRootCmd creates the root command for the CLI. The app is shared by all
// subcommands; its services hold a pointer to the app logger, so raising the
// level here propagates everywhere.
func NewRootCmd(a *app.App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scriplens",
		Short: "ScripLens - stock quotes, charts, and AI analysis from the terminal",
		Long: `ScripLens resolves raw tickers against NSE first, then BSE, then
international listings, and renders the matched stock as a normalized quote,
a price or financials chart, or an AI-generated analyst note.

Configuration is read from scriplens.toml next to the binary, or from the
file named by SCRIPLENS_CONFIG. The Gemini API key is taken from the
GEMINI_API_KEY environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				*a.Logger = common.Logger{Logger: a.Logger.Level(zerolog.DebugLevel)}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addStockCommands(rootCmd, a)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version": common.GetVersion(),
					"build":   common.GetBuild(),
					"commit":  common.GetGitCommit(),
				})
				return
			}
			output.Printf("ScripLens v%s\n", common.GetVersion())
			output.Dim("Build: %s, commit: %s", common.GetBuild(), common.GetGitCommit())
		},
	}
}
