package main

import (
	"fmt"
	"os"

	"github.com/rj880209/scriplens/internal/app"
	"github.com/rj880209/scriplens/internal/cli"
)

func main() {
	// Interactive runs stay quiet unless the user asks otherwise
	if os.Getenv("SCRIPLENS_LOG_LEVEL") == "" {
		os.Setenv("SCRIPLENS_LOG_LEVEL", "warn")
	}

	a, err := app.NewApp("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	rootCmd := cli.NewRootCmd(a)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
