package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weft",
		Short: "Fine-grained reactive rendering for Go",
		Long: `Weft is a fine-grained reactive rendering runtime.

Components render into binding slots instead of virtual trees; updates
schedule on prioritized lanes and commit in three phases. The weft CLI
runs a demo server streaming committed mutations over WebSocket and an
in-process scheduler benchmark.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
