package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newswatch/cmd/handlers"
)

var cfgFile string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "newswatch",
	Short: "Newswatch monitors keywords across news providers and enriches matching articles.",
	Long: `Newswatch polls news providers for monitored keywords, records article
alerts, and runs an enrichment pipeline over them: scraping, LLM analysis,
relevance scoring, quality review, and vector indexing.`,
}

// Execute adds all child commands to the root command and runs it. Called
// by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./newswatch.yaml)")
	handlers.SetConfigFile(&cfgFile)

	rootCmd.AddCommand(handlers.NewServeCmd())
	rootCmd.AddCommand(handlers.NewMonitorCmd())
	rootCmd.AddCommand(handlers.NewIngestCmd())
	rootCmd.AddCommand(handlers.NewCacheCmd())
	rootCmd.AddCommand(handlers.NewBiasCmd())
	rootCmd.AddCommand(handlers.NewSearchCmd())
}
