package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newswatch/internal/collector"
)

// NewSearchCmd creates the ad-hoc provider search command. It queries the
// configured news provider directly without touching the store or the daily
// request budget.
func NewSearchCmd() *cobra.Command {
	var (
		providerName string
		topic        string
		limit        int
	)

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a news provider for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			settings, err := app.Store.GetMonitorSettings()
			if err != nil {
				return err
			}
			if providerName == "" {
				providerName = settings.Provider
			}

			provider, err := collector.New(providerName, app.Config.Providers, collector.SearchParams{
				SearchFields: settings.SearchFields,
				Language:     settings.Language,
				SortBy:       settings.SortBy,
			})
			if err != nil {
				return err
			}

			articles, err := provider.Search(cmd.Context(), args[0], topic, limit, time.Time{})
			if err != nil {
				return err
			}
			if len(articles) == 0 {
				fmt.Println("No results.")
				return nil
			}

			for _, article := range articles {
				fmt.Printf("%s\n  %s (%s)\n", article.Title, article.URL, article.Source)
				if summary := strings.TrimSpace(article.Summary); summary != "" {
					fmt.Printf("  %s\n", summary)
				}
			}
			fmt.Printf("\n%d results from %s\n", len(articles), provider.Name())
			return nil
		},
	}

	searchCmd.Flags().StringVar(&providerName, "provider", "", "provider to query (default from settings)")
	searchCmd.Flags().StringVar(&topic, "topic", "", "topic hint passed to the provider")
	searchCmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return searchCmd
}
