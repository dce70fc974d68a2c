package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIngestCmd creates the auto-ingest command group.
func NewIngestCmd() *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the auto-ingest pipeline over pending alerts",
	}
	ingestCmd.AddCommand(newIngestRunCmd())
	ingestCmd.AddCommand(newIngestPendingCmd())
	return ingestCmd
}

func newIngestRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process pending alert articles once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Ingest.Run(cmd.Context(), func(current, total int, message string) {
				fmt.Printf("[%d/%d] %s\n", current, total, message)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Processed %d articles: %d ingested, %d rejected on relevance, %d rejected on quality, %d errors\n",
				result.Processed, result.Ingested, result.RejectedRelevance, result.RejectedQuality, result.Errors)
			return nil
		},
	}
}

func newIngestPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List articles the next run would pick up",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			pending, err := app.Ingest.Pending()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("No pending articles.")
				return nil
			}
			for _, article := range pending {
				fmt.Printf("%s  %s\n", article.URI, article.Title)
			}
			return nil
		},
	}
}
