package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBiasCmd creates the media-bias dataset management command.
func NewBiasCmd() *cobra.Command {
	biasCmd := &cobra.Command{
		Use:   "bias",
		Short: "Manage the media-bias source dataset",
	}
	biasCmd.AddCommand(newBiasImportCmd())
	biasCmd.AddCommand(newBiasLookupCmd())
	return biasCmd
}

func newBiasImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import a bias dataset CSV into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			imported, err := app.Bias.ImportCSV(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d bias sources\n", imported)
			return nil
		},
	}
}

func newBiasLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <domain-or-url>",
		Short: "Look up bias metadata for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			src, err := app.Bias.Lookup(args[0], args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Source: %s\n", src.Source)
			fmt.Printf("Bias: %s\n", src.Bias)
			fmt.Printf("Factual reporting: %s\n", src.FactualReporting)
			fmt.Printf("Credibility: %s\n", src.MBFCCredibilityRating)
			fmt.Printf("Country: %s\n", src.Country)
			return nil
		},
	}
}
