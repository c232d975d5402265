package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"housing-listings/services"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a summary of the stored scraped listings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		listings, err := store.ListScrapedListings(ctx)
		if err != nil {
			return err
		}

		services.PrintSummary(os.Stdout, services.Summarize(listings))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
