package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"housing-listings/storage"
)

var ingestQueryFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one scrape and store the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queryFile := cfg.SearchQueryFile
		if ingestQueryFile != "" {
			queryFile = ingestQueryFile
		}
		ing, err := newIngestor(cfg, logger, queryFile)
		if err != nil {
			return err
		}

		logger.Info("=== Ingestion starting (db: %s, warm-up: %s) ===", cfg.DBDriver, cfg.WarmUpMode)

		res, err := ing.RunScoped(ctx, func(ctx context.Context) (storage.Store, error) {
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("Fetched %d listings, inserted %d in %s\n", res.Fetched, res.Inserted, res.Duration)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestQueryFile, "query", "q", "", "YAML search query file (overrides SEARCH_QUERY_FILE)")
	rootCmd.AddCommand(ingestCmd)
}
