package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"housing-listings/config"
	"housing-listings/scraper/zillow"
	"housing-listings/services"
	"housing-listings/storage"
	"housing-listings/utils"
)

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.SQLStore, error) {
	return storage.Open(ctx, storage.Options{
		Driver:            cfg.DBDriver,
		DSN:               cfg.DataSource(),
		InsertConcurrency: cfg.InsertConcurrency,
		InsertRateLimitMs: cfg.InsertRateLimitMs,
		PingAttempts:      cfg.MaxRetries,
		Logger:            logger,
	})
}

func newIngestor(cfg *config.Config, logger *utils.Logger, queryFile string) (*services.Ingestor, error) {
	query, err := config.LoadSearchQuery(queryFile)
	if err != nil {
		return nil, err
	}

	opts := zillow.OptionsFromConfig(cfg, logger)
	warmer, err := zillow.NewWarmer(cfg.WarmUpMode, opts, cfg.ChromeBin)
	if err != nil {
		return nil, err
	}
	source, err := zillow.NewSource(opts)
	if err != nil {
		return nil, err
	}

	ing := services.NewIngestor(warmer, source, query, logger)
	if cfg.CSVOutputPath != "" {
		base := cfg.CSVOutputPath
		ing.WithSnapshot(func(run time.Time) (storage.SnapshotWriter, error) {
			return storage.NewCSVWriter(snapshotPath(base, run))
		})
	}
	return ing, nil
}

// snapshotPath stamps the run time into the configured CSV path so runs do
// not overwrite each other.
func snapshotPath(base string, run time.Time) string {
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".csv"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-" + run.Format("20060102-150405") + ext
}
