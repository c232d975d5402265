package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"housing-listings/config"
	"housing-listings/utils"
)

func TestSnapshotPath(t *testing.T) {
	run := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := map[string]string{
		"output/listings.csv": "output/listings-20240309-140507.csv",
		"snapshot":            "snapshot-20240309-140507.csv",
		"/tmp/a.b/zillow.csv": "/tmp/a.b/zillow-20240309-140507.csv",
	}
	for in, want := range tests {
		require.Equal(t, want, snapshotPath(in, run), in)
	}
}

func TestServeGraphIsComplete(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBPath: ":memory:", HTTPAddr: "127.0.0.1:0", WarmUpMode: "http"}
	require.NoError(t, fx.ValidateApp(serveOptions(cfg, utils.NewNopLogger())))
}
