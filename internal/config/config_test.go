package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetupAppliesDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Setup())

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Refresh.Period())
	require.Equal(t, 50, cfg.Refresh.OrderBatchLimit)
	require.Equal(t, time.Second, cfg.Feeds.StatusInterval())
	require.Equal(t, 2*time.Second, cfg.Feeds.OrderInterval())
	require.Equal(t, 5*time.Second, cfg.Feeds.PriceInterval())
	require.Equal(t, 5*time.Second, cfg.Feeds.LeaderboardInterval())
	require.Equal(t, "Couchbase Demo Phone", cfg.Feeds.SentinelName)
	require.Equal(t, 2*time.Second, cfg.Feeds.SentinelPause())
	require.Equal(t, 10, cfg.Feeds.StockBoardSize)
	require.Equal(t, 5, cfg.Feeds.InvestorBoardSize)
	require.Equal(t, 500*time.Millisecond, cfg.Status.PollInterval())
	require.Equal(t, 8*time.Second, cfg.Perturb.Interval())
	require.Equal(t, 0.025, cfg.Perturb.Sigma)
	require.Equal(t, "CBSE", cfg.Perturb.FloorSymbol)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "9000"
refresh:
  period_sec: 10
feeds:
  sentinel_name: "Reset Marker"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Refresh.Period())
	require.Equal(t, "Reset Marker", cfg.Feeds.SentinelName)
	// Unset fields still get defaults.
	require.Equal(t, 2*time.Second, cfg.Feeds.OrderInterval())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
