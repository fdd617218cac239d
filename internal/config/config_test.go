package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscore/internal/features"
	"smartscore/internal/ranking"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, features.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, ranking.DefaultWeights(), cfg.Weights)
	assert.Equal(t, ranking.DefaultReasonThresholds(), cfg.Reasons)
	assert.Equal(t, ranking.DefaultTopK, cfg.TopK)
	assert.Equal(t, "smartscore", cfg.StateName)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Nil(t, cfg.ReasonCodes)
}

func TestLoadMergesFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfgFile := filepath.Join(dir, "smartscore.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
top-k: 50
thresholds:
  window-days: 30
  reversal-window: 10m
weights:
  bait: 0.4
reasons:
  codes: [high_win_rate, insider_pattern]
  early-entry-seconds: 3600
`), 0o644))

	t.Setenv("SMARTSCORE_TOP_K", "25")
	t.Setenv("SMARTSCORE_WEIGHTS_VOLUME", "0.1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("as-of", "", "")
	flags.StringSlice("wallet", nil, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--as-of", "2024-06-30", "--wallet", "0xa,0xb", "--log-level", "debug"}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.TopK)
	assert.Equal(t, 30, cfg.Thresholds.WindowDays)
	assert.Equal(t, 10*time.Minute, cfg.Thresholds.ReversalWindow)
	assert.Equal(t, 0.4, cfg.Weights.Bait)
	assert.Equal(t, 0.1, cfg.Weights.Volume)
	assert.Equal(t, []string{"high_win_rate", "insider_pattern"}, cfg.ReasonCodes)
	assert.Equal(t, 3600.0, cfg.Reasons.EarlyEntrySeconds)
	assert.Equal(t, "2024-06-30", cfg.AsOf)
	assert.Equal(t, []string{"0xa", "0xb"}, cfg.Wallets)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadWeights(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SMARTSCORE_WEIGHTS_BAIT", "-1")

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SMARTSCORE_PG_DSN=postgres://u:p@localhost/db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SMARTSCORE_PG_DSN") })

	cfg, err := LoadImport("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.PGDSN)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.True(t, cfg.CheckpointEnabled)
}

func TestLoadMissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("does-not-exist.yaml", nil)
	assert.Error(t, err)
}

func TestResolveDay(t *testing.T) {
	now := time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC)

	day, err := ResolveDay("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), day)

	day, err = ResolveDay("2024-02-29", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), day)

	_, err = ResolveDay("29/02/2024", now)
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
