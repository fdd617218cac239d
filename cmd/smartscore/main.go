package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"smartscore/internal/ranking"
)

func main() {
	root := &cobra.Command{
		Use:          "smartscore",
		Short:        "Smart-wallet leaderboard for prediction-market trades",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSONL trade dump into Postgres",
		RunE:  runImport,
	}

	importCmd.Flags().String("in", "", "input trades JSONL")
	importCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	importCmd.Flags().Bool("init-schema", true, "create missing tables before importing")
	importCmd.Flags().Int("batch-size", 1000, "trades per insert batch")
	importCmd.Flags().String("checkpoint", "./data/import.checkpoint.json", "checkpoint file path")
	importCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	importCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	importCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	importCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(importCmd)

	featuresCmd := &cobra.Command{
		Use:   "features",
		Short: "Compute and store wallet features for a day",
		RunE:  runFeatures,
	}
	addPipelineFlags(featuresCmd)
	featuresCmd.Flags().StringSlice("wallet", nil, "only compute these wallets (comma-separated)")

	root.AddCommand(featuresCmd)

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Build the leaderboard of a day from stored features",
		RunE:  runRank,
	}
	addPipelineFlags(rankCmd)

	root.AddCommand(rankCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Compute features and rank one day, a day range, or every missed day",
		RunE:  runPipeline,
	}
	addPipelineFlags(runCmd)
	runCmd.Flags().String("from", "", "first day of a range (YYYY-MM-DD)")
	runCmd.Flags().String("to", "", "last day of a range (YYYY-MM-DD)")
	runCmd.Flags().Bool("catch-up", false, "run every day after the last ranked day up to --as-of")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("as-of", "", "ranking day (YYYY-MM-DD), default yesterday UTC")
	cmd.Flags().String("trades", "", "trades JSONL used as the ledger when no pg-dsn is set")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Bool("init-schema", true, "create missing tables on start")
	cmd.Flags().String("out", "./data", "snapshot directory when no pg-dsn is set")
	cmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	cmd.Flags().String("state-name", "smartscore", "state row name in pipeline_state")
	cmd.Flags().Int("concurrency", 0, "wallet workers, 0 means one per CPU")
	cmd.Flags().Int("top-k", ranking.DefaultTopK, "leaderboard size")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for ledger reads")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Bool("print", false, "print results as a table")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
