package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartscore/internal/config"
	"smartscore/internal/features"
	"smartscore/internal/ledger"
	"smartscore/internal/model"
	"smartscore/internal/pipeline"
	"smartscore/internal/ranking"
	"smartscore/internal/storage"
	"smartscore/internal/storage/postgres"
)

// backend is the ledger and the stores a pipeline command works against:
// Postgres when a DSN is configured, JSONL files otherwise.
type backend struct {
	reader   ledger.Reader
	features storage.FeatureStore
	boards   storage.LeaderboardStore
	state    pipeline.StateStore
	close    func()
}

func openBackend(ctx context.Context, cfg config.Config, needLedger bool, logger *zap.Logger) (*backend, error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.InitSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		var state pipeline.StateStore = &pipeline.DBStateStore{Store: store, Name: cfg.StateName}
		if cfg.StateFile != "" {
			state = &pipeline.FileStateStore{Path: cfg.StateFile}
		}
		return &backend{
			reader: &ledger.Retrying{
				Reader:     store,
				MaxRetries: cfg.MaxRetries,
				Backoff:    cfg.RetryBackoff,
				Logger:     logger,
			},
			features: store,
			boards:   store,
			state:    state,
			close:    store.Close,
		}, nil
	}

	b := &backend{close: func() {}}
	if needLedger {
		if cfg.Trades == "" {
			return nil, fmt.Errorf("trades path or pg dsn is required")
		}
		reader, err := ledger.LoadJSONL(cfg.Trades, logger)
		if err != nil {
			return nil, err
		}
		b.reader = reader
	}
	snapshots := storage.NewJsonlStorage(cfg.Out)
	b.features = snapshots
	b.boards = snapshots
	stateFile := cfg.StateFile
	if stateFile == "" {
		stateFile = filepath.Join(cfg.Out, "state.json")
	}
	b.state = &pipeline.FileStateStore{Path: stateFile}
	return b, nil
}

// pipelineSetup loads configuration and builds a runner for a pipeline command.
func pipelineSetup(cmd *cobra.Command, needLedger bool) (context.Context, config.Config, *pipeline.Runner, *zap.Logger, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, config.Config{}, nil, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, config.Config{}, nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	b, err := openBackend(ctx, cfg, needLedger, logger)
	if err != nil {
		stop()
		logger.Sync()
		return nil, config.Config{}, nil, nil, nil, err
	}

	agg := features.NewAggregator(features.Config{
		Thresholds:  cfg.Thresholds,
		Concurrency: cfg.Concurrency,
	}, b.reader, logger)

	engine, err := ranking.NewEngine(ranking.Config{
		Weights:             cfg.Weights,
		Reasons:             cfg.Reasons,
		ReasonCodes:         cfg.ReasonCodes,
		MinTradesForRanking: cfg.Thresholds.MinTradesForRanking,
		TopK:                cfg.TopK,
	}, logger)
	if err != nil {
		b.close()
		stop()
		logger.Sync()
		return nil, config.Config{}, nil, nil, nil, err
	}

	runner := pipeline.NewRunner(agg, engine, b.features, b.boards, b.state, logger)

	logger.Info("pipeline start",
		zap.String("command", cmd.Name()),
		zap.String("run_id", runner.RunID()),
		zap.String("trades", cfg.Trades),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("out", cfg.Out),
		zap.Int("window_days", cfg.Thresholds.WindowDays),
		zap.Int("top_k", cfg.TopK),
	)

	cleanup := func() {
		b.close()
		stop()
		logger.Sync()
	}
	return ctx, cfg, runner, logger, cleanup, nil
}

func runFeatures(cmd *cobra.Command, _ []string) error {
	ctx, cfg, runner, _, cleanup, err := pipelineSetup(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	day, err := config.ResolveDay(cfg.AsOf, time.Now())
	if err != nil {
		return err
	}
	wallets, err := model.ParseWallets(cfg.Wallets)
	if err != nil {
		return err
	}

	result, err := runner.Features(ctx, day, wallets)
	if err != nil {
		return err
	}
	if printFlag(cmd) {
		return printFeatures(cmd.OutOrStdout(), result.Rows())
	}
	return nil
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, cfg, runner, _, cleanup, err := pipelineSetup(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	day, err := config.ResolveDay(cfg.AsOf, time.Now())
	if err != nil {
		return err
	}

	entries, err := runner.Rank(ctx, day)
	if err != nil {
		return err
	}
	if printFlag(cmd) {
		return printLeaderboard(cmd.OutOrStdout(), entries)
	}
	return nil
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx, cfg, runner, logger, cleanup, err := pipelineSetup(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	catchUp, _ := cmd.Flags().GetBool("catch-up")

	var results []pipeline.DayResult
	switch {
	case cfg.From != "" || cfg.To != "":
		if catchUp {
			return fmt.Errorf("--catch-up cannot be combined with --from/--to")
		}
		from, err := model.ParseDay(cfg.From)
		if err != nil {
			return fmt.Errorf("parse from: %w", err)
		}
		to, err := config.ResolveDay(cfg.To, time.Now())
		if err != nil {
			return fmt.Errorf("parse to: %w", err)
		}
		results, err = runner.RunRange(ctx, from, to)
		if err != nil {
			return err
		}
	case catchUp:
		to, err := config.ResolveDay(cfg.AsOf, time.Now())
		if err != nil {
			return err
		}
		results, err = runner.CatchUp(ctx, to)
		if err != nil {
			return err
		}
	default:
		day, err := config.ResolveDay(cfg.AsOf, time.Now())
		if err != nil {
			return err
		}
		res, err := runner.RunDay(ctx, day)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	logger.Info("pipeline complete", zap.Int("days", len(results)))

	if printFlag(cmd) && len(results) > 0 {
		return printLeaderboard(cmd.OutOrStdout(), results[len(results)-1].Leaderboard)
	}
	return nil
}

func printFlag(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("print")
	return enabled
}
