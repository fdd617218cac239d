package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"smartscore/internal/ledger"
	"smartscore/internal/model"
	"smartscore/internal/storage"
)

// RunConfig holds runtime settings for a trade import.
type RunConfig struct {
	Path              string
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Stats summarizes an import.
type Stats struct {
	Lines    int
	Trades   int
	Inserted int
	Skipped  int
	Resumed  int
}

// Runner streams a JSONL trade dump into a trade sink in batches.
type Runner struct {
	cfg        RunConfig
	sink       storage.TradeSink
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, sink storage.TradeSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

var errStop = errors.New("stop")

// Run imports the input file. Lines covered by a checkpoint for the same
// source are skipped.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.sink == nil {
		return Stats{}, fmt.Errorf("trade sink is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return Stats{}, fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Path == "" {
		return Stats{}, fmt.Errorf("input path is required")
	}

	source, err := filepath.Abs(r.cfg.Path)
	if err != nil {
		return Stats{}, fmt.Errorf("resolve input: %w", err)
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return Stats{}, err
	}
	if ok && cp.Covers(source, 1) {
		r.logger.Info("resume from checkpoint", zap.Int("last_line", cp.LastLine))
	}

	file, err := os.Open(r.cfg.Path)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var (
		stats    Stats
		batch    = make([]model.Trade, 0, r.cfg.BatchSize)
		lastLine int
		runErr   error
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := r.insertWithRetry(ctx, batch)
		if err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
		stats.Inserted += inserted
		if err := r.checkpoint.Save(source, lastLine); err != nil {
			return err
		}
		r.logger.Info("batch complete", zap.Int("trades", len(batch)), zap.Int("inserted", inserted), zap.Int("last_line", lastLine))
		batch = batch[:0]
		return nil
	}

	scan, err := ledger.ScanTrades(file, r.logger, func(line int, trade model.Trade) error {
		if cp.Covers(source, line) {
			stats.Resumed++
			return nil
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			return errStop
		}
		if err := trade.Validate(); err != nil {
			stats.Skipped++
			r.logger.Warn("invalid trade", zap.Int("line", line), zap.Error(err))
			return nil
		}
		stats.Trades++
		batch = append(batch, trade)
		lastLine = line
		if len(batch) >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				runErr = err
				return errStop
			}
		}
		return nil
	})
	stats.Lines = scan.Lines
	stats.Skipped += scan.Skipped
	if runErr != nil {
		return stats, runErr
	}
	if err != nil {
		return stats, err
	}
	if err := flush(); err != nil {
		return stats, err
	}

	r.logger.Info("import complete",
		zap.String("path", r.cfg.Path),
		zap.Int("lines", stats.Lines),
		zap.Int("trades", stats.Trades),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("resumed", stats.Resumed),
	)
	return stats, nil
}

func (r *Runner) insertWithRetry(ctx context.Context, trades []model.Trade) (int, error) {
	var inserted int
	err := ledger.WithRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		inserted, err = r.sink.InsertTrades(ctx, trades)
		if err != nil {
			r.logger.Warn("insert trades failed", zap.Error(err), zap.Int("trades", len(trades)))
		}
		return err
	})
	return inserted, err
}
