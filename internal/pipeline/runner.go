package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartscore/internal/features"
	"smartscore/internal/model"
	"smartscore/internal/ranking"
	"smartscore/internal/storage"
)

// Runner drives feature computation and ranking for one or more days.
type Runner struct {
	aggregator *features.Aggregator
	engine     *ranking.Engine
	features   storage.FeatureStore
	boards     storage.LeaderboardStore
	state      StateStore
	runID      string
	logger     *zap.Logger
}

// DayResult summarizes one completed day.
type DayResult struct {
	Day         time.Time
	Features    []model.WalletDayFeatures
	Skipped     []*features.WalletComputeError
	Leaderboard []model.LeaderboardEntry
}

// NewRunner builds a Runner. state may be nil.
func NewRunner(aggregator *features.Aggregator, engine *ranking.Engine, featureStore storage.FeatureStore, boards storage.LeaderboardStore, state StateStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &Runner{
		aggregator: aggregator,
		engine:     engine,
		features:   featureStore,
		boards:     boards,
		state:      state,
		runID:      runID,
		logger:     logger.With(zap.String("run_id", runID)),
	}
}

// RunID identifies this runner in logs and saved state.
func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) validate() error {
	if r.aggregator == nil {
		return fmt.Errorf("aggregator is nil")
	}
	if r.engine == nil {
		return fmt.Errorf("ranking engine is nil")
	}
	if r.features == nil {
		return fmt.Errorf("feature store is nil")
	}
	if r.boards == nil {
		return fmt.Errorf("leaderboard store is nil")
	}
	return nil
}

// Features computes and stores the features of day. An empty wallet list
// means every wallet active in the window.
func (r *Runner) Features(ctx context.Context, day time.Time, wallets []string) (features.Result, error) {
	if err := r.validate(); err != nil {
		return features.Result{}, err
	}
	var (
		result features.Result
		err    error
	)
	if len(wallets) == 0 {
		result, err = r.aggregator.ComputeFeatures(ctx, day)
	} else {
		result, err = r.aggregator.ComputeWallets(ctx, day, wallets)
	}
	if err != nil {
		return features.Result{}, fmt.Errorf("compute features %s: %w", model.FormatDay(day), err)
	}
	if err := ctx.Err(); err != nil {
		return features.Result{}, err
	}
	if err := r.features.UpsertFeatures(ctx, result.Rows()); err != nil {
		return features.Result{}, fmt.Errorf("store features: %w", err)
	}
	return result, nil
}

// Rank builds and stores the leaderboard of day from stored features.
func (r *Runner) Rank(ctx context.Context, day time.Time) ([]model.LeaderboardEntry, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	rows, err := r.features.LoadFeatures(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	return r.rank(ctx, day, rows)
}

func (r *Runner) rank(ctx context.Context, day time.Time, rows []model.WalletDayFeatures) ([]model.LeaderboardEntry, error) {
	entries, err := r.engine.BuildLeaderboard(day, rows)
	if err != nil {
		return nil, fmt.Errorf("build leaderboard: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.boards.ReplaceLeaderboard(ctx, day, entries); err != nil {
		return nil, fmt.Errorf("store leaderboard: %w", err)
	}
	return entries, nil
}

// RunDay computes features and the leaderboard of day, then records day as
// the last completed day.
func (r *Runner) RunDay(ctx context.Context, day time.Time) (DayResult, error) {
	day = model.Day(day)
	start := time.Now()

	result, err := r.Features(ctx, day, nil)
	if err != nil {
		return DayResult{}, err
	}
	rows := result.Rows()
	entries, err := r.rank(ctx, day, rows)
	if err != nil {
		return DayResult{}, err
	}

	if r.state != nil {
		if err := r.state.Save(ctx, State{LastDay: day, RunID: r.runID}); err != nil {
			return DayResult{}, fmt.Errorf("save state: %w", err)
		}
	}

	r.logger.Info("day complete",
		zap.String("day", model.FormatDay(day)),
		zap.Int("features", len(rows)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("leaderboard", len(entries)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return DayResult{
		Day:         day,
		Features:    rows,
		Skipped:     result.Skipped,
		Leaderboard: entries,
	}, nil
}

// RunRange runs every day in [from, to] in order and stops at the first error.
func (r *Runner) RunRange(ctx context.Context, from, to time.Time) ([]DayResult, error) {
	days, err := SplitDays(from, to)
	if err != nil {
		return nil, err
	}
	results := make([]DayResult, 0, len(days))
	for _, day := range days {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		res, err := r.RunDay(ctx, day)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// CatchUp runs every day after the last recorded day up to to. Without saved
// state only to is run.
func (r *Runner) CatchUp(ctx context.Context, to time.Time) ([]DayResult, error) {
	to = model.Day(to)
	from := to
	if r.state != nil {
		state, ok, err := r.state.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if ok {
			from = model.Day(state.LastDay).AddDate(0, 0, 1)
			r.logger.Info("resume from state",
				zap.String("last_day", model.FormatDay(state.LastDay)),
				zap.String("last_run_id", state.RunID),
				zap.String("from", model.FormatDay(from)),
			)
		}
	}
	if from.After(to) {
		r.logger.Info("nothing to rank", zap.String("from", model.FormatDay(from)), zap.String("to", model.FormatDay(to)))
		return nil, nil
	}
	return r.RunRange(ctx, from, to)
}
