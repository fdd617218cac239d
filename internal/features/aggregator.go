package features

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smartscore/internal/ledger"
	"smartscore/internal/model"
)

// Config controls aggregation behavior.
type Config struct {
	Thresholds  Thresholds
	Concurrency int
}

// Result is the outcome of one aggregation run.
type Result struct {
	Day      time.Time
	Features map[string]model.WalletDayFeatures
	Skipped  []*WalletComputeError
}

// Rows returns the feature rows ordered by wallet.
func (r Result) Rows() []model.WalletDayFeatures {
	rows := make([]model.WalletDayFeatures, 0, len(r.Features))
	for _, row := range r.Features {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Wallet < rows[j].Wallet })
	return rows
}

// Aggregator computes per-wallet feature rows over the trailing window.
type Aggregator struct {
	cfg    Config
	reader ledger.Reader
	logger *zap.Logger
}

func NewAggregator(cfg Config, reader ledger.Reader, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	return &Aggregator{cfg: cfg, reader: reader, logger: logger}
}

// ComputeFeatures computes rows for every wallet active in the window ending at day.
func (a *Aggregator) ComputeFeatures(ctx context.Context, day time.Time) (Result, error) {
	if a.reader == nil {
		return Result{}, fmt.Errorf("ledger reader is nil")
	}
	window := ledger.WindowFor(day, a.cfg.Thresholds.WindowDays)
	wallets, err := a.reader.ActiveWallets(ctx, window)
	if err != nil {
		return Result{}, fmt.Errorf("active wallets: %w", err)
	}
	return a.ComputeWallets(ctx, day, wallets)
}

// ComputeWallets computes rows for an explicit wallet list. Wallets without
// trades in the window get a row with every optional value absent.
func (a *Aggregator) ComputeWallets(ctx context.Context, day time.Time, wallets []string) (Result, error) {
	if a.reader == nil {
		return Result{}, fmt.Errorf("ledger reader is nil")
	}
	if err := a.cfg.Thresholds.Validate(); err != nil {
		return Result{}, fmt.Errorf("thresholds: %w", err)
	}

	day = model.Day(day)
	window := ledger.WindowFor(day, a.cfg.Thresholds.WindowDays)
	prices := NewPriceCache(a.reader, window)

	result := Result{
		Day:      day,
		Features: make(map[string]model.WalletDayFeatures, len(wallets)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			row, err := a.computeWallet(gctx, wallet, day, window, prices)
			if err != nil {
				var walletErr *WalletComputeError
				if !errors.As(err, &walletErr) {
					return err
				}
				a.logger.Warn("wallet skipped", zap.String("wallet", wallet), zap.Error(walletErr.Err))
				mu.Lock()
				result.Skipped = append(result.Skipped, walletErr)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Features[wallet] = row
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Wallet < result.Skipped[j].Wallet
	})

	a.logger.Info("features computed",
		zap.String("day", model.FormatDay(day)),
		zap.Int("wallets", len(wallets)),
		zap.Int("computed", len(result.Features)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// computeWallet returns ledger errors as-is and wraps everything else, rejected
// input records included, in a WalletComputeError.
func (a *Aggregator) computeWallet(ctx context.Context, wallet string, day time.Time, window ledger.Window, prices *PriceCache) (model.WalletDayFeatures, error) {
	trades, err := a.reader.TradesForWallet(ctx, wallet, window)
	if err != nil {
		var rejected *ledger.RejectedTradesError
		if errors.As(err, &rejected) {
			return model.WalletDayFeatures{}, &WalletComputeError{Wallet: wallet, Err: rejected}
		}
		return model.WalletDayFeatures{}, fmt.Errorf("trades for %s: %w", wallet, err)
	}

	var paths map[string][]model.PricePoint
	if NeedsPrices(len(trades)) {
		paths, err = prices.LoadMarkets(ctx, trades)
		if err != nil {
			return model.WalletDayFeatures{}, fmt.Errorf("market prices for %s: %w", wallet, err)
		}
	}

	row, err := Compute(wallet, day, trades, paths, a.cfg.Thresholds)
	if err != nil {
		return model.WalletDayFeatures{}, &WalletComputeError{Wallet: wallet, Err: err}
	}
	return row, nil
}
