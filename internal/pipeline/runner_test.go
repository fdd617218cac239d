package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscore/internal/features"
	"smartscore/internal/ledger"
	"smartscore/internal/model"
	"smartscore/internal/ranking"
	"smartscore/internal/storage"
)

var asOf = date(2024, 6, 30)

// roundTrips returns n buy/sell pairs for wallet, the first wins of them
// closing at a profit.
func roundTrips(wallet string, n, wins int, start time.Time) []model.Trade {
	trades := make([]model.Trade, 0, 2*n)
	at := start
	for i := 0; i < n; i++ {
		proceeds := 40.0
		if i < wins {
			proceeds = 60.0
		}
		market := fmt.Sprintf("m%02d", i)
		for j, side := range []model.Side{model.SideBuy, model.SideSell} {
			cost := 50.0
			if side == model.SideSell {
				cost = proceeds
			}
			trades = append(trades, model.Trade{
				ID:          fmt.Sprintf("%s_%d_%d", wallet[:6], i, j),
				MarketID:    market,
				Wallet:      wallet,
				Outcome:     "YES",
				Side:        side,
				AmountUSDC:  100,
				CostUSDC:    cost,
				PriceBefore: 0.5,
				PriceAfter:  0.5,
				Timestamp:   at.Add(time.Duration(j) * time.Hour),
				PoolDepth:   1_000_000,
			})
		}
		at = at.Add(2 * time.Hour)
	}
	return trades
}

const (
	walletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	walletC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func testLedger() *ledger.Memory {
	var trades []model.Trade
	trades = append(trades, roundTrips(walletA, 6, 5, date(2024, 6, 1).Add(9*time.Hour))...)
	trades = append(trades, roundTrips(walletB, 6, 2, date(2024, 6, 2).Add(9*time.Hour))...)
	trades = append(trades, roundTrips(walletC, 1, 1, date(2024, 6, 3).Add(9*time.Hour))...)
	return ledger.NewMemory(trades)
}

type failingLedger struct {
	*ledger.Memory
}

func (f failingLedger) ActiveWallets(ctx context.Context, w ledger.Window) ([]string, error) {
	return nil, ledger.ErrLedgerUnavailable
}

func newTestRunner(t *testing.T, reader ledger.Reader, dir string) (*Runner, *storage.JsonlStorage, *FileStateStore) {
	t.Helper()
	agg := features.NewAggregator(features.Config{Thresholds: features.DefaultThresholds(), Concurrency: 4}, reader, nil)
	engine, err := ranking.NewEngine(ranking.Config{
		Weights:             ranking.DefaultWeights(),
		Reasons:             ranking.DefaultReasonThresholds(),
		MinTradesForRanking: features.DefaultThresholds().MinTradesForRanking,
	}, nil)
	require.NoError(t, err)
	store := storage.NewJsonlStorage(dir)
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	return NewRunner(agg, engine, store, store, state, nil), store, state
}

func TestRunDayWritesFeaturesLeaderboardAndState(t *testing.T) {
	ctx := context.Background()
	runner, store, state := newTestRunner(t, testLedger(), t.TempDir())

	res, err := runner.RunDay(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, res.Features, 3)
	require.Len(t, res.Leaderboard, 2)
	assert.Equal(t, walletA, res.Leaderboard[0].Wallet)
	assert.Equal(t, walletB, res.Leaderboard[1].Wallet)

	stored, err := store.LoadFeatures(ctx, asOf)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	board, err := store.LoadLeaderboard(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, res.Leaderboard, board)

	saved, ok, err := state.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, asOf, saved.LastDay)
	assert.Equal(t, runner.RunID(), saved.RunID)
}

func TestRankFromStoredFeaturesMatchesRunDay(t *testing.T) {
	ctx := context.Background()
	runner, _, _ := newTestRunner(t, testLedger(), t.TempDir())

	res, err := runner.RunDay(ctx, asOf)
	require.NoError(t, err)

	entries, err := runner.Rank(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, res.Leaderboard, entries)
}

func TestRunDayIsReproducible(t *testing.T) {
	ctx := context.Background()
	read := func(dir string) string {
		data, err := os.ReadFile(filepath.Join(dir, "leaderboard", "2024-06-30.jsonl"))
		require.NoError(t, err)
		return string(data)
	}

	dirA, dirB := t.TempDir(), t.TempDir()
	runnerA, _, _ := newTestRunner(t, testLedger(), dirA)
	runnerB, _, _ := newTestRunner(t, testLedger(), dirB)
	_, err := runnerA.RunDay(ctx, asOf)
	require.NoError(t, err)
	_, err = runnerB.RunDay(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, read(dirA), read(dirB))

	_, err = runnerA.RunDay(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, read(dirA), read(dirB))
}

func TestRunDayLedgerUnavailableWritesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	good, _, _ := newTestRunner(t, testLedger(), dir)
	_, err := good.RunDay(ctx, asOf)
	require.NoError(t, err)

	next := asOf.AddDate(0, 0, 1)
	bad, store, state := newTestRunner(t, failingLedger{testLedger()}, dir)
	_, err = bad.RunDay(ctx, next)
	require.ErrorIs(t, err, ledger.ErrLedgerUnavailable)

	rows, err := store.LoadFeatures(ctx, next)
	require.NoError(t, err)
	assert.Empty(t, rows)
	board, err := store.LoadLeaderboard(ctx, next)
	require.NoError(t, err)
	assert.Empty(t, board)

	saved, _, err := state.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, asOf, saved.LastDay)
}

func TestRunDayCancelledWritesNoLeaderboard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, store, _ := newTestRunner(t, testLedger(), t.TempDir())

	_, err := runner.RunDay(ctx, asOf)
	require.ErrorIs(t, err, context.Canceled)

	board, err := store.LoadLeaderboard(context.Background(), asOf)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestCatchUpResumesAfterLastDay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	runner, store, state := newTestRunner(t, testLedger(), dir)
	require.NoError(t, state.Save(ctx, State{LastDay: asOf.AddDate(0, 0, -2), RunID: "previous"}))

	results, err := runner.CatchUp(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, asOf.AddDate(0, 0, -1), results[0].Day)
	assert.Equal(t, asOf, results[1].Day)

	for _, res := range results {
		board, err := store.LoadLeaderboard(ctx, res.Day)
		require.NoError(t, err)
		assert.Equal(t, res.Leaderboard, board)
	}

	results, err = runner.CatchUp(ctx, asOf)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFeaturesForWalletSubset(t *testing.T) {
	ctx := context.Background()
	runner, store, _ := newTestRunner(t, testLedger(), t.TempDir())

	res, err := runner.Features(ctx, asOf, []string{walletB})
	require.NoError(t, err)
	require.Len(t, res.Features, 1)

	rows, err := store.LoadFeatures(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, walletB, rows[0].Wallet)
	assert.Equal(t, 12, rows[0].Trades)
}
