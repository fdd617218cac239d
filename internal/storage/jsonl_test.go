package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscore/internal/model"
)

var day = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func TestJsonlFeaturesUpsertReplacesByWallet(t *testing.T) {
	ctx := context.Background()
	s := NewJsonlStorage(t.TempDir())

	require.NoError(t, s.UpsertFeatures(ctx, []model.WalletDayFeatures{
		{Wallet: "0xB", Day: day, Trades: 3},
		{Wallet: "0xA", Day: day, Trades: 1, WinRate: f64(0.5)},
	}))
	require.NoError(t, s.UpsertFeatures(ctx, []model.WalletDayFeatures{
		{Wallet: "0xB", Day: day, Trades: 7},
	}))

	rows, err := s.LoadFeatures(ctx, day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0xA", rows[0].Wallet)
	assert.Equal(t, 0.5, *rows[0].WinRate)
	assert.Equal(t, "0xB", rows[1].Wallet)
	assert.Equal(t, 7, rows[1].Trades)

	other, err := s.LoadFeatures(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestJsonlLeaderboardReplace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewJsonlStorage(dir)

	first := []model.LeaderboardEntry{
		{RankDate: day, Rank: 2, Wallet: "0xB", Score: 10, Reasons: []string{}},
		{RankDate: day, Rank: 1, Wallet: "0xA", Score: 20, Reasons: []string{"high_win_rate"}},
	}
	require.NoError(t, s.ReplaceLeaderboard(ctx, day, first))

	got, err := s.LoadLeaderboard(ctx, day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "0xA", got[0].Wallet)

	require.NoError(t, s.ReplaceLeaderboard(ctx, day, first[:1]))
	got, err = s.LoadLeaderboard(ctx, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xB", got[0].Wallet)

	entries, err := os.ReadDir(filepath.Join(dir, "leaderboard"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-06-30.jsonl", entries[0].Name())
}

func TestJsonlSnapshotsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	rows := []model.WalletDayFeatures{
		{Wallet: "0xC", Day: day, Trades: 2},
		{Wallet: "0xA", Day: day, Trades: 5, AvgROI: f64(0.1)},
		{Wallet: "0xB", Day: day, Trades: 9},
	}
	reversed := []model.WalletDayFeatures{rows[2], rows[1], rows[0]}

	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, NewJsonlStorage(dirA).UpsertFeatures(ctx, rows))
	require.NoError(t, NewJsonlStorage(dirB).UpsertFeatures(ctx, reversed))

	a, err := os.ReadFile(filepath.Join(dirA, "features", "2024-06-30.jsonl"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dirB, "features", "2024-06-30.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestJsonlCancelledUpsertWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	s := NewJsonlStorage(dir)

	err := s.UpsertFeatures(ctx, []model.WalletDayFeatures{{Wallet: "0xA", Day: day}})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.ReplaceLeaderboard(ctx, day, nil), context.Canceled)

	_, err = os.Stat(filepath.Join(dir, "features"))
	assert.True(t, os.IsNotExist(err))
}
