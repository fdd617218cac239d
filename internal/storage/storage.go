package storage

import (
	"context"
	"time"

	"smartscore/internal/model"
)

// FeatureStore persists wallet-day feature rows keyed by (wallet, day).
type FeatureStore interface {
	UpsertFeatures(ctx context.Context, rows []model.WalletDayFeatures) error
	LoadFeatures(ctx context.Context, day time.Time) ([]model.WalletDayFeatures, error)
}

// LeaderboardStore persists one leaderboard per ranking day. Replacing a day
// is atomic: readers see either the previous board or the new one.
type LeaderboardStore interface {
	ReplaceLeaderboard(ctx context.Context, day time.Time, entries []model.LeaderboardEntry) error
	LoadLeaderboard(ctx context.Context, day time.Time) ([]model.LeaderboardEntry, error)
}

// TradeSink accepts ledger trades. Re-inserting a known trade id is a no-op.
type TradeSink interface {
	InsertTrades(ctx context.Context, trades []model.Trade) (int, error)
}
