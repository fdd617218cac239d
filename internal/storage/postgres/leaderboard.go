package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"smartscore/internal/model"
)

// ReplaceLeaderboard deletes the board of day and inserts entries in one
// transaction.
func (s *Store) ReplaceLeaderboard(ctx context.Context, day time.Time, entries []model.LeaderboardEntry) error {
	day = model.Day(day)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM leaderboard WHERE rank_date = $1`, day); err != nil {
			return fmt.Errorf("delete leaderboard: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, e := range entries {
			reasons := e.Reasons
			if reasons == nil {
				reasons = []string{}
			}
			batch.Queue(`
				INSERT INTO leaderboard (
					rank_date, rank, wallet, smartscore, reasons,
					win_rate, avg_roi, total_volume, bait_score
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`,
				day,
				e.Rank,
				e.Wallet,
				e.Score,
				reasons,
				e.WinRate,
				e.AvgROI,
				e.TotalVolume,
				e.BaitScore,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range entries {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert leaderboard: %w", err)
			}
		}
		return br.Close()
	})
}

// LoadLeaderboard returns the board of day in rank order.
func (s *Store) LoadLeaderboard(ctx context.Context, day time.Time) ([]model.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rank_date, rank, wallet, smartscore, reasons, win_rate, avg_roi, total_volume, bait_score
		FROM leaderboard
		WHERE rank_date = $1
		ORDER BY rank
	`, model.Day(day))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LeaderboardEntry, error) {
		var e model.LeaderboardEntry
		err := row.Scan(
			&e.RankDate,
			&e.Rank,
			&e.Wallet,
			&e.Score,
			&e.Reasons,
			&e.WinRate,
			&e.AvgROI,
			&e.TotalVolume,
			&e.BaitScore,
		)
		if err != nil {
			return model.LeaderboardEntry{}, err
		}
		e.RankDate = model.Day(e.RankDate)
		return e, nil
	})
}
