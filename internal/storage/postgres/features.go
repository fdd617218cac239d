package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"smartscore/internal/model"
)

// UpsertFeatures inserts or updates wallet_daily rows.
func (s *Store) UpsertFeatures(ctx context.Context, rows []model.WalletDayFeatures) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range rows {
		batch.Queue(`
			INSERT INTO wallet_daily (
				wallet, day, trades, wins, losses, win_rate, avg_roi, roi_std,
				total_volume, avg_ticket_size, median_ticket_size, unique_markets,
				concentration_index, mean_hold_time_seconds, max_drawdown, bait_score,
				entry_timing_seconds, entry_count, insider_hit_rate, insider_flag, is_high_freq,
				last_trade_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,now())
			ON CONFLICT (wallet, day)
			DO UPDATE SET
				trades = EXCLUDED.trades,
				wins = EXCLUDED.wins,
				losses = EXCLUDED.losses,
				win_rate = EXCLUDED.win_rate,
				avg_roi = EXCLUDED.avg_roi,
				roi_std = EXCLUDED.roi_std,
				total_volume = EXCLUDED.total_volume,
				avg_ticket_size = EXCLUDED.avg_ticket_size,
				median_ticket_size = EXCLUDED.median_ticket_size,
				unique_markets = EXCLUDED.unique_markets,
				concentration_index = EXCLUDED.concentration_index,
				mean_hold_time_seconds = EXCLUDED.mean_hold_time_seconds,
				max_drawdown = EXCLUDED.max_drawdown,
				bait_score = EXCLUDED.bait_score,
				entry_timing_seconds = EXCLUDED.entry_timing_seconds,
				entry_count = EXCLUDED.entry_count,
				insider_hit_rate = EXCLUDED.insider_hit_rate,
				insider_flag = EXCLUDED.insider_flag,
				is_high_freq = EXCLUDED.is_high_freq,
				last_trade_at = EXCLUDED.last_trade_at,
				updated_at = now()
		`,
			f.Wallet,
			model.Day(f.Day),
			f.Trades,
			f.Wins,
			f.Losses,
			f.WinRate,
			f.AvgROI,
			f.ROIStd,
			f.TotalVolume,
			f.AvgTicketSize,
			f.MedianTicketSize,
			f.UniqueMarkets,
			f.ConcentrationIndex,
			f.MeanHoldSeconds,
			f.MaxDrawdown,
			f.BaitScore,
			f.EntryTimingSeconds,
			f.EntryCount,
			f.InsiderHitRate,
			f.InsiderFlag,
			f.HighFrequency,
			f.LastTradeAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadFeatures returns the wallet_daily rows of day sorted by wallet.
func (s *Store) LoadFeatures(ctx context.Context, day time.Time) ([]model.WalletDayFeatures, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			wallet, day, trades, wins, losses, win_rate, avg_roi, roi_std,
			total_volume, avg_ticket_size, median_ticket_size, unique_markets,
			concentration_index, mean_hold_time_seconds, max_drawdown, bait_score,
			entry_timing_seconds, entry_count, insider_hit_rate, insider_flag, is_high_freq,
			last_trade_at
		FROM wallet_daily
		WHERE day = $1
		ORDER BY wallet COLLATE "C"
	`, model.Day(day))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WalletDayFeatures, error) {
		var f model.WalletDayFeatures
		err := row.Scan(
			&f.Wallet,
			&f.Day,
			&f.Trades,
			&f.Wins,
			&f.Losses,
			&f.WinRate,
			&f.AvgROI,
			&f.ROIStd,
			&f.TotalVolume,
			&f.AvgTicketSize,
			&f.MedianTicketSize,
			&f.UniqueMarkets,
			&f.ConcentrationIndex,
			&f.MeanHoldSeconds,
			&f.MaxDrawdown,
			&f.BaitScore,
			&f.EntryTimingSeconds,
			&f.EntryCount,
			&f.InsiderHitRate,
			&f.InsiderFlag,
			&f.HighFrequency,
			&f.LastTradeAt,
		)
		if err != nil {
			return model.WalletDayFeatures{}, err
		}
		f.Day = model.Day(f.Day)
		if f.LastTradeAt != nil {
			ts := f.LastTradeAt.UTC()
			f.LastTradeAt = &ts
		}
		return f, nil
	})
}
