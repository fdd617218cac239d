package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartscore/internal/ledger"
	"smartscore/internal/model"
)

// InsertTrades stores trades, skipping ids that already exist. It returns the
// number of new rows.
func (s *Store) InsertTrades(ctx context.Context, trades []model.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO raw_trades (
				id, market_id, wallet, outcome, side, amount_usdc, cost_usdc,
				price_before, price_after, ts, block_number, pool_depth
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO NOTHING
		`,
			t.ID,
			t.MarketID,
			t.Wallet,
			t.Outcome,
			string(t.Side),
			t.AmountUSDC,
			t.CostUSDC,
			t.PriceBefore,
			t.PriceAfter,
			t.Timestamp,
			int64(t.BlockNumber),
			t.PoolDepth,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range trades {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

const tradeColumns = `id, market_id, wallet, outcome, side, amount_usdc, cost_usdc,
	price_before, price_after, ts, block_number, pool_depth`

// Ties on (ts, block_number) are broken by byte order of id.
const tradeOrder = `ORDER BY ts, block_number, id COLLATE "C"`

func scanTrade(row pgx.CollectableRow) (model.Trade, error) {
	var (
		t     model.Trade
		side  string
		block int64
	)
	err := row.Scan(
		&t.ID,
		&t.MarketID,
		&t.Wallet,
		&t.Outcome,
		&side,
		&t.AmountUSDC,
		&t.CostUSDC,
		&t.PriceBefore,
		&t.PriceAfter,
		&t.Timestamp,
		&block,
		&t.PoolDepth,
	)
	if err != nil {
		return model.Trade{}, err
	}
	t.Side = model.Side(side)
	t.Timestamp = t.Timestamp.UTC()
	t.BlockNumber = uint64(block)
	return t, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ledger.ErrLedgerUnavailable, op, err)
}

func (s *Store) TradesForWallet(ctx context.Context, wallet string, w ledger.Window) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM raw_trades
		WHERE wallet = $1 AND ts >= $2 AND ts < $3
		`+tradeOrder, wallet, w.Start, w.End)
	if err != nil {
		return nil, unavailable("query wallet trades", err)
	}
	trades, err := pgx.CollectRows(rows, scanTrade)
	if err != nil {
		return nil, unavailable("scan wallet trades", err)
	}
	return trades, nil
}

func (s *Store) ActiveWallets(ctx context.Context, w ledger.Window) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT wallet
		FROM raw_trades
		WHERE ts >= $1 AND ts < $2
		ORDER BY wallet COLLATE "C"
	`, w.Start, w.End)
	if err != nil {
		return nil, unavailable("query active wallets", err)
	}
	wallets, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("scan active wallets", err)
	}
	return wallets, nil
}

func (s *Store) MarketPrices(ctx context.Context, marketID string, w ledger.Window) ([]model.PricePoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT outcome, price_after, ts, block_number
		FROM raw_trades
		WHERE market_id = $1 AND ts >= $2 AND ts < $3
		`+tradeOrder, marketID, w.Start, w.End)
	if err != nil {
		return nil, unavailable("query market prices", err)
	}
	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PricePoint, error) {
		var (
			p     model.PricePoint
			block int64
		)
		if err := row.Scan(&p.Outcome, &p.Price, &p.Timestamp, &block); err != nil {
			return model.PricePoint{}, err
		}
		p.Timestamp = p.Timestamp.UTC()
		p.BlockNumber = uint64(block)
		return p, nil
	})
	if err != nil {
		return nil, unavailable("scan market prices", err)
	}
	return points, nil
}
