package features

import (
	"fmt"
	"time"

	"smartscore/internal/model"
)

const (
	walletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var (
	asOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

// tradeBuilder hands out ids and block numbers in ledger order.
type tradeBuilder struct {
	wallet string
	next   uint64
}

func newBuilder(wallet string) *tradeBuilder {
	return &tradeBuilder{wallet: wallet}
}

func (b *tradeBuilder) trade(side model.Side, market, outcome string, at time.Time, amount, cost, before, after, depth float64) model.Trade {
	b.next++
	return model.Trade{
		ID:          fmt.Sprintf("%s_%d", b.wallet[:6], b.next),
		MarketID:    market,
		Wallet:      b.wallet,
		Outcome:     outcome,
		Side:        side,
		AmountUSDC:  amount,
		CostUSDC:    cost,
		PriceBefore: before,
		PriceAfter:  after,
		Timestamp:   at,
		BlockNumber: b.next,
		PoolDepth:   depth,
	}
}

func (b *tradeBuilder) buy(market, outcome string, at time.Time, amount, cost float64) model.Trade {
	return b.trade(model.SideBuy, market, outcome, at, amount, cost, 0.5, 0.5, 1_000_000)
}

func (b *tradeBuilder) sell(market, outcome string, at time.Time, amount, proceeds float64) model.Trade {
	return b.trade(model.SideSell, market, outcome, at, amount, proceeds, 0.5, 0.5, 1_000_000)
}

// roundTrips builds wins winning and losses losing buy/sell pairs, one market
// each, with one hour between entry and exit.
func roundTrips(b *tradeBuilder, wins, losses int) []model.Trade {
	var trades []model.Trade
	at := base
	for i := 0; i < wins+losses; i++ {
		market := fmt.Sprintf("m%02d", i)
		proceeds := 60.0
		if i >= wins {
			proceeds = 40.0
		}
		trades = append(trades,
			b.buy(market, "YES", at, 100, 50),
			b.sell(market, "YES", at.Add(time.Hour), 100, proceeds),
		)
		at = at.Add(2 * time.Hour)
	}
	return trades
}
