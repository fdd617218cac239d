package features

import (
	"fmt"
	"time"

	"smartscore/internal/model"
)

// WalletComputeError scopes a failure to a single wallet.
type WalletComputeError struct {
	Wallet string
	Err    error
}

func (e *WalletComputeError) Error() string {
	return fmt.Sprintf("wallet %s: %v", e.Wallet, e.Err)
}

func (e *WalletComputeError) Unwrap() error {
	return e.Err
}

// Compute builds the feature row of one wallet for day from its window trades,
// which must be in ledger order. prices holds the window price path of every
// traded market. It drives entry timing and insider detection; insider stats
// are only reported once the sample size is met.
func Compute(wallet string, day time.Time, trades []model.Trade, prices map[string][]model.PricePoint, th Thresholds) (model.WalletDayFeatures, error) {
	row := model.WalletDayFeatures{
		Wallet: wallet,
		Day:    model.Day(day),
		Trades: len(trades),
	}
	if len(trades) == 0 {
		return row, nil
	}

	book := NewPositionBook()
	volumeByMarket := make(map[string]float64)
	costs := make([]float64, 0, len(trades))
	var rois, pnl []float64
	var holdSeconds float64
	var closed int

	for i, trade := range trades {
		if err := trade.Validate(); err != nil {
			return model.WalletDayFeatures{}, err
		}
		if trade.Wallet != wallet {
			return model.WalletDayFeatures{}, fmt.Errorf("trade %s belongs to %s", trade.ID, trade.Wallet)
		}
		if i > 0 && model.TradeLess(trade, trades[i-1]) {
			return model.WalletDayFeatures{}, fmt.Errorf("trade %s out of ledger order", trade.ID)
		}

		volumeByMarket[trade.MarketID] += trade.AmountUSDC
		costs = append(costs, trade.CostUSDC)
		row.TotalVolume += trade.AmountUSDC

		fill := book.Apply(trade)
		switch {
		case fill.Win():
			row.Wins++
		case fill.Loss():
			row.Losses++
		}
		if fill.Resolved {
			rois = append(rois, fill.ROI)
			pnl = append(pnl, fill.PnL)
		}
		if fill.Closed {
			closed++
			holdSeconds += fill.HoldTime.Seconds()
		}
	}

	if resolved := row.Resolved(); resolved > 0 {
		row.WinRate = ptr(float64(row.Wins) / float64(resolved))
	}
	if len(rois) > 0 {
		m := mean(rois)
		row.AvgROI = ptr(m)
		row.ROIStd = populationStd(rois, m)
	}
	row.AvgTicketSize = mean(costs)
	row.MedianTicketSize = median(costs)
	row.UniqueMarkets = len(volumeByMarket)
	row.ConcentrationIndex = herfindahl(volumeByMarket)
	if closed > 0 {
		row.MeanHoldSeconds = ptr(holdSeconds / float64(closed))
	}
	row.MaxDrawdown = maxDrawdown(pnl)
	row.BaitScore = baitScore(trades, th)
	row.EntryTimingSeconds = entryTiming(trades, prices)

	entries, hits := insiderStats(trades, prices, th)
	row.EntryCount = entries
	if entries > 0 && len(trades) >= th.InsiderMinSample {
		rate := float64(hits) / float64(entries)
		row.InsiderHitRate = ptr(rate)
		row.InsiderFlag = rate > th.InsiderBaselineRate
	}
	row.HighFrequency = highFrequency(trades, th)

	last := trades[len(trades)-1].Timestamp.UTC()
	row.LastTradeAt = &last
	return row, nil
}

// NeedsPrices reports whether Compute reads market price paths for a wallet
// with the given trade count.
func NeedsPrices(trades int) bool {
	return trades > 0
}
