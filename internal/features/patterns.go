package features

import (
	"sort"
	"time"

	"smartscore/internal/model"
)

// baitScore is the share of high-visibility entries that the wallet reversed
// shortly after, each weighted by the adverse move left to followers.
func baitScore(trades []model.Trade, th Thresholds) float64 {
	var visible int
	var weighted float64
	for i, entry := range trades {
		if !highVisibility(entry, th.VisibilityRatio) {
			continue
		}
		visible++
		if move, ok := findReversal(trades, i, th.ReversalWindow); ok {
			weighted += baitWeight(move, th.BaitFullMove)
		}
	}
	if visible == 0 {
		return 0
	}
	return clamp(weighted/float64(visible), 0, 1)
}

func highVisibility(trade model.Trade, ratio float64) bool {
	if trade.Side != model.SideBuy || trade.PoolDepth <= 0 {
		return false
	}
	return trade.AmountUSDC/trade.PoolDepth > ratio
}

// findReversal looks for the first exit of the same outcome or flip to another
// outcome of the same market within window after trades[i]. It returns the
// price move against a follower holding the original outcome.
func findReversal(trades []model.Trade, i int, window time.Duration) (float64, bool) {
	entry := trades[i]
	deadline := entry.Timestamp.Add(window)
	for _, next := range trades[i+1:] {
		if next.Timestamp.After(deadline) {
			break
		}
		if next.MarketID != entry.MarketID {
			continue
		}
		switch {
		case next.Side == model.SideSell && next.Outcome == entry.Outcome:
			return entry.PriceAfter - next.PriceAfter, true
		case next.Side == model.SideBuy && next.Outcome != entry.Outcome:
			return next.PriceAfter - next.PriceBefore, true
		}
	}
	return 0, false
}

func baitWeight(move, fullMove float64) float64 {
	if fullMove <= 0 {
		return 1
	}
	return clamp(move/fullMove, 0, 1)
}

// insiderStats counts BUY entries followed by a favorable move of at least
// the threshold within the move window.
func insiderStats(trades []model.Trade, prices map[string][]model.PricePoint, th Thresholds) (entries, hits int) {
	for _, entry := range trades {
		if entry.Side != model.SideBuy {
			continue
		}
		entries++
		peak, ok := peakPriceAfter(prices[entry.MarketID], entry, th.PriceMoveWindow)
		if ok && peak-entry.PriceAfter >= th.PriceMoveThreshold {
			hits++
		}
	}
	return entries, hits
}

// peakPriceAfter returns the highest price of the entry's outcome strictly
// after the entry and no later than entry time + window.
func peakPriceAfter(points []model.PricePoint, entry model.Trade, window time.Duration) (float64, bool) {
	start := sort.Search(len(points), func(i int) bool {
		p := points[i]
		if p.Timestamp.Equal(entry.Timestamp) {
			return p.BlockNumber > entry.BlockNumber
		}
		return p.Timestamp.After(entry.Timestamp)
	})
	deadline := entry.Timestamp.Add(window)

	var peak float64
	var found bool
	for _, p := range points[start:] {
		if p.Timestamp.After(deadline) {
			break
		}
		if p.Outcome != entry.Outcome {
			continue
		}
		if !found || p.Price > peak {
			peak = p.Price
			found = true
		}
	}
	return peak, found
}

// entryTiming is the mean number of seconds between the first trade of a
// market in the window and each of the wallet's trades in that market. Trades
// whose market path is missing are left out.
func entryTiming(trades []model.Trade, prices map[string][]model.PricePoint) *float64 {
	var sum float64
	var n int
	for _, trade := range trades {
		points := prices[trade.MarketID]
		if len(points) == 0 {
			continue
		}
		delta := trade.Timestamp.Sub(points[0].Timestamp).Seconds()
		if delta < 0 {
			delta = 0
		}
		sum += delta
		n++
	}
	if n == 0 {
		return nil
	}
	return ptr(sum / float64(n))
}

func highFrequency(trades []model.Trade, th Thresholds) bool {
	n := len(trades)
	if n > th.HFTradeCount {
		return true
	}
	if n < 2 || th.HFInterval <= 0 {
		return false
	}
	span := trades[n-1].Timestamp.Sub(trades[0].Timestamp)
	return span/time.Duration(n-1) < th.HFInterval
}
