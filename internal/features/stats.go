package features

import (
	"math"
	"sort"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStd is 0 for fewer than two values.
func populationStd(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// herfindahl sums squared volume shares. Both the total and the squares are
// accumulated in sorted market order so the float result is identical across
// runs.
func herfindahl(volumeByMarket map[string]float64) float64 {
	markets := make([]string, 0, len(volumeByMarket))
	for market := range volumeByMarket {
		markets = append(markets, market)
	}
	sort.Strings(markets)

	var total float64
	for _, market := range markets {
		total += volumeByMarket[market]
	}
	if total <= 0 {
		return 0
	}

	var hhi float64
	for _, market := range markets {
		share := volumeByMarket[market] / total
		hhi += share * share
	}
	return clamp(hhi, 0, 1)
}

// maxDrawdown walks a realized PnL series and returns the deepest dip below the
// running peak as a fraction of that peak. The peak starts at zero, so a curve
// that never rose above zero has no measurable drawdown.
func maxDrawdown(pnl []float64) float64 {
	var cum, peak, worst, peakAtWorst float64
	for _, p := range pnl {
		cum += p
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > worst {
			worst = dd
			peakAtWorst = peak
		}
	}
	if worst <= 0 || peakAtWorst <= 0 {
		return 0
	}
	return worst / peakAtWorst
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ptr(v float64) *float64 {
	return &v
}
