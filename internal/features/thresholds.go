package features

import (
	"fmt"
	"time"

	"smartscore/internal/ledger"
)

// Thresholds holds every tunable heuristic used by the aggregator.
type Thresholds struct {
	WindowDays int

	// Bait detection.
	VisibilityRatio float64
	ReversalWindow  time.Duration
	BaitFullMove    float64

	// Insider detection.
	PriceMoveThreshold  float64
	PriceMoveWindow     time.Duration
	InsiderBaselineRate float64
	InsiderMinSample    int

	// High-frequency detection.
	HFTradeCount int
	HFInterval   time.Duration

	// Wallets below this trade count are computed but not ranked.
	MinTradesForRanking int
}

// DefaultThresholds is the reference parameter set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WindowDays:          ledger.DefaultWindowDays,
		VisibilityRatio:     0.05,
		ReversalWindow:      15 * time.Minute,
		BaitFullMove:        0.05,
		PriceMoveThreshold:  0.10,
		PriceMoveWindow:     24 * time.Hour,
		InsiderBaselineRate: 0.30,
		InsiderMinSample:    10,
		HFTradeCount:        2000,
		HFInterval:          5 * time.Minute,
		MinTradesForRanking: 5,
	}
}

// Validate rejects thresholds that would make the heuristics meaningless.
func (t Thresholds) Validate() error {
	if t.WindowDays <= 0 {
		return fmt.Errorf("window days must be > 0")
	}
	if t.VisibilityRatio <= 0 {
		return fmt.Errorf("visibility ratio must be > 0")
	}
	if t.ReversalWindow <= 0 {
		return fmt.Errorf("reversal window must be > 0")
	}
	if t.PriceMoveThreshold <= 0 {
		return fmt.Errorf("price move threshold must be > 0")
	}
	if t.PriceMoveWindow <= 0 {
		return fmt.Errorf("price move window must be > 0")
	}
	if t.InsiderBaselineRate < 0 || t.InsiderBaselineRate > 1 {
		return fmt.Errorf("insider baseline rate must be in [0,1]")
	}
	if t.InsiderMinSample < 1 {
		return fmt.Errorf("insider min sample must be >= 1")
	}
	if t.HFTradeCount < 1 {
		return fmt.Errorf("high-frequency trade count must be >= 1")
	}
	if t.MinTradesForRanking < 1 {
		return fmt.Errorf("min trades for ranking must be >= 1")
	}
	return nil
}
