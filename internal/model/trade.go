package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Side is the direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes a side label.
func ParseSide(input string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "BUY", "B":
		return SideBuy, nil
	case "SELL", "S":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid side: %q", input)
	}
}

// Trade is one immutable fill from the ledger.
type Trade struct {
	ID          string    `json:"id"`
	MarketID    string    `json:"market_id"`
	Wallet      string    `json:"wallet"`
	Outcome     string    `json:"outcome"`
	Side        Side      `json:"side"`
	AmountUSDC  float64   `json:"amount_usdc"`
	CostUSDC    float64   `json:"cost_usdc"`
	PriceBefore float64   `json:"price_before"`
	PriceAfter  float64   `json:"price_after"`
	Timestamp   time.Time `json:"timestamp"`
	BlockNumber uint64    `json:"block_number"`
	PoolDepth   float64   `json:"pool_depth"`
}

// Validate reports malformed trade data.
func (t Trade) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trade id is empty")
	}
	if t.MarketID == "" {
		return fmt.Errorf("trade %s: market id is empty", t.ID)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("trade %s: invalid side %q", t.ID, t.Side)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("trade %s: timestamp is zero", t.ID)
	}
	for name, value := range map[string]float64{
		"amount_usdc": t.AmountUSDC,
		"cost_usdc":   t.CostUSDC,
		"pool_depth":  t.PoolDepth,
	} {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return fmt.Errorf("trade %s: invalid %s %v", t.ID, name, value)
		}
	}
	for name, value := range map[string]float64{
		"price_before": t.PriceBefore,
		"price_after":  t.PriceAfter,
	} {
		if math.IsNaN(value) || value < 0 || value > 1 {
			return fmt.Errorf("trade %s: %s %v outside [0,1]", t.ID, name, value)
		}
	}
	return nil
}

// TradeLess orders trades by (timestamp, block number, id).
func TradeLess(a, b Trade) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.ID < b.ID
}

// PricePoint is the pool price of one outcome right after a fill.
type PricePoint struct {
	Outcome     string
	Price       float64
	Timestamp   time.Time
	BlockNumber uint64
}
