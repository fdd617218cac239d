package features

import (
	"time"

	"smartscore/internal/model"
)

// positionKey identifies one position: a market outcome.
type positionKey struct {
	market  string
	outcome string
}

// Position is the open state of one market outcome.
type Position struct {
	Shares    float64
	CostBasis float64
	OpenedAt  time.Time
}

// Flat reports whether no shares are held.
func (p Position) Flat() bool {
	return p.Shares <= 0
}

// Fill is the effect of one trade on the position book.
type Fill struct {
	Trade model.Trade
	// Resolved is set when the trade realized PnL with a non-zero ROI.
	Resolved bool
	PnL      float64
	ROI      float64
	// Closed is set when the trade flattened the position.
	Closed   bool
	HoldTime time.Duration
}

// Win reports a resolved fill with positive ROI.
func (f Fill) Win() bool { return f.Resolved && f.ROI > 0 }

// Loss reports a resolved fill with negative ROI.
func (f Fill) Loss() bool { return f.Resolved && f.ROI < 0 }

// PositionBook reduces a wallet's ordered trades into per-outcome positions.
type PositionBook struct {
	positions map[positionKey]Position
}

func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[positionKey]Position)}
}

// Position returns the current state of a market outcome.
func (b *PositionBook) Position(market, outcome string) Position {
	return b.positions[positionKey{market: market, outcome: outcome}]
}

// Apply folds one trade into the book. Trades must arrive in ledger order.
//
// BUY opens or grows the position and is never resolved. SELL closes up to
// the held shares at average cost; shares sold beyond the held amount were
// bought outside the window and cannot be matched.
func (b *PositionBook) Apply(trade model.Trade) Fill {
	key := positionKey{market: trade.MarketID, outcome: trade.Outcome}
	pos := b.positions[key]
	fill := Fill{Trade: trade}

	switch trade.Side {
	case model.SideBuy:
		if pos.Flat() {
			pos = Position{OpenedAt: trade.Timestamp}
		}
		pos.Shares += trade.AmountUSDC
		pos.CostBasis += trade.CostUSDC
	case model.SideSell:
		if pos.Flat() || trade.AmountUSDC <= 0 {
			return fill
		}
		matched := trade.AmountUSDC
		if matched > pos.Shares {
			matched = pos.Shares
		}
		avgCost := pos.CostBasis / pos.Shares
		basis := avgCost * matched
		proceeds := trade.CostUSDC * matched / trade.AmountUSDC

		pos.Shares -= matched
		pos.CostBasis -= basis
		if basis > 0 {
			fill.PnL = proceeds - basis
			fill.ROI = fill.PnL / basis
			fill.Resolved = fill.ROI != 0
		}
		if pos.Shares <= sharesEpsilon {
			fill.Closed = true
			fill.HoldTime = trade.Timestamp.Sub(pos.OpenedAt)
			pos = Position{}
		}
	}

	if pos.Flat() {
		delete(b.positions, key)
	} else {
		b.positions[key] = pos
	}
	return fill
}

// sharesEpsilon absorbs float residue when a position is sold down to zero.
const sharesEpsilon = 1e-9
