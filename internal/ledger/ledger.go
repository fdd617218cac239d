package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartscore/internal/model"
)

// DefaultWindowDays is the length of the trailing feature window.
const DefaultWindowDays = 90

// ErrLedgerUnavailable marks a backing store that cannot be reached.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// RejectedTradesError reports that input records of a wallet could not be
// turned into trades, so its window history is incomplete.
type RejectedTradesError struct {
	Wallet string
	IDs    []string
}

func (e *RejectedTradesError) Error() string {
	return fmt.Sprintf("wallet %s has %d rejected trade records: %s", e.Wallet, len(e.IDs), strings.Join(e.IDs, ", "))
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor returns the trailing window of days calendar days ending at day inclusive.
func WindowFor(day time.Time, days int) Window {
	if days <= 0 {
		days = DefaultWindowDays
	}
	end := model.Day(day).AddDate(0, 0, 1)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Reader is read-only access to the trade ledger.
// Implementations must be safe for concurrent use.
type Reader interface {
	// TradesForWallet returns the wallet's trades in w ordered by (timestamp, block, id).
	TradesForWallet(ctx context.Context, wallet string, w Window) ([]model.Trade, error)
	// ActiveWallets returns the sorted distinct wallets with at least one trade in w.
	ActiveWallets(ctx context.Context, w Window) ([]string, error)
	// MarketPrices returns the post-fill price path of a market in w, in trade order.
	MarketPrices(ctx context.Context, marketID string, w Window) ([]model.PricePoint, error)
}
