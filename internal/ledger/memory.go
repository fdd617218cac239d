package ledger

import (
	"context"
	"sort"

	"smartscore/internal/model"
)

// Memory is an in-memory ledger built from a fixed set of trades.
type Memory struct {
	byWallet map[string][]model.Trade
	byMarket map[string][]model.Trade
	rejected map[string][]Rejection
}

// NewMemory indexes trades by wallet and market. Duplicate ids keep the first row.
func NewMemory(trades []model.Trade) *Memory {
	m := &Memory{
		byWallet: make(map[string][]model.Trade),
		byMarket: make(map[string][]model.Trade),
		rejected: make(map[string][]Rejection),
	}
	seen := make(map[string]struct{}, len(trades))
	for _, trade := range trades {
		if _, ok := seen[trade.ID]; ok {
			continue
		}
		seen[trade.ID] = struct{}{}
		m.byWallet[trade.Wallet] = append(m.byWallet[trade.Wallet], trade)
		m.byMarket[trade.MarketID] = append(m.byMarket[trade.MarketID], trade)
	}
	for _, list := range m.byWallet {
		sortTrades(list)
	}
	for _, list := range m.byMarket {
		sortTrades(list)
	}
	return m
}

// AddRejections records input lines that belong to a wallet but could not be
// loaded. It must be called before the ledger is shared.
func (m *Memory) AddRejections(rejections []Rejection) {
	for _, rej := range rejections {
		m.rejected[rej.Wallet] = append(m.rejected[rej.Wallet], rej)
	}
}

// TradesForWallet fails with a RejectedTradesError when the wallet has
// rejected lines in w. A rejection without a timestamp counts for every window.
func (m *Memory) TradesForWallet(ctx context.Context, wallet string, w Window) ([]model.Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if refs := m.rejectedIn(wallet, w); len(refs) > 0 {
		return nil, &RejectedTradesError{Wallet: wallet, IDs: refs}
	}
	return inWindow(m.byWallet[wallet], w), nil
}

func (m *Memory) rejectedIn(wallet string, w Window) []string {
	var refs []string
	for _, rej := range m.rejected[wallet] {
		if rej.Timestamp.IsZero() || w.Contains(rej.Timestamp) {
			refs = append(refs, rej.Ref())
		}
	}
	sort.Strings(refs)
	return refs
}

func (m *Memory) ActiveWallets(ctx context.Context, w Window) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wallets := make([]string, 0, len(m.byWallet))
	for wallet, trades := range m.byWallet {
		if len(inWindow(trades, w)) > 0 || len(m.rejectedIn(wallet, w)) > 0 {
			wallets = append(wallets, wallet)
		}
	}
	for wallet := range m.rejected {
		if _, ok := m.byWallet[wallet]; !ok && len(m.rejectedIn(wallet, w)) > 0 {
			wallets = append(wallets, wallet)
		}
	}
	sort.Strings(wallets)
	return wallets, nil
}

func (m *Memory) MarketPrices(ctx context.Context, marketID string, w Window) ([]model.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trades := inWindow(m.byMarket[marketID], w)
	points := make([]model.PricePoint, 0, len(trades))
	for _, trade := range trades {
		points = append(points, model.PricePoint{
			Outcome:     trade.Outcome,
			Price:       trade.PriceAfter,
			Timestamp:   trade.Timestamp,
			BlockNumber: trade.BlockNumber,
		})
	}
	return points, nil
}

func sortTrades(trades []model.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return model.TradeLess(trades[i], trades[j])
	})
}

// inWindow returns a copy of the sorted trades that fall inside w.
func inWindow(trades []model.Trade, w Window) []model.Trade {
	start := sort.Search(len(trades), func(i int) bool {
		return !trades[i].Timestamp.Before(w.Start)
	})
	end := sort.Search(len(trades), func(i int) bool {
		return !trades[i].Timestamp.Before(w.End)
	})
	if start >= end {
		return nil
	}
	out := make([]model.Trade, end-start)
	copy(out, trades[start:end])
	return out
}
