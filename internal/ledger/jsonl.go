package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartscore/internal/model"
)

// TradeRecord is the JSON line shape written by the trade collector.
type TradeRecord struct {
	ID          string          `json:"id"`
	MarketID    string          `json:"market_id"`
	Trader      string          `json:"trader"`
	Outcome     string          `json:"outcome"`
	Side        string          `json:"side"`
	AmountUSDC  decimal.Decimal `json:"amount_usdc"`
	CostUSDC    decimal.Decimal `json:"cost_usdc"`
	PriceBefore decimal.Decimal `json:"price_before"`
	PriceAfter  decimal.Decimal `json:"price_after"`
	Timestamp   RecordTime      `json:"timestamp"`
	BlockNumber uint64          `json:"block_number"`
	PoolDepth   decimal.Decimal `json:"pool_depth"`
}

// RecordTime accepts unix seconds (number or string) or RFC3339.
type RecordTime struct {
	time.Time
}

func (rt *RecordTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		rt.Time = time.Time{}
		return nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		rt.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	rt.Time = ts.UTC()
	return nil
}

func (rt RecordTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(rt.Unix(), 10)), nil
}

// ToTrade converts a record into a ledger trade with a normalized wallet.
func (r TradeRecord) ToTrade() (model.Trade, error) {
	wallet, err := model.NormalizeWallet(r.Trader)
	if err != nil {
		return model.Trade{}, fmt.Errorf("trade %s: %w", r.ID, err)
	}
	side, err := model.ParseSide(r.Side)
	if err != nil {
		return model.Trade{}, fmt.Errorf("trade %s: %w", r.ID, err)
	}
	return model.Trade{
		ID:          strings.TrimSpace(r.ID),
		MarketID:    strings.TrimSpace(r.MarketID),
		Wallet:      wallet,
		Outcome:     strings.TrimSpace(r.Outcome),
		Side:        side,
		AmountUSDC:  r.AmountUSDC.InexactFloat64(),
		CostUSDC:    r.CostUSDC.InexactFloat64(),
		PriceBefore: r.PriceBefore.InexactFloat64(),
		PriceAfter:  r.PriceAfter.InexactFloat64(),
		Timestamp:   r.Timestamp.Time,
		BlockNumber: r.BlockNumber,
		PoolDepth:   r.PoolDepth.InexactFloat64(),
	}, nil
}

// Rejection is an input line that could not become a trade but still names a
// valid wallet. Timestamp is zero when the line carries no usable one.
type Rejection struct {
	Line      int
	ID        string
	Wallet    string
	Timestamp time.Time
	Err       error
}

// Ref names the rejected record by id, or by line when it has none.
func (r Rejection) Ref() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("line %d", r.Line)
}

// ScanStats counts lines seen while scanning a trade file. Rejected holds the
// skipped lines that could still be attributed to a wallet.
type ScanStats struct {
	Lines    int
	Trades   int
	Skipped  int
	Rejected []Rejection
}

// ScanTrades decodes JSON lines from r and calls fn for every convertible trade.
// Undecodable lines are logged and skipped; an error from fn stops the scan.
func ScanTrades(r io.Reader, logger *zap.Logger, fn func(line int, trade model.Trade) error) (ScanStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var stats ScanStats
	for scanner.Scan() {
		stats.Lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record TradeRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Skipped++
			logger.Warn("decode trade record", zap.Int("line", stats.Lines), zap.Error(err))
			if rej, ok := recordOwner(line); ok {
				rej.Line, rej.Err = stats.Lines, err
				stats.Rejected = append(stats.Rejected, rej)
			}
			continue
		}
		trade, err := record.ToTrade()
		if err != nil {
			stats.Skipped++
			logger.Warn("convert trade record", zap.Int("line", stats.Lines), zap.Error(err))
			if wallet, werr := model.NormalizeWallet(record.Trader); werr == nil {
				stats.Rejected = append(stats.Rejected, Rejection{
					Line:      stats.Lines,
					ID:        strings.TrimSpace(record.ID),
					Wallet:    wallet,
					Timestamp: record.Timestamp.Time,
					Err:       err,
				})
			}
			continue
		}

		stats.Trades++
		if err := fn(stats.Lines, trade); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	return stats, nil
}

// recordOwner recovers id, wallet and timestamp from a line that failed to
// decode as a whole. ok is false when the line names no valid wallet.
func recordOwner(line []byte) (Rejection, bool) {
	var head struct {
		ID        string          `json:"id"`
		Trader    string          `json:"trader"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return Rejection{}, false
	}
	wallet, err := model.NormalizeWallet(head.Trader)
	if err != nil {
		return Rejection{}, false
	}
	rej := Rejection{ID: strings.TrimSpace(head.ID), Wallet: wallet}
	var ts RecordTime
	if len(head.Timestamp) > 0 && ts.UnmarshalJSON(head.Timestamp) == nil {
		rej.Timestamp = ts.Time
	}
	return rej, true
}

// LoadJSONL reads a trade file into an in-memory ledger. Wallets with rejected
// lines fail their reads instead of being computed on partial history.
func LoadJSONL(path string, logger *zap.Logger) (*Memory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open trades: %v", ErrLedgerUnavailable, err)
	}
	defer file.Close()

	trades := make([]model.Trade, 0, 1024)
	stats, err := ScanTrades(file, logger, func(_ int, trade model.Trade) error {
		trades = append(trades, trade)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if logger != nil {
		logger.Info("trades loaded",
			zap.String("path", path),
			zap.Int("lines", stats.Lines),
			zap.Int("trades", stats.Trades),
			zap.Int("skipped", stats.Skipped),
			zap.Int("rejected", len(stats.Rejected)),
		)
	}
	mem := NewMemory(trades)
	mem.AddRejections(stats.Rejected)
	return mem, nil
}
