package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscore/internal/model"
)

type memorySink struct {
	mu      sync.Mutex
	trades  map[string]model.Trade
	batches int
	failFor int
}

func newMemorySink() *memorySink {
	return &memorySink{trades: make(map[string]model.Trade)}
}

func (s *memorySink) InsertTrades(ctx context.Context, trades []model.Trade) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if s.failFor > 0 {
		s.failFor--
		return 0, errors.New("connection reset")
	}
	inserted := 0
	for _, t := range trades {
		if _, ok := s.trades[t.ID]; ok {
			continue
		}
		s.trades[t.ID] = t
		inserted++
	}
	return inserted, nil
}

func line(id string, ts int64) string {
	return fmt.Sprintf(`{"id":%q,"market_id":"m1","trader":"0x1111111111111111111111111111111111111111","outcome":"YES","side":"buy","amount_usdc":"100","cost_usdc":"40.5","price_before":"0.4","price_after":"0.41","timestamp":%d,"block_number":%d,"pool_depth":"5000"}`, id, ts, ts)
}

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestRunImportsInBatches(t *testing.T) {
	path := writeInput(t,
		line("t1", 1717232400),
		"not json",
		line("t2", 1717232460),
		line("t3", 1717232520),
		`{"id":"bad","market_id":"m1","trader":"0x1111111111111111111111111111111111111111","outcome":"YES","side":"buy","amount_usdc":"1","cost_usdc":"1","price_before":"1.5","price_after":"0.5","timestamp":1717232580,"block_number":1,"pool_depth":"1"}`,
	)
	sink := newMemorySink()
	runner := NewRunner(RunConfig{Path: path, BatchSize: 2}, sink, nil)

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Lines)
	assert.Equal(t, 3, stats.Trades)
	assert.Equal(t, 3, stats.Inserted)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, sink.batches)

	got := sink.trades["t1"]
	assert.Equal(t, "0x1111111111111111111111111111111111111111", got.Wallet)
	assert.Equal(t, model.SideBuy, got.Side)
	assert.InDelta(t, 40.5, got.CostUSDC, 1e-12)
	assert.Equal(t, time.Unix(1717232400, 0).UTC(), got.Timestamp)
}

func TestRunIsIdempotent(t *testing.T) {
	path := writeInput(t, line("t1", 1717232400), line("t2", 1717232460))
	sink := newMemorySink()

	_, err := NewRunner(RunConfig{Path: path, BatchSize: 10}, sink, nil).Run(context.Background())
	require.NoError(t, err)
	stats, err := NewRunner(RunConfig{Path: path, BatchSize: 10}, sink, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Trades)
	assert.Equal(t, 0, stats.Inserted)
	assert.Len(t, sink.trades, 2)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	path := writeInput(t, line("t1", 1717232400), line("t2", 1717232460), line("t3", 1717232520))
	cpPath := filepath.Join(t.TempDir(), "import.checkpoint.json")
	cfg := RunConfig{Path: path, BatchSize: 2, CheckpointPath: cpPath, CheckpointEnabled: true}

	sink := newMemorySink()
	_, err := NewRunner(cfg, sink, nil).Run(context.Background())
	require.NoError(t, err)

	cp, ok, err := NewCheckpointStore(cpPath, true).Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, cp.LastLine)

	fresh := newMemorySink()
	stats, err := NewRunner(cfg, fresh, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Resumed)
	assert.Equal(t, 0, stats.Trades)
	assert.Empty(t, fresh.trades)
}

func TestRunRetriesSink(t *testing.T) {
	path := writeInput(t, line("t1", 1717232400))
	sink := newMemorySink()
	sink.failFor = 2

	stats, err := NewRunner(RunConfig{Path: path, BatchSize: 5, MaxRetries: 3, RetryBackoff: time.Millisecond}, sink, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 3, sink.batches)

	sink = newMemorySink()
	sink.failFor = 5
	_, err = NewRunner(RunConfig{Path: path, BatchSize: 5, MaxRetries: 1, RetryBackoff: time.Millisecond}, sink, nil).Run(context.Background())
	require.Error(t, err)
}

func TestRunValidatesConfig(t *testing.T) {
	_, err := NewRunner(RunConfig{Path: "x", BatchSize: 0}, newMemorySink(), nil).Run(context.Background())
	assert.Error(t, err)
	_, err = NewRunner(RunConfig{BatchSize: 1}, newMemorySink(), nil).Run(context.Background())
	assert.Error(t, err)
	_, err = NewRunner(RunConfig{Path: "x", BatchSize: 1}, nil, nil).Run(context.Background())
	assert.Error(t, err)
}
