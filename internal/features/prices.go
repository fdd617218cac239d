package features

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"smartscore/internal/ledger"
	"smartscore/internal/model"
)

// PriceCache caches market price paths for one aggregation run.
type PriceCache struct {
	reader ledger.Reader
	window ledger.Window

	mu    sync.RWMutex
	data  map[string][]model.PricePoint
	group singleflight.Group
}

func NewPriceCache(reader ledger.Reader, window ledger.Window) *PriceCache {
	return &PriceCache{
		reader: reader,
		window: window,
		data:   make(map[string][]model.PricePoint),
	}
}

func (c *PriceCache) Get(marketID string) ([]model.PricePoint, bool) {
	c.mu.RLock()
	points, ok := c.data[marketID]
	c.mu.RUnlock()
	return points, ok
}

func (c *PriceCache) Set(marketID string, points []model.PricePoint) {
	c.mu.Lock()
	c.data[marketID] = points
	c.mu.Unlock()
}

// Load returns the cached path of a market, reading it once from the ledger.
func (c *PriceCache) Load(ctx context.Context, marketID string) ([]model.PricePoint, error) {
	if points, ok := c.Get(marketID); ok {
		return points, nil
	}
	v, err, _ := c.group.Do(marketID, func() (interface{}, error) {
		if points, ok := c.Get(marketID); ok {
			return points, nil
		}
		points, err := c.reader.MarketPrices(ctx, marketID, c.window)
		if err != nil {
			return nil, err
		}
		c.Set(marketID, points)
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.PricePoint), nil
}

// LoadMarkets returns the price paths of every market traded in trades.
func (c *PriceCache) LoadMarkets(ctx context.Context, trades []model.Trade) (map[string][]model.PricePoint, error) {
	out := make(map[string][]model.PricePoint)
	for _, trade := range trades {
		if _, ok := out[trade.MarketID]; ok {
			continue
		}
		points, err := c.Load(ctx, trade.MarketID)
		if err != nil {
			return nil, err
		}
		out[trade.MarketID] = points
	}
	return out, nil
}
