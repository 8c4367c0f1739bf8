package state

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/events"
)

// MintStats summarizes the trades seen for one mint since start.
type MintStats struct {
	Mint      string
	Buys      int
	Sells     int
	Volume    uint64
	Graduated bool
}

// TradeCache keeps the most recent trades and per-mint counters for the
// dashboard. Safe for concurrent use.
type TradeCache struct {
	mu     sync.RWMutex
	logger *zap.Logger
	limit  int
	recent []events.TradeEvent
	mints  map[string]*MintStats

	reads  uint64
	writes uint64
}

func NewTradeCache(limit int, logger *zap.Logger) *TradeCache {
	if limit <= 0 {
		limit = 100
	}
	return &TradeCache{
		logger: logger,
		limit:  limit,
		mints:  make(map[string]*MintStats),
	}
}

// AddTrade records a trade, evicting the oldest beyond the limit.
func (c *TradeCache) AddTrade(e events.TradeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recent = append(c.recent, e)
	if len(c.recent) > c.limit {
		c.recent = c.recent[len(c.recent)-c.limit:]
	}

	st := c.stats(e.Mint.String())
	if e.Side == "sell" {
		st.Sells++
	} else {
		st.Buys++
	}
	st.Volume += e.NativeAmount
	atomic.AddUint64(&c.writes, 1)
}

// MarkGraduated flags mint as complete.
func (c *TradeCache) MarkGraduated(mint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats(mint).Graduated = true
	atomic.AddUint64(&c.writes, 1)
}

func (c *TradeCache) stats(mint string) *MintStats {
	st, ok := c.mints[mint]
	if !ok {
		st = &MintStats{Mint: mint}
		c.mints[mint] = st
	}
	return st
}

// Recent returns up to n trades, newest first.
func (c *TradeCache) Recent(n int) []events.TradeEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)

	if n <= 0 || n > len(c.recent) {
		n = len(c.recent)
	}
	out := make([]events.TradeEvent, 0, n)
	for i := len(c.recent) - 1; i >= len(c.recent)-n; i-- {
		out = append(out, c.recent[i])
	}
	return out
}

// Stats returns a copy of the counters of mint.
func (c *TradeCache) Stats(mint string) (MintStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	atomic.AddUint64(&c.reads, 1)

	st, ok := c.mints[mint]
	if !ok {
		return MintStats{}, false
	}
	return *st, true
}

// GetStats returns cache statistics
func (c *TradeCache) GetStats() (reads, writes uint64, trades int) {
	c.mu.RLock()
	trades = len(c.recent)
	c.mu.RUnlock()
	return atomic.LoadUint64(&c.reads), atomic.LoadUint64(&c.writes), trades
}

// LogStats logs cache statistics
func (c *TradeCache) LogStats() {
	reads, writes, trades := c.GetStats()
	c.logger.Debug("UI cache statistics",
		zap.Uint64("reads", reads),
		zap.Uint64("writes", writes),
		zap.Int("trades", trades))
}
