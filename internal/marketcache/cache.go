// Package marketcache holds the shared per-symbol state both loops
// touch. The fast loop writes price and unrealized PnL, the strategy
// loop writes quantity, average cost, status and decision memory; every
// read crossing that ownership line goes through a locked snapshot, so
// no raw field is ever visible mid-update.
package marketcache

import (
	"sort"
	"sync"

	"deepstock/internal/types"
)

type entry struct {
	mu sync.Mutex

	price        float64
	qty          float64
	avgCost      float64
	unrealizedPL float64
	status       types.Status
	memory       *types.DecisionMemory
}

// Cache is created with a fixed symbol set at session start; entries
// live until the session stops.
type Cache struct {
	entries map[string]*entry
	symbols []string
}

func New(symbols []string) *Cache {
	c := &Cache{
		entries: make(map[string]*entry, len(symbols)),
		symbols: append([]string(nil), symbols...),
	}
	for _, s := range symbols {
		c.entries[s] = &entry{status: types.StatusIdle}
	}
	return c
}

// ApplyPrice records a fresh quote and re-derives unrealized PnL from
// the held position. Called by the fast loop only; a zero price means
// "unavailable" and leaves the entry untouched.
func (c *Cache) ApplyPrice(symbol string, price float64) {
	e := c.entries[symbol]
	if e == nil || price <= 0 {
		return
	}
	e.mu.Lock()
	e.price = price
	if e.qty > 0 {
		e.unrealizedPL = (price - e.avgCost) * e.qty
	}
	e.mu.Unlock()
}

// ApplyPosition records the broker's view of the holding. Called by
// the strategy loop only.
func (c *Cache) ApplyPosition(symbol string, pos types.PositionState) {
	e := c.entries[symbol]
	if e == nil {
		return
	}
	e.mu.Lock()
	e.qty = pos.Qty
	e.avgCost = pos.AvgCost
	e.unrealizedPL = pos.UnrealizedPL
	e.mu.Unlock()
}

func (c *Cache) SetStatus(symbol string, s types.Status) {
	e := c.entries[symbol]
	if e == nil {
		return
	}
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// SetMemory replaces the symbol's decision memory wholesale.
func (c *Cache) SetMemory(symbol string, m types.DecisionMemory) {
	e := c.entries[symbol]
	if e == nil {
		return
	}
	e.mu.Lock()
	e.memory = &m
	e.mu.Unlock()
}

// Memory returns the last cycle's decision, or nil on the first run.
func (c *Cache) Memory(symbol string) *types.DecisionMemory {
	e := c.entries[symbol]
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.memory == nil {
		return nil
	}
	m := *e.memory
	return &m
}

// Snapshot returns a consistent copy of one entry.
func (c *Cache) Snapshot(symbol string) (types.SymbolSnapshot, bool) {
	e := c.entries[symbol]
	if e == nil {
		return types.SymbolSnapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := types.SymbolSnapshot{
		Symbol:       symbol,
		Price:        e.price,
		Qty:          e.qty,
		AvgCost:      e.avgCost,
		UnrealizedPL: e.unrealizedPL,
		Status:       e.status,
	}
	if e.memory != nil {
		m := *e.memory
		snap.Memory = &m
	}
	return snap, true
}

// Snapshots returns one consistent snapshot per tracked symbol, in
// stable symbol order. Consistency is per entry, not across entries.
func (c *Cache) Snapshots() []types.SymbolSnapshot {
	syms := append([]string(nil), c.symbols...)
	sort.Strings(syms)

	out := make([]types.SymbolSnapshot, 0, len(syms))
	for _, s := range syms {
		if snap, ok := c.Snapshot(s); ok {
			out = append(out, snap)
		}
	}
	return out
}

// Symbols returns the tracked symbol set in configuration order.
func (c *Cache) Symbols() []string {
	return append([]string(nil), c.symbols...)
}
