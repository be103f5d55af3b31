// Package ledger keeps the durable per-symbol trade history and the
// post-BUY cooldown guard derived from it.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"deepstock/internal/types"
)

// Ledger is an append-only trade history persisted as a single JSON
// file keyed by symbol. All access serializes through one mutex; the
// loop's sequential-per-symbol rule means contention is rare, but a
// manual trade from a UI would be a second writer.
type Ledger struct {
	mu       sync.Mutex
	path     string
	cooldown time.Duration

	records map[string][]types.TradeRecord
	lastBuy map[string]time.Time
}

// Open loads the history file if present and rebuilds the last-buy
// clock per symbol from it. A missing file is a fresh ledger, not an
// error; history is merged on load, never truncated.
func Open(path string, cooldown time.Duration) (*Ledger, error) {
	l := &Ledger{
		path:     path,
		cooldown: cooldown,
		records:  make(map[string][]types.TradeRecord),
		lastBuy:  make(map[string]time.Time),
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read trade history: %w", err)
	}
	if err := json.Unmarshal(b, &l.records); err != nil {
		return nil, fmt.Errorf("parse trade history %s: %w", path, err)
	}

	for sym, recs := range l.records {
		// Insertion order is the contract, but tolerate hand-edited
		// files by restoring timestamp order once at load.
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Time.Before(recs[j].Time) })
		for _, r := range recs {
			if r.Action == types.ActionBuy && r.Time.After(l.lastBuy[sym]) {
				l.lastBuy[sym] = r.Time
			}
		}
	}
	return l, nil
}

// Record appends one executed trade and flushes the whole history to
// disk. The in-memory record is kept even when the flush fails, so a
// persistence error costs durability, not session state.
func (l *Ledger) Record(symbol, action string, price float64, ts time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts = ts.UTC()
	l.records[symbol] = append(l.records[symbol], types.TradeRecord{
		Time:   ts,
		Action: action,
		Price:  price,
	})
	if action == types.ActionBuy {
		l.lastBuy[symbol] = ts
	}
	return l.flushLocked()
}

func (l *Ledger) flushLocked() error {
	b, err := json.Marshal(l.records)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// InCooldown reports whether a SELL on symbol is still vetoed by the
// last executed BUY. Suppressed buys never arm the clock.
func (l *Ledger) InCooldown(symbol string, now time.Time) bool {
	return l.CooldownRemaining(symbol, now) > 0
}

// CooldownRemaining returns how long the veto still holds, zero when
// the symbol is clear.
func (l *Ledger) CooldownRemaining(symbol string, now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.lastBuy[symbol]
	if !ok {
		return 0
	}
	rem := l.cooldown - now.Sub(last)
	if rem < 0 {
		return 0
	}
	return rem
}

// History returns a copy of the symbol's records in insertion order.
func (l *Ledger) History(symbol string) []types.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.TradeRecord, len(l.records[symbol]))
	copy(out, l.records[symbol])
	return out
}

// Symbols returns every symbol with at least one record.
func (l *Ledger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.records))
	for sym := range l.records {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
