// Package session runs one trading session: a fast loop that keeps
// price and unrealized PnL fresh for every tracked symbol, and a
// strategy loop that walks the symbols sequentially through
// fetch → decide → size → execute → record. The two loops share only
// the market cache, and a symbol's failure is contained to that
// symbol's slot in the cycle.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"deepstock/internal/decision"
	"deepstock/internal/interfaces"
	"deepstock/internal/ledger"
	"deepstock/internal/logger"
	"deepstock/internal/marketcache"
	"deepstock/internal/sizing"
	"deepstock/internal/store"
	"deepstock/internal/trace"
	"deepstock/internal/types"
)

type Session struct {
	cfg    *store.Config
	brk    interfaces.Broker
	llm    interfaces.Decider
	ledger *ledger.Ledger
	cache  *marketcache.Cache

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfg *store.Config, brk interfaces.Broker, llm interfaces.Decider, led *ledger.Ledger) *Session {
	return &Session{
		cfg:    cfg,
		brk:    brk,
		llm:    llm,
		ledger: led,
		cache:  marketcache.New(cfg.Symbols),
	}
}

// Cache exposes the per-symbol snapshots for any presentation layer.
func (s *Session) Cache() *marketcache.Cache { return s.cache }

// CooldownRemaining is the presentation readout of the SELL veto.
func (s *Session) CooldownRemaining(symbol string) time.Duration {
	return s.ledger.CooldownRemaining(symbol, time.Now().UTC())
}

// Start launches both loops. The session stops when Stop is called or
// the parent context is cancelled.
func (s *Session) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.fastLoop(ctx)
	go s.strategyLoop(ctx)

	logger.Info(ctx, "Session started",
		"symbols", s.cfg.Symbols,
		"mode", s.cfg.Mode,
		"fast_interval_s", s.cfg.Loop.FastSeconds,
		"strategy_interval_s", s.cfg.Loop.StrategySeconds,
	)
	return nil
}

// Stop cancels both loops and waits for them. Cancellation lands at
// the next checked boundary; an order submission already in flight
// runs to completion first.
func (s *Session) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Session) Running() bool { return s.running.Load() }

// fastLoop refreshes price and PnL for every symbol each tick. Best
// effort per symbol: an unavailable quote leaves the cache untouched
// and never delays the next symbol.
func (s *Session) fastLoop(ctx context.Context) {
	defer s.wg.Done()

	tick := time.NewTicker(time.Duration(s.cfg.Loop.FastSeconds) * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		for _, symbol := range s.cache.Symbols() {
			if ctx.Err() != nil {
				return
			}
			price, err := s.brk.FetchFastPrice(ctx, symbol)
			if err != nil {
				logger.Debug(ctx, "Fast price fetch failed", "symbol", symbol, "error", err)
				continue
			}
			s.cache.ApplyPrice(symbol, price)
		}
	}
}

// strategyLoop runs full decision cycles. Symbols are iterated
// sequentially within a cycle, so per symbol the
// fetch → decide → size → execute → record sequence never overlaps
// itself.
func (s *Session) strategyLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.cfg.Loop.StrategySeconds) * time.Second
	for {
		logger.Info(ctx, "Strategy cycle starting", "symbols", len(s.cfg.Symbols))
		for _, symbol := range s.cache.Symbols() {
			if ctx.Err() != nil {
				return
			}
			s.runSymbol(ctx, symbol)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// runSymbol is one symbol's slot in the cycle. Everything that can go
// wrong is absorbed here: transport errors degrade to HOLD or skip the
// slot, and a panic from a collaborator is contained so the remaining
// symbols still run.
func (s *Session) runSymbol(ctx context.Context, symbol string) {
	ctx, span := trace.StartSpan(ctx, "strategy.cycle")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Strategy cycle panicked", "symbol", symbol, "panic", r)
			s.cache.SetStatus(symbol, types.StatusIdle)
		}
	}()

	s.cache.SetStatus(symbol, types.StatusAnalyzing)

	price, report, err := s.brk.FetchAnalysis(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Analysis fetch failed", err, "symbol", symbol)
		s.cache.SetStatus(symbol, types.StatusIdle)
		return
	}
	pos, err := s.brk.FetchPosition(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Position fetch failed", err, "symbol", symbol)
		s.cache.SetStatus(symbol, types.StatusIdle)
		return
	}
	pos.Symbol = symbol
	acct, err := s.brk.FetchAccount(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Account fetch failed", err, "symbol", symbol)
		s.cache.SetStatus(symbol, types.StatusIdle)
		return
	}
	s.cache.ApplyPosition(symbol, pos)

	res := s.decide(ctx, types.PromptContext{
		Symbol:   symbol,
		Price:    price,
		Report:   report,
		Position: pos,
		Account:  acct,
		Memory:   s.cache.Memory(symbol),
	})
	s.cache.SetStatus(symbol, types.StatusDecided)

	d := res.Decision
	fields := []any{"cash", acct.Cash, "position_qty", pos.Qty}
	if d.Rationale != "" {
		fields = append(fields, "rationale", d.Rationale)
	}
	logger.Decision(ctx, symbol, d.Action, d.Size, string(res.Tier), d.Reason, fields...)

	now := time.Now().UTC()
	intent := sizing.Translate(d, sizing.Input{
		Account:     acct,
		Position:    pos,
		Price:       price,
		BaseOrder:   s.cfg.BaseOrderUSD,
		MinNotional: s.cfg.MinNotionalUSD,
		InCooldown:  s.ledger.InCooldown(symbol, now),
	})

	// The decision enters memory whether or not an order goes out;
	// next cycle's prompt reflects what the model said, not what the
	// translator allowed.
	s.cache.SetMemory(symbol, types.DecisionMemory{
		Action: d.Action,
		Price:  price,
		Reason: d.Reason,
		Time:   now,
	})

	if intent.Suppressed {
		if intent.Side != types.ActionHold {
			logger.Suppression(ctx, symbol, intent.Side, intent.SuppressReason)
		}
		s.cache.SetStatus(symbol, types.StatusIdle)
		return
	}

	s.cache.SetStatus(symbol, types.StatusExecuting)
	msg, err := s.submit(ctx, intent)
	if err != nil {
		logger.ErrorWithErr(ctx, "Order submission failed", err,
			"symbol", symbol, "side", intent.Side, "notional", intent.Notional, "qty", intent.Qty)
		s.cache.SetStatus(symbol, types.StatusExecutionFailed)
		return
	}

	logger.Trade(ctx, symbol, intent.Side, intent.Notional, intent.Qty, price, "message", msg)
	if err := s.ledger.Record(symbol, intent.Side, price, now); err != nil {
		// Non-fatal: the in-memory record survives the session.
		logger.Warn(ctx, "Trade history flush failed", "symbol", symbol, "error", err)
	}
	s.cache.SetStatus(symbol, types.StatusSettled)
}

// decide asks the model and interprets the answer. A transport error
// or timeout degrades to a defaulted HOLD carrying the diagnostic, so
// the cycle always has a decision to log and translate.
func (s *Session) decide(ctx context.Context, pc types.PromptContext) decision.Result {
	raw, err := s.llm.Decide(ctx, pc)
	if err != nil {
		logger.ErrorWithErr(ctx, "Decision model call failed", err, "symbol", pc.Symbol)
		return decision.Result{
			Tier: decision.TierDefaulted,
			Decision: types.Decision{
				Action:   types.ActionHold,
				SizeMode: types.SizePercent,
				Reason:   "model error: " + err.Error(),
			},
		}
	}
	return decision.Interpret(raw)
}

// submit sends the intent out. The submission context is detached from
// the session's cancellation: once an order starts, it is fire-and-wait.
func (s *Session) submit(ctx context.Context, intent types.OrderIntent) (string, error) {
	ctx, span := trace.StartSpan(context.WithoutCancel(ctx), "order.submit")
	defer span.End()

	switch {
	case intent.FullClose:
		return s.brk.CloseFullPosition(ctx, intent.Symbol)
	case intent.Notional > 0:
		return s.brk.SubmitNotionalOrder(ctx, intent.Symbol, intent.Side, intent.Notional)
	default:
		return s.brk.SubmitQuantityOrder(ctx, intent.Symbol, intent.Side, intent.Qty)
	}
}
