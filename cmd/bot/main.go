package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deepstock/internal/broker/alpaca"
	"deepstock/internal/interfaces"
	"deepstock/internal/ledger"
	"deepstock/internal/llm/noop"
	"deepstock/internal/llm/ollama"
	"deepstock/internal/logger"
	"deepstock/internal/session"
	"deepstock/internal/store"
	"deepstock/internal/trace"

	"github.com/joho/godotenv"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	cfg, err := store.LoadConfig("config.yaml")
	must(err)

	logger.Init()
	must(trace.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brk := alpaca.New(cfg, alpaca.Params{
		APIKey:    os.Getenv("ALPACA_API_KEY"),
		APISecret: os.Getenv("ALPACA_API_SECRET"),
	})
	status, err := brk.Connect(ctx)
	must(err)
	logger.Info(ctx, "Broker connected", "status", status, "mode", cfg.Mode)
	if cfg.Mode == "DRY_RUN" {
		logger.Info(ctx, ">> DRY_RUN mode: orders are simulated")
	}

	var decider interfaces.Decider
	if cfg.LLM.Provider == "OLLAMA" {
		decider = ollama.NewDecider(cfg)
	} else {
		decider = noop.NewDecider()
	}

	led, err := ledger.Open(cfg.TradeHistoryFile, time.Duration(cfg.CooldownSeconds)*time.Second)
	must(err)

	s := session.New(cfg, brk, decider, led)
	must(s.Start(ctx))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info(ctx, "Shutting down...")
	s.Stop()
	if err := trace.Shutdown(context.Background()); err != nil {
		logger.Warn(ctx, "Trace shutdown failed", "error", err)
	}
}
