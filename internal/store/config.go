package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode    string   `yaml:"mode"`
	Symbols []string `yaml:"symbols"`

	// BaseOrderUSD is the 100% BUY size; BUY percentages scale it.
	BaseOrderUSD float64 `yaml:"base_order_usd"`

	Loop struct {
		FastSeconds     int `yaml:"fast_seconds"`
		StrategySeconds int `yaml:"strategy_seconds"`
	} `yaml:"loop"`

	CooldownSeconds  int     `yaml:"cooldown_seconds"`
	MinNotionalUSD   float64 `yaml:"min_notional_usd"`
	TradeHistoryFile string  `yaml:"trade_history_file"`

	Alpaca struct {
		BaseURL string `yaml:"base_url"`
		DataURL string `yaml:"data_url"`
	} `yaml:"alpaca"`

	LLM struct {
		Provider       string  `yaml:"provider"`
		URL            string  `yaml:"url"`
		Model          string  `yaml:"model"`
		Temperature    float64 `yaml:"temperature"`
		ContextWindow  int     `yaml:"context_window"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Symbols) == 0 {
		return errors.New("symbols cannot be empty")
	}
	if c.BaseOrderUSD <= 0 {
		return fmt.Errorf("base_order_usd must be positive, got %.2f", c.BaseOrderUSD)
	}
	if c.MinNotionalUSD < 0 {
		return fmt.Errorf("min_notional_usd cannot be negative, got %.2f", c.MinNotionalUSD)
	}
	if c.Loop.FastSeconds >= c.Loop.StrategySeconds {
		return fmt.Errorf("loop.fast_seconds (%d) must be below loop.strategy_seconds (%d)",
			c.Loop.FastSeconds, c.Loop.StrategySeconds)
	}
	if c.LLM.Provider != "OLLAMA" && c.LLM.Provider != "NOOP" {
		return fmt.Errorf("llm.provider must be 'OLLAMA' or 'NOOP', got '%s'", c.LLM.Provider)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.BaseOrderUSD == 0 {
		c.BaseOrderUSD = 100
	}
	if c.Loop.FastSeconds == 0 {
		c.Loop.FastSeconds = 1
	}
	if c.Loop.StrategySeconds == 0 {
		c.Loop.StrategySeconds = 60
	}
	if c.CooldownSeconds == 0 {
		c.CooldownSeconds = 300
	}
	if c.MinNotionalUSD == 0 {
		c.MinNotionalUSD = 10
	}
	if c.TradeHistoryFile == "" {
		c.TradeHistoryFile = "trade_history.json"
	}
	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = "https://data.alpaca.markets"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "NOOP"
	}
	if c.LLM.URL == "" {
		c.LLM.URL = "http://localhost:11434"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "deepseek-r1:8b"
	}
	if c.LLM.ContextWindow == 0 {
		c.LLM.ContextWindow = 4096
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 120
	}
	for i, s := range c.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}
