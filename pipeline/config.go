// Package pipeline wires the trading actors (market data, strategy, risk,
// execution) on top of the xactor bus.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Symbol is one instrument the data engine publishes ticks for.
type Symbol struct {
	Name  string
	Start decimal.Decimal
}

// StrategyParams tunes the trend follower.
type StrategyParams struct {
	ID        string
	Threshold decimal.Decimal
	OrderQty  decimal.Decimal
}

// RiskLimits are the pre-trade checks applied to every order request.
type RiskLimits struct {
	Enabled      bool
	MaxOrderQty  decimal.Decimal
	MaxNotional  decimal.Decimal
	PriceBandPct decimal.Decimal
}

// ExecParams tunes the simulated execution venue.
type ExecParams struct {
	SlippageBps int64
}

// BusParams carries the queueing and supervision knobs.
type BusParams struct {
	DefaultQueueCapacity int
	PriceQueueCapacity   int
	DrainOnShutdown      bool
	WatchdogGrace        time.Duration
}

// Config is the fully resolved pipeline configuration.
type Config struct {
	Symbols      []Symbol
	TickInterval time.Duration
	TickStep     decimal.Decimal
	Strategy     StrategyParams
	Risk         RiskLimits
	Execution    ExecParams
	Bus          BusParams
}

// Default returns a runnable single-symbol configuration.
func Default() Config {
	return Config{
		Symbols: []Symbol{
			{Name: "AAPL", Start: decimal.RequireFromString("100.00")},
		},
		TickInterval: 100 * time.Millisecond,
		TickStep:     decimal.RequireFromString("0.25"),
		Strategy: StrategyParams{
			ID:        "trend-follower",
			Threshold: decimal.RequireFromString("100.30"),
			OrderQty:  decimal.RequireFromString("5"),
		},
		Risk: RiskLimits{
			Enabled:      true,
			MaxOrderQty:  decimal.RequireFromString("100"),
			MaxNotional:  decimal.RequireFromString("100000"),
			PriceBandPct: decimal.RequireFromString("0.05"),
		},
		Execution: ExecParams{SlippageBps: 0},
		Bus: BusParams{
			DefaultQueueCapacity: 1024,
			PriceQueueCapacity:   256,
			DrainOnShutdown:      false,
			WatchdogGrace:        5 * time.Second,
		},
	}
}

// file-level shapes; durations and decimals come in as strings and are
// validated during resolve.
type fileConfig struct {
	Symbols []struct {
		Name       string `yaml:"name"`
		StartPrice string `yaml:"start_price"`
	} `yaml:"symbols"`
	Data struct {
		TickInterval string `yaml:"tick_interval"`
		Step         string `yaml:"step"`
	} `yaml:"data"`
	Strategy struct {
		ID        string `yaml:"id"`
		Threshold string `yaml:"threshold"`
		OrderQty  string `yaml:"order_qty"`
	} `yaml:"strategy"`
	Risk struct {
		Enabled      *bool  `yaml:"enabled"`
		MaxOrderQty  string `yaml:"max_order_qty"`
		MaxNotional  string `yaml:"max_notional"`
		PriceBandPct string `yaml:"price_band_pct"`
	} `yaml:"risk"`
	Execution struct {
		SlippageBps int64 `yaml:"slippage_bps"`
	} `yaml:"execution"`
	Bus struct {
		DefaultQueueCapacity int    `yaml:"default_queue_capacity"`
		PriceQueueCapacity   int    `yaml:"price_queue_capacity"`
		DrainOnShutdown      *bool  `yaml:"drain_on_shutdown"`
		WatchdogGrace        string `yaml:"watchdog_grace"`
	} `yaml:"bus"`
}

// Load reads a YAML file and resolves it over Default: absent fields keep
// their defaults, present fields must parse.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("pipeline: read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("pipeline: parse config: %w", err)
	}
	return resolve(fc)
}

func resolve(fc fileConfig) (Config, error) {
	cfg := Default()

	if len(fc.Symbols) > 0 {
		cfg.Symbols = cfg.Symbols[:0]
		for _, s := range fc.Symbols {
			if s.Name == "" {
				return Config{}, fmt.Errorf("pipeline: symbol with empty name")
			}
			start, err := parseDecimal("start_price", s.StartPrice)
			if err != nil {
				return Config{}, err
			}
			cfg.Symbols = append(cfg.Symbols, Symbol{Name: s.Name, Start: start})
		}
	}

	if err := overrideDuration(&cfg.TickInterval, "tick_interval", fc.Data.TickInterval); err != nil {
		return Config{}, err
	}
	if err := overrideDecimal(&cfg.TickStep, "step", fc.Data.Step); err != nil {
		return Config{}, err
	}

	if fc.Strategy.ID != "" {
		cfg.Strategy.ID = fc.Strategy.ID
	}
	if err := overrideDecimal(&cfg.Strategy.Threshold, "threshold", fc.Strategy.Threshold); err != nil {
		return Config{}, err
	}
	if err := overrideDecimal(&cfg.Strategy.OrderQty, "order_qty", fc.Strategy.OrderQty); err != nil {
		return Config{}, err
	}

	if fc.Risk.Enabled != nil {
		cfg.Risk.Enabled = *fc.Risk.Enabled
	}
	if err := overrideDecimal(&cfg.Risk.MaxOrderQty, "max_order_qty", fc.Risk.MaxOrderQty); err != nil {
		return Config{}, err
	}
	if err := overrideDecimal(&cfg.Risk.MaxNotional, "max_notional", fc.Risk.MaxNotional); err != nil {
		return Config{}, err
	}
	if err := overrideDecimal(&cfg.Risk.PriceBandPct, "price_band_pct", fc.Risk.PriceBandPct); err != nil {
		return Config{}, err
	}

	if fc.Execution.SlippageBps != 0 {
		cfg.Execution.SlippageBps = fc.Execution.SlippageBps
	}

	if fc.Bus.DefaultQueueCapacity > 0 {
		cfg.Bus.DefaultQueueCapacity = fc.Bus.DefaultQueueCapacity
	}
	if fc.Bus.PriceQueueCapacity > 0 {
		cfg.Bus.PriceQueueCapacity = fc.Bus.PriceQueueCapacity
	}
	if fc.Bus.DrainOnShutdown != nil {
		cfg.Bus.DrainOnShutdown = *fc.Bus.DrainOnShutdown
	}
	if err := overrideDuration(&cfg.Bus.WatchdogGrace, "watchdog_grace", fc.Bus.WatchdogGrace); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("pipeline: parse %s %q: %w", field, s, err)
	}
	return d, nil
}

func overrideDecimal(dst *decimal.Decimal, field, s string) error {
	if s == "" {
		return nil
	}
	d, err := parseDecimal(field, s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func overrideDuration(dst *time.Duration, field, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("pipeline: parse %s %q: %w", field, s, err)
	}
	if d <= 0 {
		return fmt.Errorf("pipeline: %s must be positive", field)
	}
	*dst = d
	return nil
}
