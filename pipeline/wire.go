package pipeline

import (
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xactor"
)

// Actors bundles the constructed pipeline actors for post-run inspection.
type Actors struct {
	Data      *DataEngine
	Strategy  *TrendFollower
	Risk      *RiskChecker
	Execution *ExecutionEngine
}

// WireOption customizes pipeline assembly.
type WireOption func(*wireConfig)

type wireConfig struct {
	dataSeed   int64
	reloadPath string
	noData     bool
}

// WithDataSeed fixes the random walk seed for reproducible runs.
func WithDataSeed(seed int64) WireOption {
	return func(w *wireConfig) { w.dataSeed = seed }
}

// WithRiskReloadPath enables hot-reload of risk limits from a config file.
func WithRiskReloadPath(path string) WireOption {
	return func(w *wireConfig) { w.reloadPath = path }
}

// WithoutDataEngine skips the simulated feed; callers inject PriceUpdate
// themselves via PublishExternal.
func WithoutDataEngine() WireOption {
	return func(w *wireConfig) { w.noData = true }
}

// Wire registers the pipeline actors on the bus per cfg. Registration order
// is data, strategy, risk, execution; the bus starts them in that order.
func Wire(b *xactor.Bus, cfg Config, logger *xlog.Logger, opts ...WireOption) (*Actors, error) {
	var wc wireConfig
	for _, o := range opts {
		if o != nil {
			o(&wc)
		}
	}

	actors := &Actors{}

	if !wc.noData {
		actors.Data = NewDataEngine(cfg, wc.dataSeed, logger)
		if _, err := b.Register(actors.Data, actors.Data.Subscriptions()); err != nil {
			return nil, err
		}
	}

	actors.Strategy = NewTrendFollower(cfg.Strategy, logger)
	if _, err := b.Register(actors.Strategy, actors.Strategy.Subscriptions(),
		xactor.WithQueueCapacity(cfg.Bus.PriceQueueCapacity),
		xactor.WithDrainOnShutdown(cfg.Bus.DrainOnShutdown),
	); err != nil {
		return nil, err
	}

	if cfg.Risk.Enabled {
		var riskOpts []RiskOption
		if wc.reloadPath != "" {
			riskOpts = append(riskOpts, WithLimitsReload(wc.reloadPath))
		}
		actors.Risk = NewRiskChecker(cfg.Risk, logger, riskOpts...)
		if _, err := b.Register(actors.Risk, actors.Risk.Subscriptions(),
			xactor.WithDrainOnShutdown(cfg.Bus.DrainOnShutdown),
		); err != nil {
			return nil, err
		}
	}

	actors.Execution = NewExecutionEngine(cfg.Risk.Enabled, cfg.Execution, logger)
	if _, err := b.Register(actors.Execution, actors.Execution.Subscriptions(),
		xactor.WithDrainOnShutdown(cfg.Bus.DrainOnShutdown),
	); err != nil {
		return nil, err
	}

	return actors, nil
}

// Build assembles a bus from cfg and wires the pipeline onto it.
func Build(cfg Config, logger *xlog.Logger, opts ...WireOption) (*xactor.Bus, *Actors, error) {
	b, err := xactor.New(func(bb *xactor.BusBuilder) {
		bb.WithLogger(logger).
			WithDefaultQueueCapacity(cfg.Bus.DefaultQueueCapacity).
			WithDefaultDrainOnShutdown(cfg.Bus.DrainOnShutdown).
			WithWatchdog(cfg.Bus.WatchdogGrace)
	})
	if err != nil {
		return nil, nil, err
	}
	actors, err := Wire(b, cfg, logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return b, actors, nil
}
