package pipeline

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xactor"
)

// DataEngineID is the bus identity of the market data actor.
const DataEngineID xactor.ActorID = "data-engine"

// DataEngine publishes simulated PriceUpdate ticks: a bounded random walk per
// symbol, driven by a single ticker goroutine that lives between OnStart and
// OnStop. It subscribes only to Control so Pause and Resume silence the feed
// without stopping it.
type DataEngine struct {
	symbols  []Symbol
	interval time.Duration
	step     decimal.Decimal
	logger   *xlog.Logger

	rng    *rand.Rand
	prices []decimal.Decimal

	paused atomic.Bool
	stopC  chan struct{}
	wg     sync.WaitGroup
}

var _ xactor.Actor = (*DataEngine)(nil)

// NewDataEngine builds the feed from config. Seed fixes the walk for
// reproducible runs; pass 0 for a time-based seed.
func NewDataEngine(cfg Config, seed int64, logger *xlog.Logger) *DataEngine {
	if logger == nil {
		logger = xlog.Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	prices := make([]decimal.Decimal, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		prices[i] = s.Start
	}
	return &DataEngine{
		symbols:  cfg.Symbols,
		interval: cfg.TickInterval,
		step:     cfg.TickStep,
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
		prices:   prices,
	}
}

func (e *DataEngine) ID() xactor.ActorID { return DataEngineID }

// Subscriptions returns the variant set the engine registers with.
func (e *DataEngine) Subscriptions() xactor.Subscriptions {
	return xactor.Subscriptions{{Kind: xactor.KindControl}}
}

func (e *DataEngine) OnStart(ctx xactor.Context) error {
	e.stopC = make(chan struct{})
	e.wg.Add(1)
	go e.run(ctx)
	e.logger.Info().
		Str("actor", string(ctx.Self())).
		Dur("interval", e.interval).
		Msg("pipeline: data engine started")
	return nil
}

func (e *DataEngine) OnMessage(_ xactor.Context, env xactor.Envelope) xactor.Outcome {
	if c, ok := env.Msg.(xactor.Control); ok {
		switch c.Signal {
		case xactor.SignalPause:
			e.paused.Store(true)
		case xactor.SignalResume:
			e.paused.Store(false)
		}
	}
	return xactor.Continue()
}

func (e *DataEngine) OnStop(_ xactor.Context) {
	close(e.stopC)
	e.wg.Wait()
	e.logger.Info().Msg("pipeline: data engine stopped")
}

func (e *DataEngine) run(ctx xactor.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopC:
			return
		case <-ticker.C:
			if e.paused.Load() {
				continue
			}
			e.tick(ctx)
		}
	}
}

func (e *DataEngine) tick(ctx xactor.Context) {
	for i, s := range e.symbols {
		e.prices[i] = e.walk(e.prices[i])
		update := xactor.PriceUpdate{
			Symbol: s.Name,
			Price:  e.prices[i],
			Volume: decimal.NewFromInt(int64(e.rng.Intn(900) + 100)),
			TS:     time.Now(),
		}
		if err := ctx.Publish(update); err != nil {
			e.logger.Warn().Err(err).Str("symbol", s.Name).Msg("pipeline: tick publish failed")
			return
		}
	}
}

// walk moves the price by a uniform step in [-step, +step], floored at one
// step above zero so the feed never goes non-positive.
func (e *DataEngine) walk(p decimal.Decimal) decimal.Decimal {
	delta := e.step.Mul(decimal.NewFromFloat(e.rng.Float64()*2 - 1))
	next := p.Add(delta)
	if next.LessThanOrEqual(decimal.Zero) {
		next = e.step
	}
	return next
}
