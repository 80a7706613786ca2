package pipeline

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xactor"
)

// RiskCheckerID is the bus identity of the risk actor.
const RiskCheckerID xactor.ActorID = "risk-checker"

// RiskChecker performs asynchronous pre-trade checks: it consumes
// OrderRequest, applies the configured limits and publishes a RiskVerdict.
// It also consumes PriceUpdate to keep a reference price per symbol for the
// price band check.
//
// When a config path is set the limits hot-reload on file change; the
// running checker picks up new limits without a restart.
type RiskChecker struct {
	logger *xlog.Logger

	limits atomic.Pointer[RiskLimits]
	ref    map[string]decimal.Decimal

	configPath string
	watcher    *fsnotify.Watcher
	watchStop  chan struct{}
	watchWG    sync.WaitGroup

	checked uint64
	denied  uint64
}

var _ xactor.Actor = (*RiskChecker)(nil)

// RiskOption customizes the checker.
type RiskOption func(*RiskChecker)

// WithLimitsReload watches path (a pipeline config file) and swaps in its
// risk section whenever the file changes.
func WithLimitsReload(path string) RiskOption {
	return func(r *RiskChecker) { r.configPath = path }
}

// NewRiskChecker builds the checker with an initial limit set.
func NewRiskChecker(limits RiskLimits, logger *xlog.Logger, opts ...RiskOption) *RiskChecker {
	if logger == nil {
		logger = xlog.Default()
	}
	r := &RiskChecker{
		logger: logger,
		ref:    make(map[string]decimal.Decimal),
	}
	r.limits.Store(&limits)
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

func (r *RiskChecker) ID() xactor.ActorID { return RiskCheckerID }

// Subscriptions returns the variant set the checker registers with. Orders
// block the producer: a lost order check is worse than a stalled strategy.
func (r *RiskChecker) Subscriptions() xactor.Subscriptions {
	return xactor.Subscriptions{
		{Kind: xactor.KindOrderRequest, Policy: xactor.PolicyBlockProducer},
		{Kind: xactor.KindPriceUpdate, Policy: xactor.PolicyDropNewest},
	}
}

func (r *RiskChecker) OnStart(_ xactor.Context) error {
	if r.configPath == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: editors and atomic writers replace
	// the inode and a file watch dies with it.
	if err := w.Add(filepath.Dir(r.configPath)); err != nil {
		w.Close()
		return err
	}
	r.watcher = w
	r.watchStop = make(chan struct{})
	r.watchWG.Add(1)
	go r.watchLoop()
	r.logger.Info().Str("path", r.configPath).Msg("pipeline: risk limits hot-reload enabled")
	return nil
}

func (r *RiskChecker) OnMessage(ctx xactor.Context, env xactor.Envelope) xactor.Outcome {
	switch m := env.Msg.(type) {
	case xactor.PriceUpdate:
		r.ref[m.Symbol] = m.Price
	case xactor.OrderRequest:
		verdict := r.evaluate(m)
		if err := ctx.Publish(verdict); err != nil {
			return xactor.Fail(err)
		}
	}
	return xactor.Continue()
}

func (r *RiskChecker) OnStop(_ xactor.Context) {
	if r.watcher != nil {
		close(r.watchStop)
		r.watcher.Close()
		r.watchWG.Wait()
	}
	r.logger.Info().
		Float64("checked", float64(r.checked)).
		Float64("denied", float64(r.denied)).
		Msg("pipeline: risk checker stopped")
}

// evaluate applies the limit checks in a fixed order and reports the first
// violation.
func (r *RiskChecker) evaluate(o xactor.OrderRequest) xactor.RiskVerdict {
	r.checked++
	lim := r.limits.Load()
	deny := func(reason string) xactor.RiskVerdict {
		r.denied++
		return xactor.RiskVerdict{OrderID: o.ID, Approved: false, Reason: reason, TS: time.Now()}
	}

	if o.Qty.LessThanOrEqual(decimal.Zero) {
		return deny("non-positive quantity")
	}
	if lim.MaxOrderQty.IsPositive() && o.Qty.GreaterThan(lim.MaxOrderQty) {
		return deny("max order quantity exceeded")
	}
	if lim.MaxNotional.IsPositive() {
		notional := o.Qty.Mul(o.Price)
		if notional.GreaterThan(lim.MaxNotional) {
			return deny("max notional exceeded")
		}
	}
	if lim.PriceBandPct.IsPositive() {
		if ref, ok := r.ref[o.Symbol]; ok && ref.IsPositive() {
			dev := o.Price.Sub(ref).Abs().Div(ref)
			if dev.GreaterThan(lim.PriceBandPct) {
				return deny("price outside band")
			}
		}
	}
	return xactor.RiskVerdict{OrderID: o.ID, Approved: true, TS: time.Now()}
}

// Limits returns the active limit set.
func (r *RiskChecker) Limits() RiskLimits { return *r.limits.Load() }

func (r *RiskChecker) watchLoop() {
	defer r.watchWG.Done()
	target := filepath.Clean(r.configPath)
	for {
		select {
		case <-r.watchStop:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			r.reload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn().Err(err).Msg("pipeline: risk limits watcher error")
		}
	}
}

func (r *RiskChecker) reload() {
	cfg, err := Load(r.configPath)
	if err != nil {
		r.logger.Warn().Err(err).Msg("pipeline: risk limits reload failed, keeping previous limits")
		return
	}
	limits := cfg.Risk
	r.limits.Store(&limits)
	r.logger.Info().
		Str("max_order_qty", limits.MaxOrderQty.String()).
		Str("max_notional", limits.MaxNotional.String()).
		Str("price_band_pct", limits.PriceBandPct.String()).
		Msg("pipeline: risk limits reloaded")
}
