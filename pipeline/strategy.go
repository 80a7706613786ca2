package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xactor"
)

// StrategyID is the bus identity of the strategy actor.
const StrategyID xactor.ActorID = "strategy-engine"

type pendingOrder struct {
	symbol string
	side   xactor.Side
	qty    decimal.Decimal
}

// TrendFollower is a threshold-crossing strategy: when a symbol's price
// crosses the configured threshold from below it buys a fixed quantity, then
// waits for the execution report before arming again. It keeps at most one
// order in flight per symbol.
//
// Ticks arrive under DropNewest: losing a stale tick is harmless, lagging the
// market is not. Verdicts and reports arrive under BlockProducer so no
// lifecycle message of an in-flight order is ever lost.
type TrendFollower struct {
	strategyID string
	threshold  decimal.Decimal
	qty        decimal.Decimal
	logger     *xlog.Logger

	last      map[string]decimal.Decimal
	inFlight  map[string]string       // symbol -> order ID
	orders    map[string]pendingOrder // order ID -> details
	positions map[string]decimal.Decimal

	fills   int
	rejects int
}

var _ xactor.Actor = (*TrendFollower)(nil)

// NewTrendFollower builds the strategy from config.
func NewTrendFollower(params StrategyParams, logger *xlog.Logger) *TrendFollower {
	if logger == nil {
		logger = xlog.Default()
	}
	return &TrendFollower{
		strategyID: params.ID,
		threshold:  params.Threshold,
		qty:        params.OrderQty,
		logger:     logger,
		last:       make(map[string]decimal.Decimal),
		inFlight:   make(map[string]string),
		orders:     make(map[string]pendingOrder),
		positions:  make(map[string]decimal.Decimal),
	}
}

func (t *TrendFollower) ID() xactor.ActorID { return StrategyID }

// Subscriptions returns the variant set the strategy registers with.
func (t *TrendFollower) Subscriptions() xactor.Subscriptions {
	return xactor.Subscriptions{
		{Kind: xactor.KindPriceUpdate, Policy: xactor.PolicyDropNewest},
		{Kind: xactor.KindRiskVerdict, Policy: xactor.PolicyBlockProducer},
		{Kind: xactor.KindExecutionReport, Policy: xactor.PolicyBlockProducer},
	}
}

func (t *TrendFollower) OnStart(_ xactor.Context) error { return nil }

func (t *TrendFollower) OnMessage(ctx xactor.Context, env xactor.Envelope) xactor.Outcome {
	switch m := env.Msg.(type) {
	case xactor.PriceUpdate:
		return t.onTick(ctx, m)
	case xactor.RiskVerdict:
		t.onVerdict(m)
	case xactor.ExecutionReport:
		t.onReport(m)
	}
	return xactor.Continue()
}

func (t *TrendFollower) OnStop(_ xactor.Context) {
	t.logger.Info().
		Str("strategy", t.strategyID).
		Float64("fills", float64(t.fills)).
		Float64("rejects", float64(t.rejects)).
		Msg("pipeline: strategy stopped")
}

func (t *TrendFollower) onTick(ctx xactor.Context, m xactor.PriceUpdate) xactor.Outcome {
	prev, seen := t.last[m.Symbol]
	t.last[m.Symbol] = m.Price

	crossed := seen &&
		prev.LessThan(t.threshold) &&
		m.Price.GreaterThanOrEqual(t.threshold)
	if !crossed {
		return xactor.Continue()
	}
	if _, busy := t.inFlight[m.Symbol]; busy {
		return xactor.Continue()
	}

	order := xactor.OrderRequest{
		ID:         uuid.NewString(),
		Symbol:     m.Symbol,
		Side:       xactor.SideBuy,
		Qty:        t.qty,
		Price:      m.Price,
		StrategyID: t.strategyID,
		TS:         time.Now(),
	}
	t.inFlight[m.Symbol] = order.ID
	t.orders[order.ID] = pendingOrder{symbol: m.Symbol, side: order.Side, qty: order.Qty}

	if err := ctx.Publish(order); err != nil {
		delete(t.inFlight, m.Symbol)
		delete(t.orders, order.ID)
		return xactor.Fail(err)
	}
	t.logger.Info().
		Str("symbol", m.Symbol).
		Str("order", order.ID).
		Str("price", m.Price.String()).
		Msg("pipeline: order submitted")
	return xactor.Continue()
}

// onVerdict clears denied orders early; approvals settle via the execution
// report.
func (t *TrendFollower) onVerdict(m xactor.RiskVerdict) {
	if m.Approved {
		return
	}
	o, ok := t.orders[m.OrderID]
	if !ok {
		return
	}
	delete(t.orders, m.OrderID)
	delete(t.inFlight, o.symbol)
	t.rejects++
	t.logger.Warn().
		Str("order", m.OrderID).
		Str("reason", m.Reason).
		Msg("pipeline: order denied by risk")
}

func (t *TrendFollower) onReport(m xactor.ExecutionReport) {
	o, ok := t.orders[m.OrderID]
	if !ok {
		return
	}
	delete(t.orders, m.OrderID)
	delete(t.inFlight, o.symbol)

	switch m.Status {
	case xactor.ExecFilled, xactor.ExecPartiallyFilled:
		t.fills++
		qty := m.FilledQty
		if o.side == xactor.SideSell {
			qty = qty.Neg()
		}
		t.positions[o.symbol] = t.positions[o.symbol].Add(qty)
		t.logger.Info().
			Str("order", m.OrderID).
			Str("symbol", o.symbol).
			Str("filled", m.FilledQty.String()).
			Str("avg_price", m.AvgPrice.String()).
			Msg("pipeline: order filled")
	case xactor.ExecRejected:
		t.rejects++
		t.logger.Warn().Str("order", m.OrderID).Msg("pipeline: order rejected")
	}
}

// Position reports the signed quantity held in a symbol. Not synchronized:
// call it only before Run or after the bus has stopped.
func (t *TrendFollower) Position(symbol string) decimal.Decimal {
	return t.positions[symbol]
}

// Fills reports the number of filled orders. Same synchronization rule as
// Position.
func (t *TrendFollower) Fills() int { return t.fills }
