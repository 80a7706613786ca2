package pipeline

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xactor"
)

// ExecutionEngineID is the bus identity of the execution actor.
const ExecutionEngineID xactor.ActorID = "execution-engine"

var bpsDivisor = decimal.NewFromInt(10000)

// ExecutionEngine is a simulated venue. With risk enabled it parks incoming
// orders until the matching RiskVerdict arrives, then fills approved orders
// at the requested price plus configured slippage and rejects denied ones.
// With risk disabled it fills orders on arrival.
type ExecutionEngine struct {
	riskEnabled bool
	slippageBps int64
	logger      *xlog.Logger

	pending map[string]xactor.OrderRequest
	filled  uint64
}

var _ xactor.Actor = (*ExecutionEngine)(nil)

// NewExecutionEngine builds the venue from config.
func NewExecutionEngine(riskEnabled bool, params ExecParams, logger *xlog.Logger) *ExecutionEngine {
	if logger == nil {
		logger = xlog.Default()
	}
	return &ExecutionEngine{
		riskEnabled: riskEnabled,
		slippageBps: params.SlippageBps,
		logger:      logger,
		pending:     make(map[string]xactor.OrderRequest),
	}
}

func (e *ExecutionEngine) ID() xactor.ActorID { return ExecutionEngineID }

// Subscriptions returns the variant set the venue registers with. Verdicts
// are only consumed when a risk stage exists upstream.
func (e *ExecutionEngine) Subscriptions() xactor.Subscriptions {
	subs := xactor.Subscriptions{
		{Kind: xactor.KindOrderRequest, Policy: xactor.PolicyBlockProducer},
	}
	if e.riskEnabled {
		subs = append(subs, xactor.Subscription{
			Kind: xactor.KindRiskVerdict, Policy: xactor.PolicyBlockProducer,
		})
	}
	return subs
}

func (e *ExecutionEngine) OnStart(_ xactor.Context) error { return nil }

func (e *ExecutionEngine) OnMessage(ctx xactor.Context, env xactor.Envelope) xactor.Outcome {
	switch m := env.Msg.(type) {
	case xactor.OrderRequest:
		if e.riskEnabled {
			e.pending[m.ID] = m
			return xactor.Continue()
		}
		return e.fill(ctx, m)
	case xactor.RiskVerdict:
		order, ok := e.pending[m.OrderID]
		if !ok {
			// Verdict for an order this venue never saw; another venue's
			// traffic or a replay. Ignore.
			return xactor.Continue()
		}
		delete(e.pending, m.OrderID)
		if !m.Approved {
			return e.reject(ctx, order, m.Reason)
		}
		return e.fill(ctx, order)
	}
	return xactor.Continue()
}

func (e *ExecutionEngine) OnStop(_ xactor.Context) {
	if n := len(e.pending); n > 0 {
		e.logger.Warn().
			Float64("pending", float64(n)).
			Msg("pipeline: execution engine stopped with unresolved orders")
	}
	e.logger.Info().
		Float64("filled", float64(e.filled)).
		Msg("pipeline: execution engine stopped")
}

func (e *ExecutionEngine) fill(ctx xactor.Context, o xactor.OrderRequest) xactor.Outcome {
	report := xactor.ExecutionReport{
		OrderID:   o.ID,
		FilledQty: o.Qty,
		AvgPrice:  e.fillPrice(o),
		Status:    xactor.ExecFilled,
		TS:        time.Now(),
	}
	if err := ctx.Publish(report); err != nil {
		return xactor.Fail(err)
	}
	e.filled++
	e.logger.Info().
		Str("order", o.ID).
		Str("symbol", o.Symbol).
		Str("qty", o.Qty.String()).
		Str("avg_price", report.AvgPrice.String()).
		Msg("pipeline: order filled")
	return xactor.Continue()
}

func (e *ExecutionEngine) reject(ctx xactor.Context, o xactor.OrderRequest, reason string) xactor.Outcome {
	report := xactor.ExecutionReport{
		OrderID: o.ID,
		Status:  xactor.ExecRejected,
		TS:      time.Now(),
	}
	if err := ctx.Publish(report); err != nil {
		return xactor.Fail(err)
	}
	e.logger.Warn().
		Str("order", o.ID).
		Str("reason", reason).
		Msg("pipeline: order rejected")
	return xactor.Continue()
}

// fillPrice applies slippage against the order: buys fill above the quoted
// price, sells below.
func (e *ExecutionEngine) fillPrice(o xactor.OrderRequest) decimal.Decimal {
	if e.slippageBps == 0 {
		return o.Price
	}
	slip := o.Price.Mul(decimal.NewFromInt(e.slippageBps)).Div(bpsDivisor)
	if o.Side == xactor.SideSell {
		return o.Price.Sub(slip)
	}
	return o.Price.Add(slip)
}
