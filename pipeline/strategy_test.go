package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xactor"
)

func newTestStrategy() *TrendFollower {
	return NewTrendFollower(StrategyParams{
		ID:        "test-strategy",
		Threshold: dec("100.30"),
		OrderQty:  dec("5"),
	}, nil)
}

func TestTrendFollowerCrossingEmitsOneOrder(t *testing.T) {
	s := newTestStrategy()
	ctx := &fakeContext{id: s.ID()}

	// First tick only seeds the previous price.
	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	require.Empty(t, ctx.published)

	s.OnMessage(ctx, env(priceAt("AAPL", "100.50")))
	require.Len(t, ctx.published, 1)
	order := ctx.published[0].(xactor.OrderRequest)
	assert.Equal(t, "AAPL", order.Symbol)
	assert.Equal(t, xactor.SideBuy, order.Side)
	assert.True(t, order.Qty.Equal(dec("5")))
	assert.True(t, order.Price.Equal(dec("100.50")))
	assert.Equal(t, "test-strategy", order.StrategyID)
	assert.NotEmpty(t, order.ID)

	// Above threshold but no fresh crossing, and an order is in flight.
	s.OnMessage(ctx, env(priceAt("AAPL", "100.80")))
	require.Len(t, ctx.published, 1)
}

func TestTrendFollowerNoOrderBelowThreshold(t *testing.T) {
	s := newTestStrategy()
	ctx := &fakeContext{id: s.ID()}

	s.OnMessage(ctx, env(priceAt("AAPL", "99.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.29")))
	require.Empty(t, ctx.published)
}

func TestTrendFollowerFillUpdatesPosition(t *testing.T) {
	s := newTestStrategy()
	ctx := &fakeContext{id: s.ID()}

	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.50")))
	require.Len(t, ctx.published, 1)
	order := ctx.published[0].(xactor.OrderRequest)

	s.OnMessage(ctx, env(xactor.ExecutionReport{
		OrderID:   order.ID,
		FilledQty: order.Qty,
		AvgPrice:  order.Price,
		Status:    xactor.ExecFilled,
	}))
	assert.True(t, s.Position("AAPL").Equal(dec("5")))
	assert.Equal(t, 1, s.Fills())

	// Armed again after settling: dip below, cross again.
	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.40")))
	require.Len(t, ctx.published, 2)
}

func TestTrendFollowerDeniedVerdictClearsOrder(t *testing.T) {
	s := newTestStrategy()
	ctx := &fakeContext{id: s.ID()}

	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.50")))
	require.Len(t, ctx.published, 1)
	order := ctx.published[0].(xactor.OrderRequest)

	s.OnMessage(ctx, env(xactor.RiskVerdict{OrderID: order.ID, Approved: false, Reason: "too big"}))
	assert.True(t, s.Position("AAPL").IsZero())

	// The symbol is free again for the next crossing.
	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.35")))
	require.Len(t, ctx.published, 2)
}

func TestTrendFollowerIgnoresUnknownReports(t *testing.T) {
	s := newTestStrategy()
	ctx := &fakeContext{id: s.ID()}

	s.OnMessage(ctx, env(xactor.ExecutionReport{OrderID: "nobody", Status: xactor.ExecFilled, FilledQty: dec("5")}))
	assert.True(t, s.Position("AAPL").IsZero())
	assert.Zero(t, s.Fills())

	s.OnMessage(ctx, env(xactor.RiskVerdict{OrderID: "nobody", Approved: false}))
	require.Empty(t, ctx.published)
}

func TestTrendFollowerApprovedVerdictKeepsOrderOpen(t *testing.T) {
	s := newTestStrategy()
	ctx := &fakeContext{id: s.ID()}

	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.50")))
	order := ctx.published[0].(xactor.OrderRequest)

	s.OnMessage(ctx, env(xactor.RiskVerdict{OrderID: order.ID, Approved: true}))

	// Still waiting on the execution report; no re-arm yet.
	s.OnMessage(ctx, env(priceAt("AAPL", "100.00")))
	s.OnMessage(ctx, env(priceAt("AAPL", "100.50")))
	require.Len(t, ctx.published, 1)
}
