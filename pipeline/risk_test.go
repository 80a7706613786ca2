package pipeline

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xactor"
)

func testLimits() RiskLimits {
	return RiskLimits{
		Enabled:      true,
		MaxOrderQty:  dec("100"),
		MaxNotional:  dec("100000"),
		PriceBandPct: dec("0.05"),
	}
}

func checkOrder(t *testing.T, r *RiskChecker, o xactor.OrderRequest) xactor.RiskVerdict {
	t.Helper()
	ctx := &fakeContext{id: r.ID()}
	out := r.OnMessage(ctx, env(o))
	require.NoError(t, out.Err())
	require.Len(t, ctx.published, 1)
	v := ctx.published[0].(xactor.RiskVerdict)
	require.Equal(t, o.ID, v.OrderID)
	return v
}

func TestRiskCheckerApproves(t *testing.T) {
	r := NewRiskChecker(testLimits(), nil)
	v := checkOrder(t, r, xactor.OrderRequest{
		ID: "o1", Symbol: "AAPL", Qty: dec("5"), Price: dec("100"),
	})
	assert.True(t, v.Approved)
	assert.Empty(t, v.Reason)
}

func TestRiskCheckerQtyLimit(t *testing.T) {
	r := NewRiskChecker(testLimits(), nil)
	v := checkOrder(t, r, xactor.OrderRequest{
		ID: "o1", Symbol: "AAPL", Qty: dec("101"), Price: dec("1"),
	})
	assert.False(t, v.Approved)
	assert.Equal(t, "max order quantity exceeded", v.Reason)
}

func TestRiskCheckerNotionalLimit(t *testing.T) {
	r := NewRiskChecker(testLimits(), nil)
	v := checkOrder(t, r, xactor.OrderRequest{
		ID: "o1", Symbol: "AAPL", Qty: dec("100"), Price: dec("2000"),
	})
	assert.False(t, v.Approved)
	assert.Equal(t, "max notional exceeded", v.Reason)
}

func TestRiskCheckerNonPositiveQty(t *testing.T) {
	r := NewRiskChecker(testLimits(), nil)
	v := checkOrder(t, r, xactor.OrderRequest{
		ID: "o1", Symbol: "AAPL", Qty: dec("0"), Price: dec("100"),
	})
	assert.False(t, v.Approved)
	assert.Equal(t, "non-positive quantity", v.Reason)
}

func TestRiskCheckerPriceBand(t *testing.T) {
	r := NewRiskChecker(testLimits(), nil)
	ctx := &fakeContext{id: r.ID()}
	r.OnMessage(ctx, env(priceAt("AAPL", "100.00")))

	v := checkOrder(t, r, xactor.OrderRequest{
		ID: "o1", Symbol: "AAPL", Qty: dec("1"), Price: dec("110"),
	})
	assert.False(t, v.Approved)
	assert.Equal(t, "price outside band", v.Reason)

	// Within the band against the same reference.
	v = checkOrder(t, r, xactor.OrderRequest{
		ID: "o2", Symbol: "AAPL", Qty: dec("1"), Price: dec("103"),
	})
	assert.True(t, v.Approved)

	// No reference for an unseen symbol: band check is skipped.
	v = checkOrder(t, r, xactor.OrderRequest{
		ID: "o3", Symbol: "MSFT", Qty: dec("1"), Price: dec("9999"),
	})
	assert.True(t, v.Approved)
}

func TestRiskCheckerDisabledLimits(t *testing.T) {
	r := NewRiskChecker(RiskLimits{Enabled: true}, nil)
	v := checkOrder(t, r, xactor.OrderRequest{
		ID: "o1", Symbol: "AAPL", Qty: dec("1000000"), Price: dec("1000000"),
	})
	assert.True(t, v.Approved, "zero limits disable the corresponding checks")
}

func TestRiskCheckerHotReload(t *testing.T) {
	path := writeConfig(t, `
risk:
  max_order_qty: "100"
`)
	r := NewRiskChecker(testLimits(), nil, WithLimitsReload(path))
	ctx := &fakeContext{id: r.ID()}
	require.NoError(t, r.OnStart(ctx))
	defer r.OnStop(ctx)

	require.NoError(t, os.WriteFile(path, []byte("risk:\n  max_order_qty: \"7\"\n"), 0o644))
	require.Eventually(t, func() bool {
		return r.Limits().MaxOrderQty.Equal(dec("7"))
	}, 3*time.Second, 10*time.Millisecond)

	// A broken rewrite keeps the previous limits.
	require.NoError(t, os.WriteFile(path, []byte("risk: ["), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, r.Limits().MaxOrderQty.Equal(dec("7")))
}
