package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xactor"
)

func testConfig() Config {
	cfg := Default()
	cfg.Bus.DrainOnShutdown = true
	cfg.Bus.WatchdogGrace = 2 * time.Second
	return cfg
}

func runPipelineBus(t *testing.T, cfg Config) (*xactor.Bus, *Actors, *collector, chan error) {
	t.Helper()
	b, actors, err := Build(cfg, nil, WithoutDataEngine())
	require.NoError(t, err)

	col := newCollector()
	_, err = b.Register(col, col.Subscriptions())
	require.NoError(t, err)

	errC := make(chan error, 1)
	go func() { errC <- b.Run(context.Background()) }()

	// The last registered actor starting means publishing is safe.
	require.Eventually(t, func() bool {
		return b.Metrics().Actors[col.ID()] == xactor.StateRunning
	}, 2*time.Second, 5*time.Millisecond)
	return b, actors, col, errC
}

func awaitReport(t *testing.T, col *collector) xactor.ExecutionReport {
	t.Helper()
	select {
	case r := <-col.reportC:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no execution report")
		return xactor.ExecutionReport{}
	}
}

func stopBus(t *testing.T, b *xactor.Bus, errC chan error) {
	t.Helper()
	b.Shutdown()
	select {
	case err := <-errC:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not stop")
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := testConfig()
	b, actors, col, errC := runPipelineBus(t, cfg)

	require.NoError(t, b.PublishExternal(priceAt("AAPL", "100.00")))
	require.NoError(t, b.PublishExternal(priceAt("AAPL", "100.50")))

	report := awaitReport(t, col)
	assert.Equal(t, xactor.ExecFilled, report.Status)
	assert.True(t, report.FilledQty.Equal(cfg.Strategy.OrderQty))

	stopBus(t, b, errC)

	orders, verdicts, reports := col.snapshot()
	require.Len(t, orders, 1, "exactly one crossing, exactly one order")
	assert.Equal(t, "AAPL", orders[0].Symbol)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].Approved)
	assert.Equal(t, orders[0].ID, verdicts[0].OrderID)
	require.Len(t, reports, 1)
	assert.Equal(t, orders[0].ID, reports[0].OrderID)

	// Drain-on-shutdown lets the strategy settle the report before stopping.
	assert.True(t, actors.Strategy.Position("AAPL").Equal(cfg.Strategy.OrderQty))
	assert.Equal(t, 1, actors.Strategy.Fills())

	snap := b.Metrics()
	assert.Zero(t, snap.Failures)
	assert.Equal(t, xactor.StateStopped, snap.Actors[StrategyID])
	assert.Equal(t, xactor.StateStopped, snap.Actors[RiskCheckerID])
	assert.Equal(t, xactor.StateStopped, snap.Actors[ExecutionEngineID])
}

func TestPipelineRiskDeniesOversizedOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxOrderQty = dec("1") // below the strategy's order quantity

	b, actors, col, errC := runPipelineBus(t, cfg)

	require.NoError(t, b.PublishExternal(priceAt("AAPL", "100.00")))
	require.NoError(t, b.PublishExternal(priceAt("AAPL", "100.50")))

	report := awaitReport(t, col)
	assert.Equal(t, xactor.ExecRejected, report.Status)

	stopBus(t, b, errC)

	_, verdicts, _ := col.snapshot()
	require.Len(t, verdicts, 1)
	assert.False(t, verdicts[0].Approved)
	assert.Equal(t, "max order quantity exceeded", verdicts[0].Reason)
	assert.True(t, actors.Strategy.Position("AAPL").IsZero())
}

func TestPipelineWithoutRiskFillsDirectly(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.Enabled = false

	b, actors, col, errC := runPipelineBus(t, cfg)
	assert.Nil(t, actors.Risk)

	require.NoError(t, b.PublishExternal(priceAt("AAPL", "100.00")))
	require.NoError(t, b.PublishExternal(priceAt("AAPL", "100.50")))

	report := awaitReport(t, col)
	assert.Equal(t, xactor.ExecFilled, report.Status)

	stopBus(t, b, errC)

	_, verdicts, _ := col.snapshot()
	assert.Empty(t, verdicts, "no risk stage, no verdicts")
	assert.True(t, actors.Strategy.Position("AAPL").Equal(cfg.Strategy.OrderQty))
}

func TestPipelineWithDataEngine(t *testing.T) {
	cfg := testConfig()
	cfg.TickInterval = 2 * time.Millisecond
	// Start right below the threshold so the walk crosses it quickly.
	cfg.Symbols[0].Start = dec("100.29")

	b, actors, err := Build(cfg, nil, WithDataSeed(1))
	require.NoError(t, err)
	require.NotNil(t, actors.Data)

	errC := make(chan error, 1)
	go func() { errC <- b.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return b.Metrics().Kinds[xactor.KindPriceUpdate].Published > 5
	}, 5*time.Second, 10*time.Millisecond)

	stopBus(t, b, errC)

	snap := b.Metrics()
	assert.Zero(t, snap.Failures)
	assert.Positive(t, snap.Kinds[xactor.KindPriceUpdate].Delivered)
}

func TestWireRejectsDoubleRegistration(t *testing.T) {
	cfg := testConfig()
	b, _, err := Build(cfg, nil)
	require.NoError(t, err)

	_, err = Wire(b, cfg, nil)
	require.ErrorIs(t, err, xactor.ErrDuplicateIdentity)
}
