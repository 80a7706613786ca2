package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xactor"
)

func TestDataEngineWalkStaysPositive(t *testing.T) {
	cfg := Default()
	cfg.TickStep = dec("10")
	e := NewDataEngine(cfg, 7, nil)

	p := dec("1")
	for i := 0; i < 1000; i++ {
		p = e.walk(p)
		require.True(t, p.IsPositive(), "walk went non-positive at step %d: %s", i, p)
	}
}

func TestDataEnginePublishesTicks(t *testing.T) {
	cfg := Default()
	cfg.TickInterval = 2 * time.Millisecond
	e := NewDataEngine(cfg, 42, nil)
	ctx := &fakeContext{id: e.ID()}

	require.NoError(t, e.OnStart(ctx))
	time.Sleep(50 * time.Millisecond)
	// OnStop joins the walker goroutine; reading ctx afterwards is safe.
	e.OnStop(ctx)

	require.NotEmpty(t, ctx.published)
	for _, m := range ctx.published {
		tick, ok := m.(xactor.PriceUpdate)
		require.True(t, ok)
		assert.Equal(t, "AAPL", tick.Symbol)
		assert.True(t, tick.Price.IsPositive())
		assert.True(t, tick.Volume.GreaterThanOrEqual(decimal.NewFromInt(100)))
	}
}

func TestDataEnginePauseSilencesFeed(t *testing.T) {
	cfg := Default()
	cfg.TickInterval = time.Millisecond
	e := NewDataEngine(cfg, 42, nil)

	e.OnMessage(nil, xactor.Envelope{Msg: xactor.Control{Signal: xactor.SignalPause}})
	assert.True(t, e.paused.Load())

	e.OnMessage(nil, xactor.Envelope{Msg: xactor.Control{Signal: xactor.SignalResume}})
	assert.False(t, e.paused.Load())
}

func TestDataEngineDeterministicSeed(t *testing.T) {
	cfg := Default()
	a := NewDataEngine(cfg, 99, nil)
	b := NewDataEngine(cfg, 99, nil)

	pa, pb := dec("100"), dec("100")
	for i := 0; i < 50; i++ {
		pa = a.walk(pa)
		pb = b.walk(pb)
		require.True(t, pa.Equal(pb), "walks diverged at step %d", i)
	}
}
