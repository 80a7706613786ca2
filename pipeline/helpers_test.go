package pipeline

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trickstertwo/xactor"
)

// fakeContext records publishes for feeding actors envelopes directly.
type fakeContext struct {
	id        xactor.ActorID
	published []xactor.Message
	err       error
}

var _ xactor.Context = (*fakeContext)(nil)

func (c *fakeContext) Publish(m xactor.Message) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, m)
	return nil
}

func (c *fakeContext) Self() xactor.ActorID { return c.id }

var envSeq uint64

func env(m xactor.Message) xactor.Envelope {
	envSeq++
	return xactor.Envelope{Msg: m, Sender: "test", Seq: envSeq}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func priceAt(symbol, price string) xactor.PriceUpdate {
	return xactor.PriceUpdate{Symbol: symbol, Price: dec(price), Volume: dec("100")}
}

// collector is a bus actor capturing pipeline traffic for assertions.
type collector struct {
	mu       sync.Mutex
	orders   []xactor.OrderRequest
	verdicts []xactor.RiskVerdict
	reports  []xactor.ExecutionReport
	reportC  chan xactor.ExecutionReport
}

func newCollector() *collector {
	return &collector{reportC: make(chan xactor.ExecutionReport, 16)}
}

func (c *collector) ID() xactor.ActorID { return "collector" }

func (c *collector) Subscriptions() xactor.Subscriptions {
	return xactor.Subscriptions{
		{Kind: xactor.KindOrderRequest},
		{Kind: xactor.KindRiskVerdict},
		{Kind: xactor.KindExecutionReport},
	}
}

func (c *collector) OnStart(xactor.Context) error { return nil }

func (c *collector) OnMessage(_ xactor.Context, e xactor.Envelope) xactor.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m := e.Msg.(type) {
	case xactor.OrderRequest:
		c.orders = append(c.orders, m)
	case xactor.RiskVerdict:
		c.verdicts = append(c.verdicts, m)
	case xactor.ExecutionReport:
		c.reports = append(c.reports, m)
		c.reportC <- m
	}
	return xactor.Continue()
}

func (c *collector) OnStop(xactor.Context) {}

func (c *collector) snapshot() (orders []xactor.OrderRequest, verdicts []xactor.RiskVerdict, reports []xactor.ExecutionReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(orders, c.orders...), append(verdicts, c.verdicts...), append(reports, c.reports...)
}
