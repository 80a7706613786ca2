package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xactor"
)

func TestObserverCounts(t *testing.T) {
	o := New(Config{})

	o.OnEvent(xactor.Event{Type: xactor.EventPublish, Kind: xactor.KindPriceUpdate})
	o.OnEvent(xactor.Event{Type: xactor.EventPublish, Kind: xactor.KindPriceUpdate})
	o.OnEvent(xactor.Event{
		Type: xactor.EventDeliver, Kind: xactor.KindPriceUpdate,
		Actor: "strategy-engine", Duration: time.Millisecond,
	})
	o.OnEvent(xactor.Event{Type: xactor.EventDrop, Kind: xactor.KindPriceUpdate, Actor: "strategy-engine"})
	o.OnEvent(xactor.Event{Type: xactor.EventDiscard, Actor: "strategy-engine", Count: 3})
	o.OnEvent(xactor.Event{Type: xactor.EventOrphaned, Kind: xactor.KindOrderRequest})
	o.OnEvent(xactor.Event{Type: xactor.EventActorFailure, Actor: "risk-checker"})
	o.OnEvent(xactor.Event{Type: xactor.EventActorState, Actor: "risk-checker", State: xactor.StateRunning})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.published.WithLabelValues("price_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.delivered.WithLabelValues("price_update", "strategy-engine")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.dropped.WithLabelValues("price_update", "strategy-engine")))
	assert.Equal(t, 3.0, testutil.ToFloat64(o.discarded.WithLabelValues("strategy-engine")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.orphaned.WithLabelValues("order_request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.failures.WithLabelValues("risk-checker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.states.WithLabelValues("risk-checker", "running")))
}

func TestHandlerServesMetrics(t *testing.T) {
	o := New(Config{Namespace: "testns"})
	o.OnEvent(xactor.Event{Type: xactor.EventPublish, Kind: xactor.KindControl})

	srv := httptest.NewServer(o.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
