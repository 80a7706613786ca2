// Package prometheus exports bus telemetry as Prometheus metrics.
//
// The adapter is an xactor.Observer: attach it with AddObserver (or the Use
// helper) and scrape Handler(). It keeps its own Registry so embedding
// applications never collide with it.
package prometheus

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trickstertwo/xactor"
)

// Config tunes the adapter.
type Config struct {
	// Namespace prefixes every metric name. Defaults to "xactor".
	Namespace string
	// Registry to register on. A private one is created when nil.
	Registry *prom.Registry
}

// Observer translates bus events into Prometheus series.
type Observer struct {
	registry *prom.Registry

	published *prom.CounterVec
	delivered *prom.CounterVec
	dropped   *prom.CounterVec
	discarded *prom.CounterVec
	orphaned  *prom.CounterVec
	failures  *prom.CounterVec
	states    *prom.CounterVec
	latency   *prom.HistogramVec
}

var _ xactor.Observer = (*Observer)(nil)

// New builds an Observer with all collectors registered.
func New(cfg Config) *Observer {
	ns := cfg.Namespace
	if ns == "" {
		ns = "xactor"
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}

	o := &Observer{
		registry: reg,
		published: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "messages_published_total",
			Help:      "Messages accepted by the bus, by variant.",
		}, []string{"kind"}),
		delivered: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "messages_delivered_total",
			Help:      "Envelopes handed to actor handlers, by variant and actor.",
		}, []string{"kind", "actor"}),
		dropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "messages_dropped_total",
			Help:      "Envelopes dropped at full queues under DropNewest.",
		}, []string{"kind", "actor"}),
		discarded: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "messages_discarded_total",
			Help:      "Envelopes discarded from queues during actor shutdown.",
		}, []string{"actor"}),
		orphaned: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "messages_orphaned_total",
			Help:      "Messages published to variants with no live subscribers.",
		}, []string{"kind"}),
		failures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "actor_failures_total",
			Help:      "Actors transitioned to the Failed state.",
		}, []string{"actor"}),
		states: prom.NewCounterVec(prom.CounterOpts{
			Namespace: ns,
			Name:      "actor_state_transitions_total",
			Help:      "Actor lifecycle transitions observed on the bus.",
		}, []string{"actor", "state"}),
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: ns,
			Name:      "handler_duration_seconds",
			Help:      "OnMessage handler latency.",
			Buckets:   prom.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"kind", "actor"}),
	}

	reg.MustRegister(
		o.published, o.delivered, o.dropped, o.discarded,
		o.orphaned, o.failures, o.states, o.latency,
	)
	return o
}

// Use builds an Observer and attaches it to the bus in one call.
func Use(b *xactor.Bus, cfg Config) *Observer {
	o := New(cfg)
	b.AddObserver(o)
	return o
}

// OnEvent implements xactor.Observer.
func (o *Observer) OnEvent(e xactor.Event) {
	switch e.Type {
	case xactor.EventPublish:
		o.published.WithLabelValues(e.Kind.String()).Inc()
	case xactor.EventDeliver:
		actor := string(e.Actor)
		kind := e.Kind.String()
		o.delivered.WithLabelValues(kind, actor).Inc()
		o.latency.WithLabelValues(kind, actor).Observe(e.Duration.Seconds())
	case xactor.EventDrop:
		o.dropped.WithLabelValues(e.Kind.String(), string(e.Actor)).Inc()
	case xactor.EventDiscard:
		o.discarded.WithLabelValues(string(e.Actor)).Add(float64(e.Count))
	case xactor.EventOrphaned:
		o.orphaned.WithLabelValues(e.Kind.String()).Inc()
	case xactor.EventActorFailure:
		o.failures.WithLabelValues(string(e.Actor)).Inc()
	case xactor.EventActorState:
		o.states.WithLabelValues(string(e.Actor), e.State.String()).Inc()
	}
}

// Registry exposes the underlying registry for composition.
func (o *Observer) Registry() *prom.Registry { return o.registry }

// Handler returns an HTTP handler serving the scrape endpoint.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
