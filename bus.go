package xactor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Bus is the central router of the actor runtime. It owns registration of
// actors and their subscriptions, assigns sequence numbers, dispatches
// envelopes to per-actor bounded inboxes and drives orderly startup and
// graceful termination.
//
// The sequence counter and the subscription table are the only bus-wide
// state touched during dispatch: the counter is atomic, the table is
// immutable once Run starts, so steady-state routing takes no locks.
type Bus struct {
	logger        *xlog.Logger
	clock         xclock.Clock
	interceptors  []Interceptor
	watchdogGrace time.Duration
	defaultReg    registration

	mu      sync.Mutex
	handles []*handle
	byID    map[ActorID]*handle

	// routes maps variant tag -> subscribers in registration order. Built
	// once at Run, read-only afterwards.
	routes [numKinds][]*handle

	seq atomic.Uint64
	// running flips at Run entry and freezes registration; ready flips once
	// the subscription table is built and publishing may begin.
	running      atomic.Bool
	ready        atomic.Bool
	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownC    chan struct{}

	metrics      *busMetrics
	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer
}

// Register adds an actor with its ordered subscription list. Must be called
// before Run: registration is closed-world once the bus is running, which is
// what lets the subscription table go lock-free.
func (b *Bus) Register(a Actor, subs Subscriptions, opts ...RegisterOption) (ActorID, error) {
	if a == nil {
		return "", ErrNilActor
	}
	if b.running.Load() {
		return "", ErrAlreadyRunning
	}
	id := a.ID()
	if id == "" || id == BusIdentity {
		return "", ErrEmptyIdentity
	}
	var seen [numKinds]bool
	for _, s := range subs {
		if int(s.Kind) >= numKinds {
			return "", ErrInvalidSubscription
		}
		if seen[s.Kind] {
			return "", ErrDuplicateSubscription
		}
		seen[s.Kind] = true
	}

	reg := b.defaultReg
	for _, o := range opts {
		if o != nil {
			o(&reg)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Re-check under the lock: Run snapshots the actor set while holding it.
	if b.running.Load() {
		return "", ErrAlreadyRunning
	}
	if _, ok := b.byID[id]; ok {
		return "", ErrDuplicateIdentity
	}
	h := newHandle(a, subs, reg)
	h.ctx = &busContext{bus: b, id: id}
	b.byID[id] = h
	b.handles = append(b.handles, h)
	return id, nil
}

// Run starts every registered actor and blocks until all of them reach
// Stopped or Failed. Every OnStart completes before any delivery begins;
// initial publishes made during OnStart are buffered and must fit the
// subscribers' queue capacities. Cancelling ctx is equivalent to Shutdown.
func (b *Bus) Run(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	b.mu.Lock()
	handles := b.handles
	b.mu.Unlock()
	if len(handles) == 0 {
		b.closed.Store(true)
		return ErrNoActors
	}

	for _, h := range handles {
		base := RecoveryInterceptor()(h.actor.OnMessage)
		h.handler = Chain(base, b.interceptors...)
		for _, s := range h.subs {
			b.routes[s.Kind] = append(b.routes[s.Kind], h)
		}
	}
	b.ready.Store(true)

	// Start phase, in registration order.
	for _, h := range handles {
		h.setState(StateStarted)
		b.notifyAsync(Event{Type: EventActorState, Actor: h.id, State: StateStarted})
		if err := b.invokeOnStart(h); err != nil {
			b.failActor(h, "start", err)
			continue
		}
		h.setState(StateRunning)
		b.notifyAsync(Event{Type: EventActorState, Actor: h.id, State: StateRunning})
	}

	for _, h := range handles {
		if h.currentState() == StateRunning {
			go b.runActor(h)
		}
	}

	stopWatchdog := b.startWatchdog(handles)

	cancelDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.Shutdown()
		case <-cancelDone:
		}
	}()

	for _, h := range handles {
		<-h.doneC
	}
	close(cancelDone)
	stopWatchdog()

	b.closed.Store(true)
	b.shutdownOnce.Do(func() { close(b.shutdownC) })
	if b.observerPool != nil {
		if err := b.observerPool.Close(5 * time.Second); err != nil {
			b.logger.Warn().Err(err).Msg("xactor: observer pool shutdown timeout")
		}
	}
	b.logger.Info().Msg("xactor: bus stopped")
	return nil
}

// PublishExternal is the bus-level injection point (control plane, tests).
// Same at-least-once semantics as actor-originated publishes.
func (b *Bus) PublishExternal(msg Message) error {
	return b.publishFrom(BusIdentity, msg)
}

// Shutdown initiates graceful termination. Cooperative: an actor mid-message
// finishes its current OnMessage invocation before observing Stopping; there
// is no preemptive interruption. Idempotent.
func (b *Bus) Shutdown() {
	if !b.running.Load() {
		return
	}
	b.shutdownOnce.Do(func() { close(b.shutdownC) })
	for _, h := range b.handles {
		h.requestStop()
	}
}

// publishFrom assigns the next sequence number, stamps the envelope and fans
// it out. Fire-and-forget for the caller except under BlockProducer
// backpressure.
func (b *Bus) publishFrom(sender ActorID, msg Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if b.closed.Load() {
		return ErrBusClosed
	}
	if !b.ready.Load() {
		return ErrNotRunning
	}

	kind := msg.Kind()
	seq := b.seq.Add(1)
	ts := msg.Timestamp()
	if ts.IsZero() {
		ts = b.clock.Now()
	}
	env := Envelope{Msg: msg, Sender: sender, Seq: seq, TS: ts}

	b.metrics.published[kind].Add(1)
	b.notifyAsync(Event{Type: EventPublish, Kind: kind, Sender: sender, Seq: seq})

	if kind == KindControl {
		b.routeControl(env)
		return nil
	}
	b.route(env)
	return nil
}

// route fans an envelope out to each subscriber's inbox in registration
// order. Two phases: a non-blocking pass first, so one full BlockProducer
// queue never delays delivery to a healthy subscriber of the same message;
// the producer then blocks only on the queues that could not accept.
func (b *Bus) route(env Envelope) {
	kind := env.Kind()
	subs := b.routes[kind]

	var blocked []*handle
	live := 0
	for _, h := range subs {
		if !h.accepting() {
			continue
		}
		live++
		if h.inbox.tryPut(env) {
			continue
		}
		if h.policy[kind] == PolicyDropNewest {
			b.dropEnvelope(h, env)
			continue
		}
		blocked = append(blocked, h)
	}
	for _, h := range blocked {
		if !h.inbox.put(env, h.stopC, b.shutdownC) {
			b.dropEnvelope(h, env)
		}
	}

	if live == 0 {
		b.metrics.orphaned[kind].Add(1)
		b.notifyAsync(Event{Type: EventOrphaned, Kind: kind, Sender: env.Sender, Seq: env.Seq})
		b.logger.Warn().Str("kind", kind.String()).Msg("xactor: variant has no live subscribers, message dropped")
	}
}

// routeControl broadcasts a control envelope to every live actor's priority
// lane. A Shutdown signal additionally stops the whole bus.
func (b *Bus) routeControl(env Envelope) {
	for _, h := range b.handles {
		if !h.accepting() {
			continue
		}
		select {
		case h.controlC <- env:
		case <-h.stopC:
		case <-b.shutdownC:
		}
	}
	if c, ok := env.Msg.(Control); ok && c.Signal == SignalShutdown {
		b.Shutdown()
	}
}

func (b *Bus) dropEnvelope(h *handle, env Envelope) {
	b.metrics.dropped[env.Kind()].Add(1)
	b.notifyAsync(Event{Type: EventDrop, Kind: env.Kind(), Actor: h.id, Sender: env.Sender, Seq: env.Seq})
}

// runActor is the per-actor delivery loop: an independently scheduled unit
// of execution, so one actor's processing time never blocks another's
// delivery.
func (b *Bus) runActor(h *handle) {
	defer h.complete()
	for {
		// Stop and control lanes take priority over the data inbox so
		// Shutdown/Pause/Resume stay actionable under backlog.
		select {
		case <-h.stopC:
			b.stopActor(h)
			return
		default:
		}
		select {
		case env := <-h.controlC:
			b.applyControl(h, env)
			continue
		default:
		}

		if h.currentState() == StatePaused {
			select {
			case <-h.stopC:
				b.stopActor(h)
				return
			case env := <-h.controlC:
				b.applyControl(h, env)
			}
			continue
		}

		select {
		case <-h.stopC:
			b.stopActor(h)
			return
		case env := <-h.controlC:
			b.applyControl(h, env)
		case env := <-h.inbox.ch:
			if !b.deliver(h, env) {
				return
			}
		}
	}
}

// deliver hands one envelope to the actor's handler chain and applies the
// outcome. Returns false when the actor is terminal and the loop must exit.
func (b *Bus) deliver(h *handle, env Envelope) bool {
	h.busySince.Store(b.clock.Now().UnixNano())
	start := b.clock.Now()
	out := h.handler(h.ctx, env)
	dur := b.clock.Since(start)
	h.busySince.Store(0)

	b.metrics.delivered[env.Kind()].Add(1)
	b.notifyAsync(Event{
		Type:     EventDeliver,
		Kind:     env.Kind(),
		Actor:    h.id,
		Sender:   env.Sender,
		Seq:      env.Seq,
		Duration: dur,
	})

	// The watchdog may have isolated this actor while the handler ran.
	if h.currentState() == StateFailed {
		return false
	}

	switch out.code {
	case outcomeShutdown:
		h.requestStop()
		return true
	case outcomeError:
		b.failActor(h, "message", out.err)
		return false
	default:
		return true
	}
}

// applyControl interprets a control envelope for lifecycle transitions and,
// when the actor subscribed to KindControl, also delivers it to OnMessage.
func (b *Bus) applyControl(h *handle, env Envelope) {
	c, ok := env.Msg.(Control)
	if !ok {
		return
	}
	switch c.Signal {
	case SignalPause:
		if h.transition(StateRunning, StatePaused) {
			b.notifyAsync(Event{Type: EventActorState, Actor: h.id, State: StatePaused})
		}
	case SignalResume:
		if h.transition(StatePaused, StateRunning) {
			b.notifyAsync(Event{Type: EventActorState, Actor: h.id, State: StateRunning})
		}
	case SignalShutdown:
		h.requestStop()
	}
	if h.subscribed[KindControl] {
		b.deliver(h, env)
	}
}

// stopActor runs the Stopping sequence: stop accepting, drain or discard the
// queue, invoke OnStop, transition to Stopped.
func (b *Bus) stopActor(h *handle) {
	if h.currentState().terminal() {
		return
	}
	h.setState(StateStopping)
	b.notifyAsync(Event{Type: EventActorState, Actor: h.id, State: StateStopping})

	if h.drain {
		for {
			env, ok := h.inbox.tryGet()
			if !ok {
				break
			}
			if !b.deliver(h, env) {
				return
			}
		}
	} else if n := b.discardQueue(h); n > 0 {
		b.notifyAsync(Event{Type: EventDiscard, Actor: h.id, Count: n})
	}

	b.invokeOnStop(h)
	if h.currentState() == StateFailed {
		return
	}
	h.setState(StateStopped)
	b.notifyAsync(Event{Type: EventActorState, Actor: h.id, State: StateStopped})
}

func (b *Bus) discardQueue(h *handle) uint64 {
	var n uint64
	for {
		env, ok := h.inbox.tryGet()
		if !ok {
			return n
		}
		b.metrics.discarded[env.Kind()].Add(1)
		n++
	}
}

// failActor isolates an actor as Failed. The failure is recorded and never
// unwinds the dispatch loop or other actors. OnStop still runs (guaranteed
// cleanup); for a watchdog failure it runs concurrently with the stuck
// handler, which is the documented trade-off of having no preemption.
func (b *Bus) failActor(h *handle, stage string, cause error) {
	for {
		s := h.currentState()
		if s.terminal() {
			return
		}
		if h.transition(s, StateFailed) {
			break
		}
	}
	b.metrics.failures.Add(1)
	err := &ActorFailure{ActorID: h.id, Stage: stage, Err: cause}
	b.notifyAsync(Event{Type: EventActorFailure, Actor: h.id, State: StateFailed, Err: err})
	b.logger.Warn().
		Str("actor", string(h.id)).
		Str("stage", stage).
		Err(cause).
		Msg("xactor: actor failed")

	b.invokeOnStop(h)
	h.requestStop()
	h.complete()
}

func (b *Bus) invokeOnStart(h *handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	return h.actor.OnStart(h.ctx)
}

// invokeOnStop guarantees exactly-once cleanup, surviving panics.
func (b *Bus) invokeOnStop(h *handle) {
	h.onStopOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				h.setState(StateFailed)
				b.metrics.failures.Add(1)
				err := &ActorFailure{ActorID: h.id, Stage: "stop", Err: fmt.Errorf("panic recovered: %v", r)}
				b.notifyAsync(Event{Type: EventActorFailure, Actor: h.id, State: StateFailed, Err: err})
				b.logger.Warn().Err(err).Msg("xactor: actor failed during stop")
			}
		}()
		h.actor.OnStop(h.ctx)
	})
}

// startWatchdog launches the liveness monitor when a grace period is
// configured. A handler stuck past the grace gets its actor marked Failed
// and its goroutine abandoned, preserving liveness of the rest.
func (b *Bus) startWatchdog(handles []*handle) (stop func()) {
	if b.watchdogGrace <= 0 {
		return func() {}
	}
	stopC := make(chan struct{})
	interval := b.watchdogGrace / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopC:
				return
			case <-ticker.C:
				now := b.clock.Now().UnixNano()
				for _, h := range handles {
					busy := h.busySince.Load()
					if busy == 0 || now-busy <= int64(b.watchdogGrace) {
						continue
					}
					s := h.currentState()
					if s == StateRunning || s == StateStopping || s == StatePaused {
						b.failActor(h, "watchdog",
							fmt.Errorf("handler unresponsive for %s", time.Duration(now-busy)))
					}
				}
			}
		}
	}()
	return func() { close(stopC) }
}

// AddObserver registers an observer (thread-safe).
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes an observer.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if o == obs {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			break
		}
	}
}

// notifyAsync dispatches events asynchronously off the hot path.
func (b *Bus) notifyAsync(e Event) {
	if b.observerPool == nil {
		return
	}

	b.observersMu.RLock()
	observerCount := len(b.observers)
	if observerCount == 0 {
		b.observersMu.RUnlock()
		return
	}
	if observerCount == 1 {
		obs := b.observers[0]
		b.observersMu.RUnlock()
		b.observerPool.Notify(e, []Observer{obs})
		return
	}
	observers := make([]Observer, observerCount)
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	b.observerPool.Notify(e, observers)
}
